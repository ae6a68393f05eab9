package tbd

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/appsworld/go-tbd/types"
)

// An Arch names one slice's cpu type.
type Arch struct {
	CPU    types.CPU
	SubCPU types.CPUSubtype
	Name   string
}

func NewArch(cpu types.CPU, sub types.CPUSubtype) Arch {
	return Arch{CPU: cpu, SubCPU: sub & types.CpuSubtypeMask, Name: types.ArchName(cpu, sub)}
}

func (a Arch) String() string { return a.Name }

// A Location is an offset/size pair into the file.
type Location struct {
	Offset uint64
	Size   uint64
}

// SymtabLocation is the LC_SYMTAB payload. It is recorded as found and only
// checked against the file by the symbol reading stage.
type SymtabLocation struct {
	Symoff  uint32
	Nsyms   uint32
	Stroff  uint32
	Strsize uint32
}

// DyldInfoLocation is the LC_DYLD_INFO payload. LC_DYLD_EXPORTS_TRIE only
// fills ExportOff and ExportSize.
type DyldInfoLocation struct {
	RebaseOff    uint32
	RebaseSize   uint32
	BindOff      uint32
	BindSize     uint32
	WeakBindOff  uint32
	WeakBindSize uint32
	LazyBindOff  uint32
	LazyBindSize uint32
	ExportOff    uint32
	ExportSize   uint32
}

// A Slice holds what was decoded from one architecture slice. It is built up
// by DecodeLoadCommand and folded into an Info by MergeSlice.
type Slice struct {
	Index int // into Info.Archs
	Arch  Arch
	Flags Flags

	FileType    types.HeaderFileType
	HeaderFlags types.HeaderFlag

	Platform types.Platform
	MinOS    types.Version
	SDK      types.Version
	Tools    []types.BuildToolVersion

	// ZipperedPlatform is set with Flags.CatalystPlatform when the image
	// carries both macOS and macCatalyst build versions.
	ZipperedPlatform types.Platform
	ZipperedMinOS    types.Version
	ZipperedSDK      types.Version

	UUID types.UUID

	Symtab        SymtabLocation
	DyldInfo      DyldInfoLocation
	ObjCImageInfo Location
	// HasObjC is set when an ObjC image-info section or an __OBJC segment is seen.
	HasObjC bool
}

// NewSlice returns an empty slice for arch at index.
func NewSlice(index int, arch Arch) *Slice {
	return &Slice{Index: index, Arch: arch}
}

// Bit is the slice's arch mask.
func (s *Slice) Bit() ArchMask { return ArchBit(s.Index) }

// ArchUUID pairs an arch with its LC_UUID.
type ArchUUID struct {
	Arch string
	UUID types.UUID
}

// A Target is one arch/platform pair of the description.
type Target struct {
	Arch     string
	Platform types.Platform
	MinOS    types.Version
}

func (t Target) String() string {
	return fmt.Sprintf("%s-%s", t.Arch, t.Platform.Target())
}

// InfoFlags are whole-image properties taken from the Mach-O header.
type InfoFlags struct {
	FlatNamespace       bool
	NotAppExtensionSafe bool
}

// Info is the library description being accumulated across slices.
type Info struct {
	Archs   []Arch
	Targets []Target
	UUIDs   []ArchUUID

	Platform         types.Platform
	ZipperedPlatform types.Platform

	InstallName    string
	CurrentVersion types.Version
	CompatVersion  types.Version
	ParentUmbrella string

	SwiftVersion   uint32
	ObjCConstraint types.ObjCConstraint
	Flags          InfoFlags

	Reexports    []TaggedString
	Dependencies []TaggedString
	Clients      []TaggedString
	Rpaths       []TaggedString

	Symbols SymbolSet

	// err is set once a FailFile platform conflict rejected the image.
	err error
}

func NewInfo() *Info { return &Info{} }

// Err returns the error that rejected the whole image, if any.
func (i *Info) Err() error { return i.err }

// AddArch appends arch and returns its index.
func (i *Info) AddArch(arch Arch) (int, error) {
	if slices.ContainsFunc(i.Archs, func(a Arch) bool { return a.CPU == arch.CPU && a.SubCPU == arch.SubCPU }) {
		return -1, errors.Wrap(ErrDuplicateArch, arch.Name)
	}
	if len(i.Archs) >= MaxArchs {
		return -1, ErrTooManyArchs
	}
	i.Archs = append(i.Archs, arch)
	return len(i.Archs) - 1, nil
}

// ArchNames lists the arch names in m.
func (i *Info) ArchNames(m ArchMask) []string {
	var out []string
	for _, idx := range m.Indexes() {
		if idx < len(i.Archs) {
			out = append(out, i.Archs[idx].Name)
		}
	}
	return out
}

// identity returns an empty Info carrying only i's identification, so that
// a slice decoded into it is checked against earlier slices.
func (i *Info) identity() *Info {
	return &Info{
		InstallName:    i.InstallName,
		CurrentVersion: i.CurrentVersion,
		CompatVersion:  i.CompatVersion,
		ParentUmbrella: i.ParentUmbrella,
	}
}

// MergeSlice records the per-slice state of s, whose arch must already be at
// s.Index. A platform that disagrees with the one already recorded leaves i
// unchanged and returns ErrConflictingPlatform.
func (i *Info) MergeSlice(s *Slice) error {
	if s.Index < 0 || s.Index >= len(i.Archs) {
		return errors.Errorf("slice index %d out of range (%d archs)", s.Index, len(i.Archs))
	}
	if err := i.checkPlatform(s.Platform, s.ZipperedPlatform); err != nil {
		return err
	}
	if i.Platform == types.PlatformUnknown {
		i.Platform = s.Platform
	}
	if s.ZipperedPlatform != types.PlatformUnknown {
		i.ZipperedPlatform = s.ZipperedPlatform
	}
	if s.Platform != types.PlatformUnknown {
		i.Targets = append(i.Targets, Target{Arch: s.Arch.Name, Platform: s.Platform, MinOS: s.MinOS})
	}
	if s.ZipperedPlatform != types.PlatformUnknown {
		i.Targets = append(i.Targets, Target{Arch: s.Arch.Name, Platform: s.ZipperedPlatform, MinOS: s.ZipperedMinOS})
	}
	if s.Flags.UUID {
		i.UUIDs = append(i.UUIDs, ArchUUID{Arch: s.Arch.Name, UUID: s.UUID})
	}
	if !s.HeaderFlags.TwoLevel() {
		i.Flags.FlatNamespace = true
	}
	if !s.HeaderFlags.AppExtensionSafe() {
		i.Flags.NotAppExtensionSafe = true
	}
	return nil
}

// checkPlatform reports whether a slice built for p (and the zippered
// variant z) may join i.
func (i *Info) checkPlatform(p, z types.Platform) error {
	if i.Platform == types.PlatformUnknown || p == types.PlatformUnknown {
		return nil
	}
	if p != i.Platform {
		return errors.Wrapf(ErrConflictingPlatform, "slice is %s, image is %s", p, i.Platform)
	}
	if z != types.PlatformUnknown && i.ZipperedPlatform != types.PlatformUnknown && z != i.ZipperedPlatform {
		return errors.Wrapf(ErrConflictingPlatform, "slice is zippered with %s, image with %s", z, i.ZipperedPlatform)
	}
	return nil
}

// Merge folds other, built separately (typically by another goroutine), into
// i. Arch indexes of other are renumbered after i's. Nothing is changed when
// an error is returned. When strict is false conflicting identification keeps
// the value already in i.
func (i *Info) Merge(other *Info, strict bool) error {
	if other.err != nil {
		return other.err
	}
	if err := i.checkPlatform(other.Platform, other.ZipperedPlatform); err != nil {
		return err
	}
	if strict {
		if err := i.checkIdentity(other); err != nil {
			return err
		}
	}
	if len(i.Archs)+len(other.Archs) > MaxArchs {
		return ErrTooManyArchs
	}
	for _, a := range other.Archs {
		if slices.ContainsFunc(i.Archs, func(b Arch) bool { return a.CPU == b.CPU && a.SubCPU == b.SubCPU }) {
			return errors.Wrap(ErrDuplicateArch, a.Name)
		}
	}

	to := make([]int, len(other.Archs))
	for n, a := range other.Archs {
		to[n] = len(i.Archs)
		i.Archs = append(i.Archs, a)
	}

	if i.Platform == types.PlatformUnknown {
		i.Platform = other.Platform
	}
	if i.ZipperedPlatform == types.PlatformUnknown {
		i.ZipperedPlatform = other.ZipperedPlatform
	}
	i.Targets = append(i.Targets, other.Targets...)
	i.UUIDs = append(i.UUIDs, other.UUIDs...)

	if i.InstallName == "" {
		i.InstallName = other.InstallName
		i.CurrentVersion = other.CurrentVersion
		i.CompatVersion = other.CompatVersion
	}
	if i.ParentUmbrella == "" {
		i.ParentUmbrella = other.ParentUmbrella
	}
	if i.SwiftVersion == 0 {
		i.SwiftVersion = other.SwiftVersion
	}
	if i.ObjCConstraint == types.ObjCConstraintNone {
		i.ObjCConstraint = other.ObjCConstraint
	}
	i.Flags.FlatNamespace = i.Flags.FlatNamespace || other.Flags.FlatNamespace
	i.Flags.NotAppExtensionSafe = i.Flags.NotAppExtensionSafe || other.Flags.NotAppExtensionSafe

	i.Reexports = mergeTagged(i.Reexports, other.Reexports, to)
	i.Dependencies = mergeTagged(i.Dependencies, other.Dependencies, to)
	i.Clients = mergeTagged(i.Clients, other.Clients, to)
	i.Rpaths = mergeTagged(i.Rpaths, other.Rpaths, to)
	i.Symbols.merge(&other.Symbols, to)
	return nil
}

func (i *Info) checkIdentity(other *Info) error {
	if i.InstallName != "" && other.InstallName != "" {
		if i.InstallName != other.InstallName {
			return errors.Wrapf(ErrConflictingIdentification, "install name %q vs %q", other.InstallName, i.InstallName)
		}
		if i.CurrentVersion != other.CurrentVersion || i.CompatVersion != other.CompatVersion {
			return errors.Wrapf(ErrConflictingIdentification, "versions of %s", i.InstallName)
		}
	}
	if i.ParentUmbrella != "" && other.ParentUmbrella != "" && i.ParentUmbrella != other.ParentUmbrella {
		return errors.Wrapf(ErrConflictingIdentification, "parent umbrella %q vs %q", other.ParentUmbrella, i.ParentUmbrella)
	}
	return nil
}

// Fold merges other into i under cfg's platform conflict policy: with
// FailFile a conflicting platform rejects i for good.
func (i *Info) Fold(other *Info, cfg Config) error {
	if i.err != nil {
		return i.err
	}
	err := i.Merge(other, cfg.Strict)
	if errors.Is(err, ErrConflictingPlatform) && cfg.PlatformConflict == FailFile {
		i.err = err
	}
	return err
}

// ApplyReplacements overrides parsed values with the non-zero replacements in cfg.
func (i *Info) ApplyReplacements(cfg Config) {
	if cfg.ReplaceInstallName != "" {
		i.InstallName = cfg.ReplaceInstallName
	}
	if cfg.ReplaceCurrentVersion != 0 {
		i.CurrentVersion = cfg.ReplaceCurrentVersion
	}
	if cfg.ReplaceCompatVersion != 0 {
		i.CompatVersion = cfg.ReplaceCompatVersion
	}
	if cfg.ReplacePlatform != types.PlatformUnknown {
		i.Platform = cfg.ReplacePlatform
		i.ZipperedPlatform = types.PlatformUnknown
		var targets []Target
		for _, t := range i.Targets {
			if slices.ContainsFunc(targets, func(o Target) bool { return o.Arch == t.Arch }) {
				continue
			}
			t.Platform = cfg.ReplacePlatform
			targets = append(targets, t)
		}
		i.Targets = targets
	}
}
