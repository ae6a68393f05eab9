package tbd

import (
	"github.com/appsworld/go-tbd/pkg/overflow"
	"github.com/appsworld/go-tbd/types"
)

// Outcome reports what DecodeLoadCommand did with a record.
type Outcome uint8

const (
	// Skipped records were not of interest, or were benign repeats; nothing changed.
	Skipped Outcome = iota
	// Decoded records changed the slice or the info.
	Decoded
)

func (o Outcome) String() string {
	if o == Decoded {
		return "decoded"
	}
	return "skipped"
}

type commandKind uint8

const (
	kindUnknown commandKind = iota
	kindBuildVersion
	kindVersionMin
	kindIdentification
	kindUUID
	kindSymtab
	kindDyldInfo
	kindExportsTrie
	kindReexport
	kindDependency
	kindSubClient
	kindSubFramework
	kindRpath
	kindSegment32
	kindSegment64
	numCommandKinds
)

func classify(cmd types.LoadCmd) commandKind {
	switch cmd {
	case types.LC_BUILD_VERSION:
		return kindBuildVersion
	case types.LC_VERSION_MIN_MACOSX, types.LC_VERSION_MIN_IPHONEOS,
		types.LC_VERSION_MIN_TVOS, types.LC_VERSION_MIN_WATCHOS:
		return kindVersionMin
	case types.LC_ID_DYLIB:
		return kindIdentification
	case types.LC_UUID:
		return kindUUID
	case types.LC_SYMTAB:
		return kindSymtab
	case types.LC_DYLD_INFO, types.LC_DYLD_INFO_ONLY:
		return kindDyldInfo
	case types.LC_DYLD_EXPORTS_TRIE:
		return kindExportsTrie
	case types.LC_REEXPORT_DYLIB:
		return kindReexport
	case types.LC_LOAD_DYLIB, types.LC_LOAD_WEAK_DYLIB,
		types.LC_LAZY_LOAD_DYLIB, types.LC_LOAD_UPWARD_DYLIB:
		return kindDependency
	case types.LC_SUB_CLIENT:
		return kindSubClient
	case types.LC_SUB_FRAMEWORK:
		return kindSubFramework
	case types.LC_RPATH:
		return kindRpath
	case types.LC_SEGMENT:
		return kindSegment32
	case types.LC_SEGMENT_64:
		return kindSegment64
	}
	return kindUnknown
}

// handlers is indexed by commandKind; every kind but kindUnknown has one.
var handlers = [numCommandKinds]func(*decoder) (Outcome, error){
	kindBuildVersion:   (*decoder).buildVersion,
	kindVersionMin:     (*decoder).versionMin,
	kindIdentification: (*decoder).identification,
	kindUUID:           (*decoder).uuid,
	kindSymtab:         (*decoder).symtab,
	kindDyldInfo:       (*decoder).dyldInfo,
	kindExportsTrie:    (*decoder).exportsTrie,
	kindReexport:       (*decoder).reexport,
	kindDependency:     (*decoder).dependency,
	kindSubClient:      (*decoder).subClient,
	kindSubFramework:   (*decoder).subFramework,
	kindRpath:          (*decoder).rpath,
	kindSegment32:      (*decoder).segment32,
	kindSegment64:      (*decoder).segment64,
}

type decoder struct {
	view
	s    *Slice
	info *Info
	opts Options
}

// DecodeLoadCommand decodes one load command into slice and info.
//
// Commands that carry nothing of interest are Skipped. Structural and
// arithmetic problems are always returned as a *DecodeError; the caller
// decides whether to stop or carry on with the next record. Whatever the
// outcome of a failed call, slice and info are left exactly as they were.
func DecodeLoadCommand(rec Record, slice *Slice, info *Info, opts Options) (Outcome, error) {
	kind := classify(rec.Cmd)
	if kind == kindUnknown {
		return Skipped, nil
	}
	v, err := newView(rec, opts)
	if err != nil {
		return Skipped, err
	}
	d := decoder{view: v, s: slice, info: info, opts: opts}
	return handlers[kind](&d)
}

// soft handles an irregularity that strict mode rejects and lenient mode skips.
func (d *decoder) soft(field string, val any) (Outcome, error) {
	if d.opts.Strict {
		return Skipped, d.fail(field, val, ErrStrictViolation)
	}
	return Skipped, nil
}

// claimPlatform decides whether p may be recorded for the slice. zippered is
// true when p completes the macOS/macCatalyst pair.
func (d *decoder) claimPlatform(p types.Platform) (zippered bool, err error) {
	s := d.s
	switch {
	case s.Platform == types.PlatformUnknown, s.Platform == p:
		return false, nil
	case s.Flags.CatalystPlatform && p == s.ZipperedPlatform:
		return false, nil
	case !s.Flags.CatalystPlatform && types.Zippered(s.Platform, p):
		return true, nil
	}
	return false, d.fail("platform", p, ErrConflictingPlatform)
}

// zipper records the second half of a macOS/macCatalyst pair, keeping macOS
// as the slice's primary platform.
func (d *decoder) zipper(p types.Platform, minos, sdk types.Version) {
	s := d.s
	if p == types.PlatformMacOS {
		s.Platform, s.ZipperedPlatform = p, s.Platform
		s.MinOS, s.ZipperedMinOS = minos, s.MinOS
		s.SDK, s.ZipperedSDK = sdk, s.SDK
	} else {
		s.ZipperedPlatform, s.ZipperedMinOS, s.ZipperedSDK = p, minos, sdk
	}
	s.Flags.CatalystPlatform = true
}

func (d *decoder) buildVersion() (Outcome, error) {
	var bv types.BuildVersionCmd
	if err := d.read(&bv, types.BuildVersionCmdSize); err != nil {
		return Skipped, err
	}
	toolsSize, err := overflow.Mul32(bv.NumTools, types.BuildToolSize)
	if err != nil {
		return Skipped, d.fail("ntools", bv.NumTools, ErrOverflow)
	}
	if _, err := overflow.End32(types.BuildVersionCmdSize, toolsSize, d.rec.Len); err != nil {
		return Skipped, d.fail("ntools", bv.NumTools, boundsErr(err))
	}
	if !bv.Platform.Known() {
		return d.soft("platform", uint32(bv.Platform))
	}
	zippered, err := d.claimPlatform(bv.Platform)
	if err != nil {
		return Skipped, err
	}
	if !zippered && d.s.Flags.BuildVersion {
		return d.soft("duplicate", bv.Platform)
	}

	tools := make([]types.BuildToolVersion, bv.NumTools)
	for i := range tools {
		off := types.BuildVersionCmdSize + uint32(i)*types.BuildToolSize
		if err := d.readAt(off, types.BuildToolSize, &tools[i], "tools"); err != nil {
			return Skipped, err
		}
	}

	if zippered {
		d.zipper(bv.Platform, bv.Minos, bv.Sdk)
		return Decoded, nil
	}
	d.s.Platform = bv.Platform
	d.s.MinOS = bv.Minos
	d.s.SDK = bv.Sdk
	d.s.Tools = tools
	d.s.Flags.BuildVersion = true
	return Decoded, nil
}

// versionMinPlatform maps a LC_VERSION_MIN_* command to its platform. The
// embedded platforms built for an Intel cpu are simulators.
func versionMinPlatform(cmd types.LoadCmd, cpu types.CPU) types.Platform {
	var p types.Platform
	switch cmd {
	case types.LC_VERSION_MIN_MACOSX:
		return types.PlatformMacOS
	case types.LC_VERSION_MIN_IPHONEOS:
		p = types.PlatformIOS
	case types.LC_VERSION_MIN_TVOS:
		p = types.PlatformTvOS
	case types.LC_VERSION_MIN_WATCHOS:
		p = types.PlatformWatchOS
	}
	if cpu.IsX86() {
		return p.Simulator()
	}
	return p
}

func (d *decoder) versionMin() (Outcome, error) {
	var vm types.VersionMinCmd
	if err := d.read(&vm, types.VersionMinCmdSize); err != nil {
		return Skipped, err
	}
	p := versionMinPlatform(d.rec.Cmd, d.s.Arch.CPU)
	zippered, err := d.claimPlatform(p)
	if err != nil {
		return Skipped, err
	}
	if zippered {
		d.zipper(p, vm.Version, vm.Sdk)
		return Decoded, nil
	}
	if d.s.Platform != types.PlatformUnknown {
		// Already known from LC_BUILD_VERSION or an earlier LC_VERSION_MIN_*.
		return Skipped, nil
	}
	d.s.Platform = p
	d.s.MinOS = vm.Version
	d.s.SDK = vm.Sdk
	return Decoded, nil
}

func (d *decoder) uuid() (Outcome, error) {
	var uc types.UUIDCmd
	if err := d.read(&uc, types.UUIDCmdSize); err != nil {
		return Skipped, err
	}
	if d.s.Flags.UUID {
		return d.soft("duplicate", uc.UUID)
	}
	d.s.UUID = uc.UUID
	d.s.Flags.UUID = true
	return Decoded, nil
}

func (d *decoder) symtab() (Outcome, error) {
	var st types.SymtabCmd
	if err := d.read(&st, types.SymtabCmdSize); err != nil {
		return Skipped, err
	}
	d.s.Symtab = SymtabLocation{
		Symoff:  st.Symoff,
		Nsyms:   st.Nsyms,
		Stroff:  st.Stroff,
		Strsize: st.Strsize,
	}
	return Decoded, nil
}

func (d *decoder) dyldInfo() (Outcome, error) {
	var di types.DyldInfoCmd
	if err := d.read(&di, types.DyldInfoCmdSize); err != nil {
		return Skipped, err
	}
	d.s.DyldInfo = DyldInfoLocation{
		RebaseOff:    di.RebaseOff,
		RebaseSize:   di.RebaseSize,
		BindOff:      di.BindOff,
		BindSize:     di.BindSize,
		WeakBindOff:  di.WeakBindOff,
		WeakBindSize: di.WeakBindSize,
		LazyBindOff:  di.LazyBindOff,
		LazyBindSize: di.LazyBindSize,
		ExportOff:    di.ExportOff,
		ExportSize:   di.ExportSize,
	}
	return Decoded, nil
}

func (d *decoder) exportsTrie() (Outcome, error) {
	var led types.LinkEditDataCmd
	if err := d.read(&led, types.LinkEditDataCmdSize); err != nil {
		return Skipped, err
	}
	d.s.DyldInfo.ExportOff = led.Offset
	d.s.DyldInfo.ExportSize = led.Size
	return Decoded, nil
}
