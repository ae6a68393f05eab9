package cmd

import (
	tbd "github.com/appsworld/go-tbd"
	"github.com/appsworld/go-tbd/types"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// description is a YAML view of a parsed tbd.Info. It mirrors the layout of a
// v4 stub file but is only meant for inspection.
type description struct {
	Targets         []string      `yaml:"targets,flow"`
	UUIDs           []archUUID    `yaml:"uuids,omitempty"`
	InstallName     string        `yaml:"install-name"`
	CurrentVersion  string        `yaml:"current-version,omitempty"`
	CompatVersion   string        `yaml:"compatibility-version,omitempty"`
	SwiftABIVersion uint32        `yaml:"swift-abi-version,omitempty"`
	ObjCConstraint  string        `yaml:"objc-constraint,omitempty"`
	ParentUmbrella  string        `yaml:"parent-umbrella,omitempty"`
	Flags           []string      `yaml:"flags,flow,omitempty"`
	Clients         []stringGroup `yaml:"allowable-clients,omitempty"`
	Reexports       []stringGroup `yaml:"reexported-libraries,omitempty"`
	Dependencies    []stringGroup `yaml:"dependencies,omitempty"`
	Rpaths          []stringGroup `yaml:"rpaths,omitempty"`
	Exports         []symbolGroup `yaml:"exports,omitempty"`
}

type archUUID struct {
	Target string `yaml:"target"`
	Value  string `yaml:"value"`
}

type stringGroup struct {
	Targets []string `yaml:"targets,flow"`
	Values  []string `yaml:"libraries,flow"`
}

type symbolGroup struct {
	Targets     []string `yaml:"targets,flow"`
	Symbols     []string `yaml:"symbols,flow,omitempty"`
	WeakSymbols []string `yaml:"weak-symbols,flow,omitempty"`
	TLVSymbols  []string `yaml:"thread-local-symbols,flow,omitempty"`
	ObjCClasses []string `yaml:"objc-classes,flow,omitempty"`
	ObjCEHTypes []string `yaml:"objc-eh-types,flow,omitempty"`
	ObjCIvars   []string `yaml:"objc-ivars,flow,omitempty"`
}

func (g *symbolGroup) add(s tbd.Symbol) {
	switch s.Kind {
	case tbd.KindWeak:
		g.WeakSymbols = append(g.WeakSymbols, s.Name)
	case tbd.KindThreadLocal:
		g.TLVSymbols = append(g.TLVSymbols, s.Name)
	case tbd.KindObjCClass:
		g.ObjCClasses = append(g.ObjCClasses, s.Name)
	case tbd.KindObjCEHType:
		g.ObjCEHTypes = append(g.ObjCEHTypes, s.Name)
	case tbd.KindObjCIvar:
		g.ObjCIvars = append(g.ObjCIvars, s.Name)
	default:
		g.Symbols = append(g.Symbols, s.Name)
	}
}

// targetNames lists the "arch-platform" names of the archs in m.
func targetNames(info *tbd.Info, m tbd.ArchMask) []string {
	var out []string
	for _, arch := range info.ArchNames(m) {
		for _, t := range info.Targets {
			if t.Arch == arch {
				out = append(out, t.String())
			}
		}
		if !slices.ContainsFunc(info.Targets, func(t tbd.Target) bool { return t.Arch == arch }) {
			out = append(out, arch)
		}
	}
	return out
}

// sortedMasks returns the keys of m ordered so that masks covering more archs
// come first, ties broken by value.
func sortedMasks[V any](m map[tbd.ArchMask]V) []tbd.ArchMask {
	masks := maps.Keys(m)
	slices.SortFunc(masks, func(a, b tbd.ArchMask) int {
		if na, nb := len(a.Indexes()), len(b.Indexes()); na != nb {
			return nb - na
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})
	return masks
}

func groupStrings(info *tbd.Info, list []tbd.TaggedString) []stringGroup {
	byMask := make(map[tbd.ArchMask][]string)
	for _, ts := range list {
		byMask[ts.Archs] = append(byMask[ts.Archs], ts.Value)
	}
	var out []stringGroup
	for _, m := range sortedMasks(byMask) {
		vals := byMask[m]
		slices.Sort(vals)
		out = append(out, stringGroup{Targets: targetNames(info, m), Values: vals})
	}
	return out
}

func describe(info *tbd.Info) description {
	d := description{
		InstallName:     info.InstallName,
		SwiftABIVersion: info.SwiftVersion,
		ParentUmbrella:  info.ParentUmbrella,
		Clients:         groupStrings(info, info.Clients),
		Reexports:       groupStrings(info, info.Reexports),
		Dependencies:    groupStrings(info, info.Dependencies),
		Rpaths:          groupStrings(info, info.Rpaths),
	}
	for _, t := range info.Targets {
		d.Targets = append(d.Targets, t.String())
	}
	for _, u := range info.UUIDs {
		target := u.Arch
		if info.Platform != types.PlatformUnknown {
			target += "-" + info.Platform.Target()
		}
		d.UUIDs = append(d.UUIDs, archUUID{Target: target, Value: u.UUID.String()})
	}
	if info.CurrentVersion != 0 {
		d.CurrentVersion = info.CurrentVersion.String()
	}
	if info.CompatVersion != 0 {
		d.CompatVersion = info.CompatVersion.String()
	}
	if info.ObjCConstraint != types.ObjCConstraintNone {
		d.ObjCConstraint = info.ObjCConstraint.String()
	}
	if info.Flags.FlatNamespace {
		d.Flags = append(d.Flags, "flat_namespace")
	}
	if info.Flags.NotAppExtensionSafe {
		d.Flags = append(d.Flags, "not_app_extension_safe")
	}

	byMask := make(map[tbd.ArchMask]*symbolGroup)
	for _, s := range info.Symbols.Symbols() {
		g, ok := byMask[s.Archs]
		if !ok {
			g = &symbolGroup{}
			byMask[s.Archs] = g
		}
		g.add(s)
	}
	for _, m := range sortedMasks(byMask) {
		g := byMask[m]
		g.Targets = targetNames(info, m)
		d.Exports = append(d.Exports, *g)
	}
	return d
}
