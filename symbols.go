package tbd

import (
	"fmt"
	"math/bits"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MaxArchs is the number of architectures an ArchMask can address.
const MaxArchs = 64

// ArchMask has bit i set when the value is present in Info.Archs[i].
type ArchMask uint64

// ArchBit returns the mask for arch index i.
func ArchBit(i int) ArchMask {
	if i < 0 || i >= MaxArchs {
		return 0
	}
	return 1 << uint(i)
}

func (m ArchMask) Has(i int) bool { return m&ArchBit(i) != 0 }

// Indexes returns the arch indexes set in m in ascending order.
func (m ArchMask) Indexes() []int {
	var out []int
	for m != 0 {
		i := bits.TrailingZeros64(uint64(m))
		out = append(out, i)
		m &^= 1 << uint(i)
	}
	return out
}

// remap moves every bit i of m to to[i].
func (m ArchMask) remap(to []int) ArchMask {
	var out ArchMask
	for _, i := range m.Indexes() {
		if i < len(to) {
			out |= ArchBit(to[i])
		}
	}
	return out
}

type SymbolKind uint8

const (
	KindRegular SymbolKind = iota
	KindWeak
	KindThreadLocal
	KindObjCClass
	KindObjCEHType
	KindObjCIvar
)

var symbolKindStrings = [...]string{
	KindRegular:     "symbols",
	KindWeak:        "weak-symbols",
	KindThreadLocal: "thread-local-symbols",
	KindObjCClass:   "objc-classes",
	KindObjCEHType:  "objc-eh-types",
	KindObjCIvar:    "objc-ivars",
}

func (k SymbolKind) String() string {
	if int(k) < len(symbolKindStrings) {
		return symbolKindStrings[k]
	}
	return fmt.Sprintf("SymbolKind(%d)", k)
}

type SymbolFlags uint8

const (
	SymbolWeakDefined SymbolFlags = 1 << iota
	SymbolThreadLocal
	SymbolUndefinedOK
	SymbolAbsolute
	SymbolResolver
	SymbolReexport
)

func (f SymbolFlags) WeakDefined() bool { return f&SymbolWeakDefined != 0 }
func (f SymbolFlags) ThreadLocal() bool { return f&SymbolThreadLocal != 0 }

func (f SymbolFlags) String() string {
	var out []string
	for _, n := range []struct {
		f SymbolFlags
		s string
	}{
		{SymbolWeakDefined, "weak-def"},
		{SymbolThreadLocal, "thread-local"},
		{SymbolUndefinedOK, "undefined-ok"},
		{SymbolAbsolute, "absolute"},
		{SymbolResolver, "resolver"},
		{SymbolReexport, "reexport"},
	} {
		if f&n.f != 0 {
			out = append(out, n.s)
		}
	}
	return strings.Join(out, "|")
}

// A Symbol is one exported name and the architectures that export it.
type Symbol struct {
	Name  string
	Kind  SymbolKind
	Flags SymbolFlags
	Archs ArchMask
}

const (
	objcClassPrefix     = "_OBJC_CLASS_$_"
	objcMetaclassPrefix = "_OBJC_METACLASS_$_"
	objcEHTypePrefix    = "_OBJC_EHTYPE_$_"
	objcIvarPrefix      = "_OBJC_IVAR_$_"
	objc1ClassPrefix    = ".objc_class_name_"
)

// ClassifySymbol maps a raw exported name to the name and kind it is listed
// under. ObjC names lose their prefix so a class and its metaclass collapse.
func ClassifySymbol(name string, flags SymbolFlags) (string, SymbolKind) {
	for _, p := range []struct {
		prefix string
		kind   SymbolKind
	}{
		{objcClassPrefix, KindObjCClass},
		{objcMetaclassPrefix, KindObjCClass},
		{objc1ClassPrefix, KindObjCClass},
		{objcEHTypePrefix, KindObjCEHType},
		{objcIvarPrefix, KindObjCIvar},
	} {
		if rest, ok := strings.CutPrefix(name, p.prefix); ok && rest != "" {
			return rest, p.kind
		}
	}
	switch {
	case flags.ThreadLocal():
		return name, KindThreadLocal
	case flags.WeakDefined():
		return name, KindWeak
	}
	return name, KindRegular
}

type symbolKey struct {
	name string
	kind SymbolKind
}

// SymbolSet is the exported-symbol set of an Info. It only grows: adding a
// symbol that is already present ORs its arch mask and flags.
type SymbolSet struct {
	m map[symbolKey]*Symbol
}

// Add classifies name and records it for archs.
func (ss *SymbolSet) Add(name string, flags SymbolFlags, archs ArchMask) {
	n, kind := ClassifySymbol(name, flags)
	ss.add(Symbol{Name: n, Kind: kind, Flags: flags, Archs: archs})
}

func (ss *SymbolSet) add(sym Symbol) {
	if ss.m == nil {
		ss.m = make(map[symbolKey]*Symbol)
	}
	k := symbolKey{sym.Name, sym.Kind}
	if have, ok := ss.m[k]; ok {
		have.Archs |= sym.Archs
		have.Flags |= sym.Flags
		return
	}
	ss.m[k] = &sym
}

// Lookup returns the symbol listed as name under kind.
func (ss *SymbolSet) Lookup(name string, kind SymbolKind) (Symbol, bool) {
	if s, ok := ss.m[symbolKey{name, kind}]; ok {
		return *s, true
	}
	return Symbol{}, false
}

func (ss *SymbolSet) Len() int { return len(ss.m) }

// Symbols returns a copy of the set ordered by kind then name.
func (ss *SymbolSet) Symbols() []Symbol {
	keys := maps.Keys(ss.m)
	slices.SortFunc(keys, func(a, b symbolKey) int {
		if a.kind != b.kind {
			return int(a.kind) - int(b.kind)
		}
		return strings.Compare(a.name, b.name)
	})
	out := make([]Symbol, 0, len(keys))
	for _, k := range keys {
		out = append(out, *ss.m[k])
	}
	return out
}

func (ss *SymbolSet) merge(other *SymbolSet, to []int) {
	for _, s := range other.m {
		sym := *s
		sym.Archs = s.Archs.remap(to)
		ss.add(sym)
	}
}

// A TaggedString is a string value (path, client name) and the architectures
// it was found in.
type TaggedString struct {
	Value string
	Archs ArchMask
}

func addTagged(list []TaggedString, v string, archs ArchMask) []TaggedString {
	for i := range list {
		if list[i].Value == v {
			list[i].Archs |= archs
			return list
		}
	}
	return append(list, TaggedString{Value: v, Archs: archs})
}

func mergeTagged(dst, src []TaggedString, to []int) []TaggedString {
	for _, t := range src {
		dst = addTagged(dst, t.Value, t.Archs.remap(to))
	}
	return dst
}
