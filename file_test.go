package tbd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/appsworld/go-tbd/types"
)

const fooInstallName = "/usr/lib/libfoo.dylib"

var (
	uuidX86   = types.UUID{0x11, 0x11, 0x11, 0x11}
	uuidArm64 = types.UUID{0x22, 0x22, 0x22, 0x22}
)

// dylibImage is a macOS dylib exporting syms through its symbol table.
func dylibImage(cpu types.CPU, sub types.CPUSubtype, u types.UUID, p types.Platform, syms ...testSym) testImage {
	return testImage{
		cpu:   cpu,
		sub:   sub,
		flags: types.TwoLevel | types.AppExtensionSafe,
		syms:  syms,
		cmds: func(b *cmdBuilder, le linkedit) {
			b.segment64("__TEXT", testSection{"__TEXT", "__text", 0x1000, 0x10}).
				idDylib(fooInstallName, v1_2_3, 0x10000).
				buildVersion(p, v10_15, v14_0).
				uuid(u).
				dylib(types.LC_LOAD_DYLIB, "/usr/lib/libSystem.B.dylib").
				symtab(le.symOff, le.nsyms, le.strOff, le.strSize)
		},
	}
}

func parse(t *testing.T, im testImage, info *Info, cfg Config) (*Slice, error) {
	t.Helper()
	dat := im.build(t)
	return ParseSlice(bytes.NewReader(dat), int64(len(dat)), info, cfg)
}

func TestParseSliceTwoArchs(t *testing.T) {
	info := NewInfo()
	x86 := dylibImage(types.CPUAmd64, types.CPUSubtypeX86All, uuidX86, types.PlatformMacOS,
		extSym("_foo"), extSym("_bar"))
	arm := dylibImage(types.CPUArm64, types.CPUSubtypeArm64All, uuidArm64, types.PlatformMacOS,
		extSym("_bar"), extSym("_baz"))

	s1, err := parse(t, x86, info, Config{})
	if err != nil {
		t.Fatalf("x86_64: %v", err)
	}
	s2, err := parse(t, arm, info, Config{})
	if err != nil {
		t.Fatalf("arm64: %v", err)
	}
	if s1.Index != 0 || s2.Index != 1 {
		t.Errorf("indexes: have %d, %d", s1.Index, s2.Index)
	}

	wantSyms := []Symbol{
		{Name: "_bar", Archs: 0b11},
		{Name: "_baz", Archs: 0b10},
		{Name: "_foo", Archs: 0b01},
	}
	if diff := cmp.Diff(wantSyms, info.Symbols.Symbols()); diff != "" {
		t.Errorf("symbols (-want +have):\n%s", diff)
	}
	if info.Platform != types.PlatformMacOS {
		t.Errorf("platform: have %s", info.Platform)
	}
	wantUUIDs := []ArchUUID{{"x86_64", uuidX86}, {"arm64", uuidArm64}}
	if diff := cmp.Diff(wantUUIDs, info.UUIDs); diff != "" {
		t.Errorf("uuids (-want +have):\n%s", diff)
	}
	if info.InstallName != fooInstallName || info.CurrentVersion != v1_2_3 || info.CompatVersion != 0x10000 {
		t.Errorf("identification: have %q %s %s", info.InstallName, info.CurrentVersion, info.CompatVersion)
	}
	if diff := cmp.Diff([]TaggedString{{"/usr/lib/libSystem.B.dylib", 0b11}}, info.Dependencies); diff != "" {
		t.Errorf("dependencies (-want +have):\n%s", diff)
	}
	if info.Flags != (InfoFlags{}) {
		t.Errorf("flags: have %+v", info.Flags)
	}
	if len(info.Targets) != 2 || info.Targets[0].String() != "x86_64-macos" || info.Targets[1].String() != "arm64-macos" {
		t.Errorf("targets: have %v", info.Targets)
	}
}

func TestParseSliceSymtabFilter(t *testing.T) {
	im := dylibImage(types.CPUArm64, types.CPUSubtypeArm64All, uuidArm64, types.PlatformMacOS,
		extSym("_public"),
		testSym{name: "_weak", typ: types.N_SECT | types.N_EXT, desc: types.N_WEAK_DEF},
		testSym{name: "_abs", typ: types.N_ABS | types.N_EXT},
		testSym{name: "_private", typ: types.N_SECT | types.N_EXT | types.N_PEXT},
		testSym{name: "_local", typ: types.N_SECT},
		testSym{name: "_undefined", typ: types.N_UNDF | types.N_EXT},
		testSym{name: "_stab", typ: 0x24},
		extSym("_OBJC_CLASS_$_Foo"),
		extSym("_OBJC_METACLASS_$_Foo"),
		extSym("_OBJC_IVAR_$_Foo._x"),
	)

	info := NewInfo()
	if _, err := parse(t, im, info, Config{}); err != nil {
		t.Fatal(err)
	}
	want := []Symbol{
		{Name: "_public", Archs: 1},
		{Name: "_abs", Flags: SymbolAbsolute, Archs: 1},
		{Name: "_weak", Kind: KindWeak, Flags: SymbolWeakDefined, Archs: 1},
		{Name: "Foo", Kind: KindObjCClass, Archs: 1},
		{Name: "Foo._x", Kind: KindObjCIvar, Archs: 1},
	}
	// Symbols sort by kind then name.
	want[0], want[1] = want[1], want[0]
	if diff := cmp.Diff(want, info.Symbols.Symbols()); diff != "" {
		t.Errorf("symbols (-want +have):\n%s", diff)
	}

	info = NewInfo()
	if _, err := parse(t, im, info, Config{AllowPrivate: true}); err != nil {
		t.Fatal(err)
	}
	if _, ok := info.Symbols.Lookup("_private", KindRegular); !ok {
		t.Error("AllowPrivate: _private missing")
	}
}

func TestParseSliceExportTrie(t *testing.T) {
	im := testImage{
		cpu:   types.CPUArm64,
		sub:   types.CPUSubtypeArm64E,
		flags: types.TwoLevel,
		trie: flatTrie(
			trieSym{"_foo", types.EXPORT_SYMBOL_FLAGS_KIND_REGULAR, 0x4000},
			trieSym{"_weak", types.EXPORT_SYMBOL_FLAGS_WEAK_DEFINITION, 0x4010},
			trieSym{"_tlv", types.EXPORT_SYMBOL_FLAGS_KIND_THREAD_LOCAL, 0x8000},
			trieSym{"_OBJC_EHTYPE_$_Err", 0, 0x9000},
		),
		// The symbol table is ignored when there is an export trie.
		syms: []testSym{extSym("_from_symtab")},
		cmds: func(b *cmdBuilder, le linkedit) {
			b.idDylib(fooInstallName, v1_2_3, v1_2_3).
				buildVersion(types.PlatformIOS, v13_1, v14_0).
				symtab(le.symOff, le.nsyms, le.strOff, le.strSize).
				exportsTrie(le.trieOff, le.trieSize)
		},
	}
	info := NewInfo()
	s, err := parse(t, im, info, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Arch.Name != "arm64e" {
		t.Errorf("arch: have %s", s.Arch.Name)
	}
	want := []Symbol{
		{Name: "_foo", Archs: 1},
		{Name: "_weak", Kind: KindWeak, Flags: SymbolWeakDefined, Archs: 1},
		{Name: "_tlv", Kind: KindThreadLocal, Flags: SymbolThreadLocal, Archs: 1},
		{Name: "Err", Kind: KindObjCEHType, Archs: 1},
	}
	if diff := cmp.Diff(want, info.Symbols.Symbols()); diff != "" {
		t.Errorf("symbols (-want +have):\n%s", diff)
	}
	if !info.Flags.NotAppExtensionSafe || info.Flags.FlatNamespace {
		t.Errorf("flags: have %+v", info.Flags)
	}
}

func TestParseSliceBigEndian32(t *testing.T) {
	im := testImage{
		cpu:       types.CPUPpc,
		bigEndian: true,
		is32:      true,
		syms:      []testSym{extSym("_ppc")},
		cmds: func(b *cmdBuilder, le linkedit) {
			b.segment32("__OBJC", testSection{"__OBJC", "__image_info", le.objcOff, 8}).
				idDylib(fooInstallName, v1_2_3, v1_2_3).
				versionMin(types.LC_VERSION_MIN_MACOSX, 0x000a0400, 0x000a0400).
				symtab(le.symOff, le.nsyms, le.strOff, le.strSize)
		},
	}
	info := NewInfo()
	s, err := parse(t, im, info, Config{Options: Options{Strict: true}})
	if err != nil {
		t.Fatal(err)
	}
	if s.Arch.Name != "ppc" || s.Platform != types.PlatformMacOS || !s.HasObjC {
		t.Errorf("slice: have %s %s objc=%t", s.Arch.Name, s.Platform, s.HasObjC)
	}
	if _, ok := info.Symbols.Lookup("_ppc", KindRegular); !ok {
		t.Error("_ppc missing")
	}
	if !info.Flags.FlatNamespace {
		t.Error("image without MH_TWOLEVEL must be flat namespace")
	}
}

func TestParseSliceObjCImageInfo(t *testing.T) {
	im := dylibImage(types.CPUArm64, types.CPUSubtypeArm64All, uuidArm64, types.PlatformMacOS, extSym("_a"))
	im.objc = types.ObjCImageInfoFlag(7 << 8)
	base := im.cmds
	im.cmds = func(b *cmdBuilder, le linkedit) {
		base(b, le)
		b.segment64("__DATA", testSection{"__DATA", "__objc_imageinfo", le.objcOff, 8})
	}
	info := NewInfo()
	s, err := parse(t, im, info, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if !s.HasObjC {
		t.Error("HasObjC not set")
	}
	if info.SwiftVersion != 7 || info.ObjCConstraint != types.ObjCConstraintRetainRelease {
		t.Errorf("have swift %d constraint %s", info.SwiftVersion, info.ObjCConstraint)
	}
}

func TestParseSlicePlatformConflict(t *testing.T) {
	mac := dylibImage(types.CPUAmd64, types.CPUSubtypeX86All, uuidX86, types.PlatformMacOS, extSym("_mac"))
	ios := dylibImage(types.CPUArm64, types.CPUSubtypeArm64All, uuidArm64, types.PlatformIOS, extSym("_ios"))
	arm := dylibImage(types.CPUArm64, types.CPUSubtypeArm64All, uuidArm64, types.PlatformMacOS, extSym("_arm"))

	t.Run("fail slice", func(t *testing.T) {
		info := NewInfo()
		if _, err := parse(t, mac, info, Config{}); err != nil {
			t.Fatal(err)
		}
		if _, err := parse(t, ios, info, Config{}); !errors.Is(err, ErrConflictingPlatform) {
			t.Fatalf("have %v want %v", err, ErrConflictingPlatform)
		}
		if len(info.Archs) != 1 || info.Symbols.Len() != 1 || info.Err() != nil {
			t.Errorf("rejected slice leaked into info: %v %d %v", info.Archs, info.Symbols.Len(), info.Err())
		}
		if _, err := parse(t, arm, info, Config{}); err != nil {
			t.Errorf("later slice: %v", err)
		}
	})

	t.Run("fail file", func(t *testing.T) {
		info := NewInfo()
		cfg := Config{PlatformConflict: FailFile}
		if _, err := parse(t, mac, info, cfg); err != nil {
			t.Fatal(err)
		}
		if _, err := parse(t, ios, info, cfg); !errors.Is(err, ErrConflictingPlatform) {
			t.Fatalf("have %v want %v", err, ErrConflictingPlatform)
		}
		if !errors.Is(info.Err(), ErrConflictingPlatform) {
			t.Errorf("Err: have %v", info.Err())
		}
		if _, err := parse(t, arm, info, cfg); !errors.Is(err, ErrConflictingPlatform) {
			t.Errorf("later slice: have %v", err)
		}
	})
}

func TestParseSliceLenient(t *testing.T) {
	im := dylibImage(types.CPUArm64, types.CPUSubtypeArm64All, uuidArm64, types.PlatformMacOS, extSym("_a"))
	base := im.cmds
	im.cmds = func(b *cmdBuilder, le linkedit) {
		base(b, le)
		// rpath string offset past the end of the command
		b.raw(types.LC_RPATH, b.put(uint32(0x40), uint32(0)))
		b.str(types.LC_RPATH, "@loader_path")
		b.uuid(types.UUID{0xff})
	}

	info := NewInfo()
	s, err := parse(t, im, info, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]TaggedString{{"@loader_path", 1}}, info.Rpaths); diff != "" {
		t.Errorf("rpaths (-want +have):\n%s", diff)
	}
	if s.UUID != uuidArm64 {
		t.Errorf("duplicate LC_UUID replaced the first: %s", s.UUID)
	}

	_, err = parse(t, im, NewInfo(), Config{Options: Options{Strict: true}})
	if !errors.Is(err, ErrFieldOutOfBounds) {
		t.Errorf("strict: have %v want %v", err, ErrFieldOutOfBounds)
	}
}

func TestParseSliceNoIdentification(t *testing.T) {
	im := testImage{
		cpu:  types.CPUArm64,
		syms: []testSym{extSym("_a")},
		cmds: func(b *cmdBuilder, le linkedit) {
			b.buildVersion(types.PlatformMacOS, v10_15, v14_0).
				symtab(le.symOff, le.nsyms, le.strOff, le.strSize)
		},
	}
	if _, err := parse(t, im, NewInfo(), Config{}); err != nil {
		t.Errorf("lenient: %v", err)
	}
	if _, err := parse(t, im, NewInfo(), Config{Options: Options{Strict: true}}); !errors.Is(err, ErrNoIdentification) {
		t.Errorf("strict: have %v want %v", err, ErrNoIdentification)
	}
}

func TestParseSliceMalformed(t *testing.T) {
	good := dylibImage(types.CPUArm64, types.CPUSubtypeArm64All, uuidArm64, types.PlatformMacOS, extSym("_a")).build(t)

	truncated := append([]byte(nil), good...)
	// sizeofcmds past the end of the file
	truncated[20], truncated[21], truncated[22], truncated[23] = 0xff, 0xff, 0xff, 0x7f

	badSymtab := dylibImage(types.CPUArm64, types.CPUSubtypeArm64All, uuidArm64, types.PlatformMacOS, extSym("_a"))
	badSymtab.cmds = func(b *cmdBuilder, le linkedit) {
		b.idDylib(fooInstallName, v1_2_3, v1_2_3).
			symtab(le.symOff, 0x10000000, le.strOff, le.strSize)
	}

	tests := []struct {
		name string
		dat  []byte
		want error
	}{
		{"empty", nil, ErrNotMachO},
		{"fat", []byte{0xca, 0xfe, 0xba, 0xbe, 0, 0, 0, 1}, ErrNotMachO},
		{"short header", good[:16], ErrNotMachO},
		{"load commands past end", truncated, ErrStreamTruncated},
		{"symbol table past end", badSymtab.build(t), ErrFieldOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewInfo()
			_, err := ParseSlice(bytes.NewReader(tt.dat), int64(len(tt.dat)), info, Config{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("have %v want %v", err, tt.want)
			}
			if len(info.Archs) != 0 {
				t.Errorf("failed parse added archs %v", info.Archs)
			}
		})
	}
}
