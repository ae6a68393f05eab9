package tbd

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/appsworld/go-tbd/types"
)

// cmdBuilder assembles a load-command stream.
type cmdBuilder struct {
	bo  binary.ByteOrder
	buf bytes.Buffer
	n   uint32
}

func newCmds(bo binary.ByteOrder) *cmdBuilder {
	return &cmdBuilder{bo: bo}
}

func (b *cmdBuilder) put(fields ...any) []byte {
	var body bytes.Buffer
	for _, f := range fields {
		if err := binary.Write(&body, b.bo, f); err != nil {
			panic(err)
		}
	}
	return body.Bytes()
}

// raw appends cmd with body as is; cmdsize is 8+len(body).
func (b *cmdBuilder) raw(cmd types.LoadCmd, body []byte) *cmdBuilder {
	return b.sized(cmd, uint32(8+len(body)), body)
}

// sized appends cmd claiming cmdsize size whatever the body length.
func (b *cmdBuilder) sized(cmd types.LoadCmd, size uint32, body []byte) *cmdBuilder {
	binary.Write(&b.buf, b.bo, uint32(cmd))
	binary.Write(&b.buf, b.bo, size)
	b.buf.Write(body)
	b.n++
	return b
}

// padString returns s NUL terminated and padded to 8 bytes.
func padString(s string) []byte {
	out := append([]byte(s), 0)
	for len(out)%8 != 0 {
		out = append(out, 0)
	}
	return out
}

// withString appends a command whose fixed part (fields, after the header)
// is followed by s; the offset of s is written where the field is nil.
func (b *cmdBuilder) withString(cmd types.LoadCmd, s string, fields ...any) *cmdBuilder {
	fixed := uint32(8)
	for _, f := range fields {
		if f == nil {
			fixed += 4
			continue
		}
		fixed += uint32(binary.Size(f))
	}
	var body []byte
	for _, f := range fields {
		if f == nil {
			f = fixed
		}
		body = append(body, b.put(f)...)
	}
	return b.raw(cmd, append(body, padString(s)...))
}

func (b *cmdBuilder) buildVersion(p types.Platform, minos, sdk types.Version, tools ...types.BuildToolVersion) *cmdBuilder {
	body := b.put(p, minos, sdk, uint32(len(tools)))
	for _, t := range tools {
		body = append(body, b.put(t)...)
	}
	return b.raw(types.LC_BUILD_VERSION, body)
}

func (b *cmdBuilder) versionMin(cmd types.LoadCmd, v, sdk types.Version) *cmdBuilder {
	return b.raw(cmd, b.put(v, sdk))
}

func (b *cmdBuilder) idDylib(name string, cur, compat types.Version) *cmdBuilder {
	return b.withString(types.LC_ID_DYLIB, name, nil, uint32(2), cur, compat)
}

func (b *cmdBuilder) dylib(cmd types.LoadCmd, name string) *cmdBuilder {
	return b.withString(cmd, name, nil, uint32(2), types.Version(0x10000), types.Version(0x10000))
}

func (b *cmdBuilder) str(cmd types.LoadCmd, s string) *cmdBuilder {
	return b.withString(cmd, s, nil)
}

func (b *cmdBuilder) uuid(u types.UUID) *cmdBuilder {
	return b.raw(types.LC_UUID, u[:])
}

func (b *cmdBuilder) symtab(symoff, nsyms, stroff, strsize uint32) *cmdBuilder {
	return b.raw(types.LC_SYMTAB, b.put(symoff, nsyms, stroff, strsize))
}

func (b *cmdBuilder) exportsTrie(off, size uint32) *cmdBuilder {
	return b.raw(types.LC_DYLD_EXPORTS_TRIE, b.put(off, size))
}

func (b *cmdBuilder) dyldInfo(exportOff, exportSize uint32) *cmdBuilder {
	return b.raw(types.LC_DYLD_INFO_ONLY, b.put(
		uint32(0x100), uint32(0x10), // rebase
		uint32(0x110), uint32(0x20), // bind
		uint32(0), uint32(0), // weak bind
		uint32(0x130), uint32(0x30), // lazy bind
		exportOff, exportSize,
	))
}

type testSection struct {
	seg, name    string
	offset, size uint32
}

func name16(s string) (out [16]byte) {
	copy(out[:], s)
	return out
}

func (b *cmdBuilder) segment64(name string, sects ...testSection) *cmdBuilder {
	body := b.put(name16(name), uint64(0), uint64(0x4000), uint64(0), uint64(0x4000),
		int32(3), int32(3), uint32(len(sects)), uint32(0))
	for _, s := range sects {
		body = append(body, b.put(types.Section64{
			Name:   name16(s.name),
			Seg:    name16(s.seg),
			Size:   uint64(s.size),
			Offset: s.offset,
		})...)
	}
	return b.raw(types.LC_SEGMENT_64, body)
}

func (b *cmdBuilder) segment32(name string, sects ...testSection) *cmdBuilder {
	body := b.put(name16(name), uint32(0), uint32(0x1000), uint32(0), uint32(0x1000),
		int32(3), int32(3), uint32(len(sects)), uint32(0))
	for _, s := range sects {
		body = append(body, b.put(types.Section32{
			Name:   name16(s.name),
			Seg:    name16(s.seg),
			Size:   s.size,
			Offset: s.offset,
		})...)
	}
	return b.raw(types.LC_SEGMENT, body)
}

func (b *cmdBuilder) bytes() []byte { return b.buf.Bytes() }

// records walks the stream the way ParseSlice does.
func (b *cmdBuilder) records(t *testing.T) []Record {
	t.Helper()
	var out []Record
	cur := NewCursor(b.bytes(), b.n, b.bo)
	for {
		rec, err := cur.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("records: %v", err)
		}
		out = append(out, rec)
	}
}

// record returns the only record of the stream.
func (b *cmdBuilder) record(t *testing.T) Record {
	t.Helper()
	recs := b.records(t)
	if len(recs) != 1 {
		t.Fatalf("record: have %d records want 1", len(recs))
	}
	return recs[0]
}

type testSym struct {
	name string
	typ  uint8
	desc uint16
}

func extSym(name string) testSym { return testSym{name: name, typ: types.N_SECT | types.N_EXT} }

// linkedit holds where buildImage put the data behind the load commands.
type linkedit struct {
	trieOff, trieSize uint32
	symOff, nsyms     uint32
	strOff, strSize   uint32
	objcOff           uint32
}

// testImage describes a thin Mach-O dylib for buildImage.
type testImage struct {
	cpu       types.CPU
	sub       types.CPUSubtype
	bigEndian bool
	is32      bool
	fileType  types.HeaderFileType
	flags     types.HeaderFlag
	syms      []testSym
	trie      []byte
	objc      types.ObjCImageInfoFlag
	// cmds adds the load commands; it is called twice, the first time only to
	// size the stream.
	cmds func(b *cmdBuilder, le linkedit)
}

func (im testImage) byteOrder() binary.ByteOrder {
	if im.bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (im testImage) build(t *testing.T) []byte {
	t.Helper()
	bo := im.byteOrder()
	hdrSize := uint32(types.FileHeaderSize64)
	entsize := uint32(types.Nlist64Size)
	magic := types.Magic64
	if im.is32 {
		hdrSize, entsize, magic = types.FileHeaderSize32, types.Nlist32Size, types.Magic32
	}

	sizing := newCmds(bo)
	im.cmds(sizing, linkedit{})

	var le linkedit
	var data bytes.Buffer
	base := hdrSize + uint32(len(sizing.bytes()))

	le.trieOff, le.trieSize = base, uint32(len(im.trie))
	data.Write(im.trie)

	strtab := []byte{' ', 0}
	le.symOff, le.nsyms = base+uint32(data.Len()), uint32(len(im.syms))
	for _, s := range im.syms {
		strx := uint32(len(strtab))
		strtab = append(strtab, s.name...)
		strtab = append(strtab, 0)
		if im.is32 {
			binary.Write(&data, bo, types.Nlist32{Name: strx, Type: s.typ, Sect: 1, Desc: s.desc, Value: 0x1000})
		} else {
			binary.Write(&data, bo, types.Nlist64{Name: strx, Type: s.typ, Sect: 1, Desc: s.desc, Value: 0x1000})
		}
	}
	if uint32(data.Len()) != le.trieSize+le.nsyms*entsize {
		t.Fatalf("build: nlist size mismatch")
	}
	le.strOff, le.strSize = base+uint32(data.Len()), uint32(len(strtab))
	data.Write(strtab)

	le.objcOff = base + uint32(data.Len())
	binary.Write(&data, bo, types.ObjCImageInfo{Flags: im.objc})

	cmds := newCmds(bo)
	im.cmds(cmds, le)
	if len(cmds.bytes()) != len(sizing.bytes()) {
		t.Fatalf("build: load commands changed size between passes")
	}

	fileType := im.fileType
	if fileType == 0 {
		fileType = types.MH_DYLIB
	}
	hdr := types.FileHeader{
		Magic:        magic,
		CPU:          im.cpu,
		SubCPU:       im.sub,
		Type:         fileType,
		NCommands:    cmds.n,
		SizeCommands: uint32(len(cmds.bytes())),
		Flags:        im.flags,
	}
	out := make([]byte, hdrSize)
	hdr.Put(out, bo)
	out = append(out, cmds.bytes()...)
	return append(out, data.Bytes()...)
}

type trieSym struct {
	name  string
	flags types.ExportFlag
	addr  uint64
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

// flatTrie builds an export trie whose root has one edge per symbol. Child
// offsets are written as two-byte ulebs so the root size is known upfront.
func flatTrie(syms ...trieSym) []byte {
	rootSize := 2
	for _, s := range syms {
		rootSize += len(s.name) + 1 + 2
	}
	root := []byte{0, byte(len(syms))}
	var nodes []byte
	for _, s := range syms {
		off := rootSize + len(nodes)
		root = append(root, s.name...)
		root = append(root, 0, byte(off&0x7f)|0x80, byte(off>>7))
		term := append(uleb(uint64(s.flags)), uleb(s.addr)...)
		nodes = append(nodes, uleb(uint64(len(term)))...)
		nodes = append(nodes, term...)
		nodes = append(nodes, 0)
	}
	return append(root, nodes...)
}
