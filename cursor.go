package tbd

import (
	"bytes"
	"encoding/binary"
	"io"
	"unsafe"

	"github.com/appsworld/go-tbd/pkg/overflow"
	"github.com/appsworld/go-tbd/types"
)

// A Record is one load command as found in the load-command stream.
type Record struct {
	Cmd    types.LoadCmd
	Len    uint32 // declared cmdsize, header included
	Offset uint32 // of the record within the stream
	// Data holds the record bytes starting at the command header. A record
	// built by a Cursor has exactly Len bytes; a shorter one is truncated.
	Data []byte
}

// Cursor walks a load-command stream one record at a time. Every step is
// bounded by the stream length with checked arithmetic.
type Cursor struct {
	stream []byte
	bo     binary.ByteOrder
	off    uint32
	left   uint32
	err    error
}

// NewCursor returns a cursor over ncmds records in stream, which must be the
// sizeofcmds bytes following the Mach-O header.
func NewCursor(stream []byte, ncmds uint32, bo binary.ByteOrder) *Cursor {
	return &Cursor{stream: stream, bo: bo, left: ncmds}
}

// Offset returns the stream offset of the next record.
func (c *Cursor) Offset() uint32 { return c.off }

// Next returns the next record, or io.EOF once ncmds records were returned.
// Any other error is sticky: the stream cannot be resynchronised.
func (c *Cursor) Next() (Record, error) {
	if c.err != nil {
		return Record{}, c.err
	}
	if c.left == 0 {
		return Record{}, io.EOF
	}
	bound := uint32(len(c.stream))
	if _, err := overflow.End32(c.off, types.LoadCmdHeaderSize, bound); err != nil {
		c.err = &DecodeError{Offset: c.off, Field: "header", Err: ErrStreamTruncated}
		return Record{}, c.err
	}
	rec := Record{
		Cmd:    types.LoadCmd(c.bo.Uint32(c.stream[c.off:])),
		Len:    c.bo.Uint32(c.stream[c.off+4:]),
		Offset: c.off,
	}
	if rec.Len < types.LoadCmdHeaderSize {
		c.err = &DecodeError{Cmd: rec.Cmd, Offset: c.off, Field: "cmdsize", Val: rec.Len, Err: ErrCommandTooSmall}
		return Record{}, c.err
	}
	end, err := overflow.End32(c.off, rec.Len, bound)
	if err != nil {
		c.err = &DecodeError{Cmd: rec.Cmd, Offset: c.off, Field: "cmdsize", Val: rec.Len, Err: ErrStreamTruncated}
		return Record{}, c.err
	}
	rec.Data = c.stream[c.off:end]
	c.off = end
	c.left--
	return rec, nil
}

// view is a bounds-checked window over one record. Every offset it is given
// is checked against its length before use.
type view struct {
	rec  Record
	b    []byte
	bo   binary.ByteOrder
	copy bool
}

func newView(rec Record, opts Options) (view, error) {
	if rec.Len < types.LoadCmdHeaderSize {
		return view{}, &DecodeError{Cmd: rec.Cmd, Offset: rec.Offset, Field: "cmdsize", Val: rec.Len, Err: ErrCommandTooSmall}
	}
	if uint32(len(rec.Data)) < rec.Len {
		return view{}, &DecodeError{Cmd: rec.Cmd, Offset: rec.Offset, Field: "cmdsize", Val: rec.Len, Err: ErrStreamTruncated}
	}
	return view{rec: rec, b: rec.Data[:rec.Len], bo: opts.ByteOrder(), copy: opts.CopyStrings}, nil
}

func (v view) fail(field string, val any, err error) *DecodeError {
	return &DecodeError{Cmd: v.rec.Cmd, Offset: v.rec.Offset, Field: field, Val: val, Err: err}
}

// read decodes the fixed layout of a command, which must be at least size bytes.
func (v view) read(data any, size uint32) error {
	if uint32(len(v.b)) < size {
		return v.fail("cmdsize", v.rec.Len, ErrCommandTooSmall)
	}
	return binary.Read(bytes.NewReader(v.b[:size]), v.bo, data)
}

// readAt decodes data from off, which must leave room for size bytes.
func (v view) readAt(off, size uint32, data any, field string) error {
	end, err := overflow.End32(off, size, uint32(len(v.b)))
	if err != nil {
		return v.fail(field, off, boundsErr(err))
	}
	return binary.Read(bytes.NewReader(v.b[off:end]), v.bo, data)
}

// cstring returns the NUL-terminated string at off. The offset must lie past
// the command's fixed layout (min) and inside the record; a string without a
// terminator ends at the end of the record.
func (v view) cstring(off, min uint32, field string) (string, error) {
	if off < min {
		return "", v.fail(field, off, ErrFieldOutOfBounds)
	}
	if _, err := overflow.End32(off, 1, uint32(len(v.b))); err != nil {
		return "", v.fail(field, off, boundsErr(err))
	}
	b := v.b[off:]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return v.str(b), nil
}

func (v view) str(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if v.copy {
		return string(b)
	}
	return unsafe.String(&b[0], len(b))
}

func boundsErr(err error) error {
	if err == overflow.ErrOverflow {
		return ErrOverflow
	}
	return ErrFieldOutOfBounds
}

func cstring(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i == -1 {
		i = len(b)
	}
	return string(b[0:i])
}
