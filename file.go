package tbd

// High level access to the slices of a Mach-O image.

import (
	"encoding/binary"
	"io"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/appsworld/go-tbd/pkg/overflow"
	"github.com/appsworld/go-tbd/types"
)

// image is the file a slice is read from.
type image struct {
	r    io.ReaderAt
	size uint64
	bo   binary.ByteOrder
	is64 bool
}

// bytes reads n bytes at off after checking that they lie inside the file.
func (img *image) bytes(off, n uint64, what string) ([]byte, error) {
	if _, err := overflow.End64(off, n, img.size); err != nil {
		return nil, errors.Wrapf(boundsErr(err), "%s at %#x (%s) past end of file (%s)",
			what, off, humanize.Bytes(n), humanize.Bytes(img.size))
	}
	dat := make([]byte, n)
	if _, err := img.r.ReadAt(dat, int64(off)); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", what)
	}
	return dat, nil
}

// readHeader reads the thin Mach-O header. The magic decides byte order and
// header width.
func readHeader(r io.ReaderAt, size int64) (*types.FileHeader, *image, error) {
	var ident [4]byte
	if _, err := r.ReadAt(ident[0:], 0); err != nil {
		return nil, nil, errors.Wrap(ErrNotMachO, "failed to read magic")
	}
	img := &image{r: r, size: uint64(size)}
	be := binary.BigEndian.Uint32(ident[0:])
	le := binary.LittleEndian.Uint32(ident[0:])
	var magic types.Magic
	switch types.Magic32.Int() &^ 1 {
	case be &^ 1:
		img.bo = binary.BigEndian
		magic = types.Magic(be)
	case le &^ 1:
		img.bo = binary.LittleEndian
		magic = types.Magic(le)
	default:
		if be == types.MagicFat.Int() {
			return nil, nil, errors.Wrap(ErrNotMachO, "universal files must be split into slices first")
		}
		return nil, nil, errors.Wrapf(ErrNotMachO, "invalid magic %#08x", le)
	}
	img.is64 = magic == types.Magic64

	hdr := &types.FileHeader{Magic: magic}
	dat, err := img.bytes(0, uint64(hdr.Size()), "header")
	if err != nil {
		return nil, nil, errors.Wrap(ErrNotMachO, err.Error())
	}
	bo := img.bo
	hdr.CPU = types.CPU(bo.Uint32(dat[4:]))
	hdr.SubCPU = types.CPUSubtype(bo.Uint32(dat[8:]))
	hdr.Type = types.HeaderFileType(bo.Uint32(dat[12:]))
	hdr.NCommands = bo.Uint32(dat[16:])
	hdr.SizeCommands = bo.Uint32(dat[20:])
	hdr.Flags = types.HeaderFlag(bo.Uint32(dat[24:]))
	if img.is64 {
		hdr.Reserved = bo.Uint32(dat[28:])
	}
	return hdr, img, nil
}

// ParseSlice reads one thin Mach-O image from r and merges what it describes
// into info. The slice's arch is appended to info.Archs; its position there
// is returned as Slice.Index.
//
// The slice is decoded on its own and only merged at the end, so when an
// error is returned info is unchanged. The one exception is a platform
// conflict under FailFile, which marks info as rejected.
func ParseSlice(r io.ReaderAt, size int64, info *Info, cfg Config) (*Slice, error) {
	if info.err != nil {
		return nil, info.err
	}
	hdr, img, err := readHeader(r, size)
	if err != nil {
		return nil, err
	}
	opts := cfg.Options
	opts.BigEndian = img.bo == binary.BigEndian

	stream, err := img.bytes(uint64(hdr.Size()), uint64(hdr.SizeCommands), "load commands")
	if err != nil {
		return nil, errors.Wrap(ErrStreamTruncated, err.Error())
	}

	arch := NewArch(hdr.CPU, hdr.SubCPU)
	scratch := info.identity()
	idx, err := scratch.AddArch(arch)
	if err != nil {
		return nil, err
	}
	s := NewSlice(idx, arch)
	s.FileType = hdr.Type
	s.HeaderFlags = hdr.Flags

	log.WithFields(log.Fields{
		"arch":       arch.Name,
		"type":       hdr.Type,
		"ncmds":      hdr.NCommands,
		"sizeofcmds": humanize.Bytes(uint64(hdr.SizeCommands)),
	}).Debug("Parsing slice")

	if err := decodeCommands(stream, hdr.NCommands, s, scratch, opts); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s slice", arch.Name)
	}

	if !s.Flags.Identification {
		if cfg.Strict {
			return nil, errors.Wrapf(ErrNoIdentification, "%s slice", arch.Name)
		}
		log.WithField("arch", arch.Name).Warn("Slice has no LC_ID_DYLIB")
	}

	if err := img.readSymbols(s, scratch, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s symbols", arch.Name)
	}
	if err := img.readObjCImageInfo(s, scratch); err != nil {
		if cfg.Strict {
			return nil, errors.Wrapf(err, "failed to read %s objc image info", arch.Name)
		}
		log.WithError(err).Warn("Ignoring objc image info")
	}

	if info.SwiftVersion != 0 && scratch.SwiftVersion != 0 && info.SwiftVersion != scratch.SwiftVersion {
		log.WithFields(log.Fields{
			"arch": arch.Name,
			"have": info.SwiftVersion,
			"got":  scratch.SwiftVersion,
		}).Warn("Slices disagree on swift version; keeping the first")
	}

	if err := scratch.MergeSlice(s); err != nil {
		return nil, err
	}
	if err := info.Fold(scratch, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to merge %s slice", arch.Name)
	}
	s.Index = len(info.Archs) - 1

	log.WithFields(log.Fields{
		"arch":     arch.Name,
		"platform": s.Platform,
		"uuid":     s.UUID,
		"symbols":  scratch.Symbols.Len(),
	}).Debug("Merged slice")
	return s, nil
}

// decodeCommands runs every load command through DecodeLoadCommand. Outside
// strict mode a record that fails to decode is logged and skipped; a record
// the cursor cannot step over, or a conflicting platform, stops the walk.
func decodeCommands(stream []byte, ncmds uint32, s *Slice, info *Info, opts Options) error {
	cur := NewCursor(stream, ncmds, opts.ByteOrder())
	for n := 0; ; n++ {
		rec, err := cur.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		out, err := DecodeLoadCommand(rec, s, info, opts)
		if err != nil {
			if opts.Strict || Category(err) == CategorySemantic {
				return errors.Wrapf(err, "load command %d", n)
			}
			log.WithFields(log.Fields{
				"index":    n,
				"category": Category(err),
			}).WithError(err).Warn("Skipping malformed load command")
			continue
		}
		log.WithFields(log.Fields{"index": n, "cmd": rec.Cmd, "outcome": out}).Debug("Load command")
	}
	if rest := len(stream) - int(cur.Offset()); rest > 0 {
		log.WithField("bytes", rest).Debug("Unused bytes after load commands")
	}
	return nil
}
