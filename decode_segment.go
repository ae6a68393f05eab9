package tbd

import (
	"github.com/appsworld/go-tbd/pkg/overflow"
	"github.com/appsworld/go-tbd/types"
)

const objcImageInfoSection = "__objc_imageinfo"

// objcSegment reports whether an __objc_imageinfo section in seg is the
// one the runtime reads.
func objcSegment(seg string) bool {
	switch seg {
	case "__DATA", "__DATA_CONST", "__DATA_DIRTY", "__OBJC":
		return true
	}
	return false
}

// sections bounds nsect section headers of size each after a segment header.
func (d *decoder) sections(nsect, hdrSize, size uint32) error {
	total, err := overflow.Mul32(nsect, size)
	if err != nil {
		return d.fail("nsects", nsect, ErrOverflow)
	}
	if _, err := overflow.End32(hdrSize, total, d.rec.Len); err != nil {
		return d.fail("nsects", nsect, boundsErr(err))
	}
	return nil
}

func (d *decoder) segment32() (Outcome, error) {
	var seg types.Segment32
	if err := d.read(&seg, types.Segment32Size); err != nil {
		return Skipped, err
	}
	if err := d.sections(seg.Nsect, types.Segment32Size, types.Section32Size); err != nil {
		return Skipped, err
	}
	name := cstring(seg.Name[:])
	found := name == "__OBJC"
	var info Location
	for i := uint32(0); i < seg.Nsect; i++ {
		var sh types.Section32
		off := types.Segment32Size + i*types.Section32Size
		if err := d.readAt(off, types.Section32Size, &sh, "section"); err != nil {
			return Skipped, err
		}
		if cstring(sh.Name[:]) == objcImageInfoSection && objcSegment(cstring(sh.Seg[:])) {
			info = Location{Offset: uint64(sh.Offset), Size: uint64(sh.Size)}
			found = true
		}
	}
	return d.objc(found, info)
}

func (d *decoder) segment64() (Outcome, error) {
	var seg types.Segment64
	if err := d.read(&seg, types.Segment64Size); err != nil {
		return Skipped, err
	}
	if err := d.sections(seg.Nsect, types.Segment64Size, types.Section64Size); err != nil {
		return Skipped, err
	}
	found := false
	var info Location
	for i := uint32(0); i < seg.Nsect; i++ {
		var sh types.Section64
		off := types.Segment64Size + i*types.Section64Size
		if err := d.readAt(off, types.Section64Size, &sh, "section"); err != nil {
			return Skipped, err
		}
		if cstring(sh.Name[:]) == objcImageInfoSection && objcSegment(cstring(sh.Seg[:])) {
			info = Location{Offset: uint64(sh.Offset), Size: sh.Size}
			found = true
		}
	}
	return d.objc(found, info)
}

func (d *decoder) objc(found bool, info Location) (Outcome, error) {
	if !found {
		return Skipped, nil
	}
	d.s.HasObjC = true
	if info.Size != 0 {
		d.s.ObjCImageInfo = info
	}
	return Decoded, nil
}
