package tbd

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/appsworld/go-tbd/types"
)

// readObjCImageInfo reads the __objc_imageinfo section found by the segment
// decoder and records the swift version and objc constraint it declares.
func (img *image) readObjCImageInfo(s *Slice, info *Info) error {
	loc := s.ObjCImageInfo
	if loc.Size == 0 {
		return nil
	}
	if loc.Size < types.ObjCImageInfoSize {
		return errors.Errorf("objc image info is %d bytes, need %d", loc.Size, types.ObjCImageInfoSize)
	}
	dat, err := img.bytes(loc.Offset, types.ObjCImageInfoSize, "objc image info")
	if err != nil {
		return err
	}
	var ii types.ObjCImageInfo
	if err := binary.Read(bytes.NewReader(dat), img.bo, &ii); err != nil {
		return errors.Wrap(err, "failed to read objc image info")
	}

	if swift := ii.Flags.SwiftVersion(); swift != 0 {
		info.SwiftVersion = swift
	}
	if c := ii.Flags.Constraint(); c != types.ObjCConstraintNone {
		info.ObjCConstraint = c
	}
	return nil
}
