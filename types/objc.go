package types

// ObjCImageInfo is the payload of the __objc_imageinfo section.
type ObjCImageInfo struct {
	Version uint32
	Flags   ObjCImageInfoFlag
}

// ObjCImageInfoSize is the on-disk size of ObjCImageInfo.
const ObjCImageInfoSize = 8

type ObjCImageInfoFlag uint32

const (
	IsReplacement              ObjCImageInfoFlag = 1 << 0 // used for Fix&Continue, now ignored
	SupportsGC                 ObjCImageInfoFlag = 1 << 1 // image supports GC
	RequiresGC                 ObjCImageInfoFlag = 1 << 2 // image requires GC
	OptimizedByDyld            ObjCImageInfoFlag = 1 << 3 // image is from an optimized shared cache
	CorrectedSynthesize        ObjCImageInfoFlag = 1 << 4 // used for an old workaround, now ignored
	IsSimulated                ObjCImageInfoFlag = 1 << 5 // image compiled for a simulator platform
	HasCategoryClassProperties ObjCImageInfoFlag = 1 << 6 // class properties in category_t
	OptimizedByDyldClosure     ObjCImageInfoFlag = 1 << 7 // dyld (not the shared cache) optimized this.
	SwiftUnstableVersionMask   ObjCImageInfoFlag = 0xff << 8
	SwiftUnstableVersionShift                    = 8
	SwiftStableVersionMask     ObjCImageInfoFlag = 0xffff << 16
	SwiftStableVersionShift                      = 16
)

// SwiftVersion returns the pre-ABI-stability swift version byte of the image,
// which is what text-based stubs record as swift-abi-version.
func (f ObjCImageInfoFlag) SwiftVersion() uint32 {
	return uint32((f & SwiftUnstableVersionMask) >> SwiftUnstableVersionShift)
}

// ObjCConstraint is the garbage collection requirement an image declares.
type ObjCConstraint uint32

const (
	ObjCConstraintNone ObjCConstraint = iota
	ObjCConstraintRetainRelease
	ObjCConstraintRetainReleaseOrGC
	ObjCConstraintRetainReleaseForSimulator
	ObjCConstraintGC
)

var objcConstraintStrings = []IntName{
	{uint32(ObjCConstraintNone), "none"},
	{uint32(ObjCConstraintRetainRelease), "retain_release"},
	{uint32(ObjCConstraintRetainReleaseOrGC), "retain_release_or_gc"},
	{uint32(ObjCConstraintRetainReleaseForSimulator), "retain_release_for_simulator"},
	{uint32(ObjCConstraintGC), "gc"},
}

func (c ObjCConstraint) String() string { return StringName(uint32(c), objcConstraintStrings, false) }

// Constraint derives the objc constraint from the image info flags.
func (f ObjCImageInfoFlag) Constraint() ObjCConstraint {
	switch {
	case f&RequiresGC != 0:
		return ObjCConstraintGC
	case f&SupportsGC != 0:
		return ObjCConstraintRetainReleaseOrGC
	case f&IsSimulated != 0:
		return ObjCConstraintRetainReleaseForSimulator
	}
	return ObjCConstraintRetainRelease
}
