package types

import "strings"

type ExportFlag int

const (
	/*
	 * The following are used on the flags byte of a terminal node
	 * in the export information.
	 */
	EXPORT_SYMBOL_FLAGS_KIND_MASK         ExportFlag = 0x03
	EXPORT_SYMBOL_FLAGS_KIND_REGULAR      ExportFlag = 0x00
	EXPORT_SYMBOL_FLAGS_KIND_THREAD_LOCAL ExportFlag = 0x01
	EXPORT_SYMBOL_FLAGS_KIND_ABSOLUTE     ExportFlag = 0x02
	EXPORT_SYMBOL_FLAGS_WEAK_DEFINITION   ExportFlag = 0x04
	EXPORT_SYMBOL_FLAGS_REEXPORT          ExportFlag = 0x08
	EXPORT_SYMBOL_FLAGS_STUB_AND_RESOLVER ExportFlag = 0x10
)

func (f ExportFlag) Regular() bool {
	return (f & EXPORT_SYMBOL_FLAGS_KIND_MASK) == EXPORT_SYMBOL_FLAGS_KIND_REGULAR
}
func (f ExportFlag) ThreadLocal() bool {
	return (f & EXPORT_SYMBOL_FLAGS_KIND_MASK) == EXPORT_SYMBOL_FLAGS_KIND_THREAD_LOCAL
}
func (f ExportFlag) Absolute() bool {
	return (f & EXPORT_SYMBOL_FLAGS_KIND_MASK) == EXPORT_SYMBOL_FLAGS_KIND_ABSOLUTE
}
func (f ExportFlag) WeakDefinition() bool {
	return (f & EXPORT_SYMBOL_FLAGS_WEAK_DEFINITION) != 0
}
func (f ExportFlag) ReExport() bool {
	return (f & EXPORT_SYMBOL_FLAGS_REEXPORT) != 0
}
func (f ExportFlag) StubAndResolver() bool {
	return (f & EXPORT_SYMBOL_FLAGS_STUB_AND_RESOLVER) != 0
}
func (f ExportFlag) String() string {
	var fStr string
	if f.Regular() {
		fStr += "Regular "
		if f.StubAndResolver() {
			fStr += "(Has Resolver Function)"
		} else if f.WeakDefinition() {
			fStr += "(Weak Definition)"
		}
	} else if f.ThreadLocal() {
		fStr += "Thread Local"
	} else if f.Absolute() {
		fStr += "Absolute"
	}
	if f.ReExport() {
		fStr += " (Re-export)"
	}
	return strings.TrimSpace(fStr)
}

// nlist n_type bits
const (
	N_STAB uint8 = 0xe0 /* if any of these bits set, a symbolic debugging entry */
	N_PEXT uint8 = 0x10 /* private external symbol bit */
	N_TYPE uint8 = 0x0e /* mask for the type bits */
	N_EXT  uint8 = 0x01 /* external symbol bit, set for external symbols */

	N_UNDF uint8 = 0x0 /* undefined, n_sect == NO_SECT */
	N_ABS  uint8 = 0x2 /* absolute, n_sect == NO_SECT */
	N_SECT uint8 = 0xe /* defined in section number n_sect */
	N_PBUD uint8 = 0xc /* prebound undefined (defined in a dylib) */
	N_INDR uint8 = 0xa /* indirect */
)

// nlist n_desc bits
const (
	N_NO_DEAD_STRIP uint16 = 0x0020
	N_WEAK_REF      uint16 = 0x0040
	N_WEAK_DEF      uint16 = 0x0080
	N_ALT_ENTRY     uint16 = 0x0200
)
