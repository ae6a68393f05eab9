package types

import "fmt"

// A CPU is a Mach-O cpu type.
type CPU uint32

const (
	cpuArchMask = 0xff000000 //  mask for architecture bits
	cpuArch64   = 0x01000000 // 64 bit ABI
	cpuArch6432 = 0x02000000 // ABI for 64-bit hardware with 32-bit types; LP32
)

const (
	CPU386     CPU = 7
	CPUAmd64   CPU = CPU386 | cpuArch64
	CPUArm     CPU = 12
	CPUArm64   CPU = CPUArm | cpuArch64
	CPUArm6432 CPU = CPUArm | cpuArch6432
	CPUPpc     CPU = 18
	CPUPpc64   CPU = CPUPpc | cpuArch64
)

var cpuStrings = []IntName{
	{uint32(CPU386), "i386"},
	{uint32(CPUAmd64), "Amd64"},
	{uint32(CPUArm), "ARM"},
	{uint32(CPUArm64), "AARCH64"},
	{uint32(CPUArm6432), "ARM64_32"},
	{uint32(CPUPpc), "PowerPC"},
	{uint32(CPUPpc64), "PowerPC 64"},
}

func (i CPU) String() string   { return StringName(uint32(i), cpuStrings, false) }
func (i CPU) GoString() string { return StringName(uint32(i), cpuStrings, true) }

// Is64 reports whether the cpu uses the 64-bit ABI.
func (i CPU) Is64() bool { return i&cpuArchMask == cpuArch64 }

// IsX86 reports whether the cpu is i386 or x86_64. Embedded platforms built
// for these cpus are simulators.
func (i CPU) IsX86() bool { return i == CPU386 || i == CPUAmd64 }

type CPUSubtype uint32

// X86 subtypes
const (
	CPUSubtypeX86All   CPUSubtype = 3
	CPUSubtypeX86Arch1 CPUSubtype = 4
	CPUSubtypeX86_64H  CPUSubtype = 8
)

// ARM subtypes
const (
	CPUSubtypeArmAll    CPUSubtype = 0
	CPUSubtypeArmV4T    CPUSubtype = 5
	CPUSubtypeArmV6     CPUSubtype = 6
	CPUSubtypeArmV5Tej  CPUSubtype = 7
	CPUSubtypeArmXscale CPUSubtype = 8
	CPUSubtypeArmV7     CPUSubtype = 9
	CPUSubtypeArmV7F    CPUSubtype = 10
	CPUSubtypeArmV7S    CPUSubtype = 11
	CPUSubtypeArmV7K    CPUSubtype = 12
	CPUSubtypeArmV8     CPUSubtype = 13
	CPUSubtypeArmV6M    CPUSubtype = 14
	CPUSubtypeArmV7M    CPUSubtype = 15
	CPUSubtypeArmV7Em   CPUSubtype = 16
)

// ARM64 subtypes
const (
	CPUSubtypeArm64All CPUSubtype = 0
	CPUSubtypeArm64V8  CPUSubtype = 1
	CPUSubtypeArm64E   CPUSubtype = 2
)

// Capability bits used in the definition of cpu_subtype.
const (
	CpuSubtypeFeatureMask CPUSubtype = 0xff000000                         /* mask for feature flags */
	CpuSubtypeMask                   = CPUSubtype(^CpuSubtypeFeatureMask) /* mask for cpu subtype */
)

type arch struct {
	cpu  CPU
	sub  CPUSubtype
	name string
}

// arch names as used by ld64 and text-based stubs
var archNames = []arch{
	{CPU386, CPUSubtypeX86All, "i386"},
	{CPUAmd64, CPUSubtypeX86All, "x86_64"},
	{CPUAmd64, CPUSubtypeX86_64H, "x86_64h"},
	{CPUArm, CPUSubtypeArmV4T, "armv4t"},
	{CPUArm, CPUSubtypeArmV6, "armv6"},
	{CPUArm, CPUSubtypeArmV5Tej, "armv5"},
	{CPUArm, CPUSubtypeArmXscale, "xscale"},
	{CPUArm, CPUSubtypeArmV7, "armv7"},
	{CPUArm, CPUSubtypeArmV7F, "armv7f"},
	{CPUArm, CPUSubtypeArmV7S, "armv7s"},
	{CPUArm, CPUSubtypeArmV7K, "armv7k"},
	{CPUArm, CPUSubtypeArmV6M, "armv6m"},
	{CPUArm, CPUSubtypeArmV7M, "armv7m"},
	{CPUArm, CPUSubtypeArmV7Em, "armv7em"},
	{CPUArm64, CPUSubtypeArm64All, "arm64"},
	{CPUArm64, CPUSubtypeArm64V8, "arm64"},
	{CPUArm64, CPUSubtypeArm64E, "arm64e"},
	{CPUArm6432, CPUSubtypeArm64V8, "arm64_32"},
	{CPUArm6432, CPUSubtypeArm64All, "arm64_32"},
	{CPUPpc, 0, "ppc"},
	{CPUPpc64, 0, "ppc64"},
}

// ArchName returns the ld64 architecture name of a cpu type/subtype pair.
func ArchName(cpu CPU, sub CPUSubtype) string {
	sub &= CpuSubtypeMask
	for _, a := range archNames {
		if a.cpu == cpu && a.sub == sub {
			return a.name
		}
	}
	return fmt.Sprintf("%s(%#x)", cpu, uint32(sub))
}

// ParseArch is the inverse of ArchName.
func ParseArch(name string) (CPU, CPUSubtype, bool) {
	for _, a := range archNames {
		if a.name == name {
			return a.cpu, a.sub, true
		}
	}
	return 0, 0, false
}
