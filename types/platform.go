package types

import "strings"

// Platform is a macho platform object
type Platform uint32

const (
	PlatformUnknown          Platform = 0  // PLATFORM_UNKNOWN
	PlatformMacOS            Platform = 1  // PLATFORM_MACOS
	PlatformIOS              Platform = 2  // PLATFORM_IOS
	PlatformTvOS             Platform = 3  // PLATFORM_TVOS
	PlatformWatchOS          Platform = 4  // PLATFORM_WATCHOS
	PlatformBridgeOS         Platform = 5  // PLATFORM_BRIDGEOS
	PlatformMacCatalyst      Platform = 6  // PLATFORM_MACCATALYST
	PlatformIOSSimulator     Platform = 7  // PLATFORM_IOSSIMULATOR
	PlatformTvOSSimulator    Platform = 8  // PLATFORM_TVOSSIMULATOR
	PlatformWatchOSSimulator Platform = 9  // PLATFORM_WATCHOSSIMULATOR
	PlatformDriverKit        Platform = 10 // PLATFORM_DRIVERKIT
	PlatformVisionOS         Platform = 11 // PLATFORM_VISIONOS
	PlatformVisionOSSim      Platform = 12 // PLATFORM_VISIONOSSIMULATOR
	PlatformFirmware         Platform = 13 // PLATFORM_FIRMWARE
	PlatformSepOS            Platform = 14 // PLATFORM_SEPOS
)

var platformStrings = []IntName{
	{uint32(PlatformUnknown), "unknown"},
	{uint32(PlatformMacOS), "macOS"},
	{uint32(PlatformIOS), "iOS"},
	{uint32(PlatformTvOS), "tvOS"},
	{uint32(PlatformWatchOS), "watchOS"},
	{uint32(PlatformBridgeOS), "bridgeOS"},
	{uint32(PlatformMacCatalyst), "macCatalyst"},
	{uint32(PlatformIOSSimulator), "iOS Simulator"},
	{uint32(PlatformTvOSSimulator), "tvOS Simulator"},
	{uint32(PlatformWatchOSSimulator), "watchOS Simulator"},
	{uint32(PlatformDriverKit), "DriverKit"},
	{uint32(PlatformVisionOS), "visionOS"},
	{uint32(PlatformVisionOSSim), "visionOS Simulator"},
	{uint32(PlatformFirmware), "Firmware"},
	{uint32(PlatformSepOS), "sepOS"},
}

// target names as written in text-based stub files
var platformTargets = []IntName{
	{uint32(PlatformMacOS), "macos"},
	{uint32(PlatformIOS), "ios"},
	{uint32(PlatformTvOS), "tvos"},
	{uint32(PlatformWatchOS), "watchos"},
	{uint32(PlatformBridgeOS), "bridgeos"},
	{uint32(PlatformMacCatalyst), "maccatalyst"},
	{uint32(PlatformIOSSimulator), "ios-simulator"},
	{uint32(PlatformTvOSSimulator), "tvos-simulator"},
	{uint32(PlatformWatchOSSimulator), "watchos-simulator"},
	{uint32(PlatformDriverKit), "driverkit"},
	{uint32(PlatformVisionOS), "xros"},
	{uint32(PlatformVisionOSSim), "xros-simulator"},
}

func (p Platform) String() string   { return StringName(uint32(p), platformStrings, false) }
func (p Platform) GoString() string { return StringName(uint32(p), platformStrings, true) }

// Known reports whether p is a platform value this package can name.
func (p Platform) Known() bool {
	return p != PlatformUnknown && p <= PlatformSepOS
}

// Target returns the stub-file target name for p, or "" if p has none.
func (p Platform) Target() string {
	for _, n := range platformTargets {
		if n.I == uint32(p) {
			return n.S
		}
	}
	return ""
}

// ParsePlatform accepts either a stub-file target name or a display name.
func ParsePlatform(s string) (Platform, bool) {
	for _, n := range platformTargets {
		if strings.EqualFold(n.S, s) {
			return Platform(n.I), true
		}
	}
	for _, n := range platformStrings[1:] {
		if strings.EqualFold(n.S, s) {
			return Platform(n.I), true
		}
	}
	return PlatformUnknown, false
}

// Simulator returns the simulator variant of an embedded platform.
func (p Platform) Simulator() Platform {
	switch p {
	case PlatformIOS:
		return PlatformIOSSimulator
	case PlatformTvOS:
		return PlatformTvOSSimulator
	case PlatformWatchOS:
		return PlatformWatchOSSimulator
	case PlatformVisionOS:
		return PlatformVisionOSSim
	}
	return p
}

// Zippered reports whether a and b are the macOS / macCatalyst pair that may
// legally share one image.
func Zippered(a, b Platform) bool {
	return (a == PlatformMacOS && b == PlatformMacCatalyst) ||
		(a == PlatformMacCatalyst && b == PlatformMacOS)
}
