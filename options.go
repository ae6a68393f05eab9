package tbd

import (
	"encoding/binary"

	"github.com/appsworld/go-tbd/types"
)

// Options are handed to every DecodeLoadCommand call.
type Options struct {
	// CopyStrings makes every decoded string an independent copy. When false
	// strings alias the load-command buffer, which must then outlive the Info.
	CopyStrings bool
	BigEndian   bool
	// Strict turns benign irregularities (duplicate one-shot commands, unknown
	// platforms, empty paths) into ErrStrictViolation.
	Strict bool
}

// ByteOrder returns the byte order selected by o.BigEndian.
func (o Options) ByteOrder() binary.ByteOrder {
	if o.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Flags record which one-shot commands a slice has already produced. They
// start clear for every slice and only ever go from unset to set.
type Flags struct {
	BuildVersion     bool
	Identification   bool
	UUID             bool
	CatalystPlatform bool
}

// ConflictPolicy decides what a platform mismatch between two slices rejects.
type ConflictPolicy uint8

const (
	// FailSlice rejects only the slice that disagrees; earlier slices stay.
	FailSlice ConflictPolicy = iota
	// FailFile poisons the whole Info; every later ParseSlice call fails too.
	FailFile
)

func (p ConflictPolicy) String() string {
	if p == FailFile {
		return "fail-file"
	}
	return "fail-slice"
}

// Config drives ParseSlice.
type Config struct {
	Options

	// AllowPrivate keeps private-extern symbols from the nlist table.
	AllowPrivate     bool
	PlatformConflict ConflictPolicy

	// Replacements applied by Info.ApplyReplacements once all slices are in.
	// Zero values keep what was parsed.
	ReplaceInstallName    string
	ReplaceCurrentVersion types.Version
	ReplaceCompatVersion  types.Version
	ReplacePlatform       types.Platform
}
