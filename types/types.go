package types

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	version "github.com/hashicorp/go-version"
)

// UUID is a macho uuid object
type UUID [16]byte

func (u UUID) String() string {
	return strings.ToUpper(uuid.UUID(u).String())
}

// IsZero reports whether every byte of u is zero.
func (u UUID) IsZero() bool {
	return u == UUID{}
}

// ParseUUID parses the canonical textual form of a UUID (case insensitive).
func ParseUUID(s string) (UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UUID{}, fmt.Errorf("failed to parse uuid %q: %v", s, err)
	}
	return UUID(id), nil
}

// Version is a packed xxxx.yy.zz version number.
type Version uint32

func (v Version) String() string {
	s := make([]byte, 4)
	binary.BigEndian.PutUint32(s, uint32(v))
	return fmt.Sprintf("%d.%d.%d", binary.BigEndian.Uint16(s[:2]), s[2], s[3])
}

// Major returns the xxxx component.
func (v Version) Major() uint16 { return uint16(v >> 16) }

// ParseVersion packs a dotted version string such as "10.15" or "1.2.3" into
// the nibble encoding used by dylib and min-version load commands.
func ParseVersion(s string) (Version, error) {
	v, err := version.NewVersion(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse version %q: %v", s, err)
	}
	segs := v.Segments64()
	for len(segs) < 3 {
		segs = append(segs, 0)
	}
	if len(segs) > 3 || segs[0] > 0xffff || segs[1] > 0xff || segs[2] > 0xff {
		return 0, fmt.Errorf("version %q does not fit in xxxx.yy.zz", s)
	}
	return Version(segs[0]<<16 | segs[1]<<8 | segs[2]), nil
}

// Tool is a build tool recorded in LC_BUILD_VERSION.
type Tool uint32

const (
	ToolClang Tool = 1 // TOOL_CLANG
	ToolSwift Tool = 2 // TOOL_SWIFT
	ToolLD    Tool = 3 // TOOL_LD
	ToolLLD   Tool = 4 // TOOL_LLD
)

var toolStrings = []IntName{
	{uint32(ToolClang), "clang"},
	{uint32(ToolSwift), "swift"},
	{uint32(ToolLD), "ld"},
	{uint32(ToolLLD), "lld"},
}

func (t Tool) String() string { return StringName(uint32(t), toolStrings, false) }

type BuildToolVersion struct {
	Tool    Tool    /* enum for the tool */
	Version Version /* version number of the tool */
}

type IntName struct {
	I uint32
	S string
}

func StringName(i uint32, names []IntName, goSyntax bool) string {
	for _, n := range names {
		if n.I == i {
			if goSyntax {
				return "types." + n.S
			}
			return n.S
		}
	}
	return "0x" + strconv.FormatUint(uint64(i), 16)
}
