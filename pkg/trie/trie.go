package trie

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/appsworld/go-tbd/pkg/overflow"
	"github.com/appsworld/go-tbd/types"
)

var (
	// ErrMalformed is returned for tries that point outside their data or loop back on themselves.
	ErrMalformed = errors.New("malformed export trie")
	errUleb      = errors.New("uleb128 value does not fit in 64 bits")
)

type TrieEntry struct {
	Name     string
	ReExport string
	Flags    types.ExportFlag
	Other    uint64
	Address  uint64
}

type trieNode struct {
	Offset   uint64
	SymBytes []byte
}

func (e TrieEntry) String() string {
	if e.Flags.ReExport() {
		if len(e.ReExport) > 0 {
			return fmt.Sprintf("%s (re-exported as %s, ordinal %d)", e.Name, e.ReExport, e.Other)
		}
		return fmt.Sprintf("%s (re-exported, ordinal %d)", e.Name, e.Other)
	} else if e.Flags.StubAndResolver() {
		return fmt.Sprintf("%#016x %s\t(stub to %#8x)", e.Address, e.Name, e.Other)
	}
	return fmt.Sprintf("%#016x: %s", e.Address, e.Name)
}

func ReadUleb128(r *bytes.Reader) (uint64, error) {
	var result uint64
	var shift uint64

	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return 0, err
		}
		if err != nil {
			return 0, fmt.Errorf("could not parse ULEB128 value: %v", err)
		}
		if shift >= 64 || (shift == 63 && b&0x7e != 0) {
			return 0, errUleb
		}

		result |= uint64(b&0x7f) << shift

		// If high order bit is 1.
		if (b & 0x80) == 0 {
			break
		}

		shift += 7
	}

	return result, nil
}

func readCString(r *bytes.Reader) ([]byte, error) {
	var out []byte
	for {
		s, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: unterminated string", ErrMalformed)
		}
		if s == '\x00' {
			return out, nil
		}
		out = append(out, s)
	}
}

// ParseTrie walks an export trie and returns every terminal entry. Child
// offsets are bounded by len(trieData) and each node is visited once, so a
// corrupt trie produces an error rather than a loop.
func ParseTrie(trieData []byte, loadAddress uint64) ([]TrieEntry, error) {

	var tNode trieNode
	var entries []TrieEntry

	size := uint64(len(trieData))
	visited := make(map[uint64]bool)

	nodes := []trieNode{{
		Offset:   0,
		SymBytes: make([]byte, 0),
	}}

	r := bytes.NewReader(trieData)

	for len(nodes) > 0 {
		tNode, nodes = nodes[len(nodes)-1], nodes[:len(nodes)-1]

		if tNode.Offset >= size {
			return nil, fmt.Errorf("%w: node offset %#x past end (%#x)", ErrMalformed, tNode.Offset, size)
		}
		if visited[tNode.Offset] {
			return nil, fmt.Errorf("%w: node at %#x reached twice", ErrMalformed, tNode.Offset)
		}
		visited[tNode.Offset] = true

		r.Seek(int64(tNode.Offset), io.SeekStart)

		terminalSize, err := ReadUleb128(r)
		if err != nil {
			return nil, err
		}
		terminalStart := size - uint64(r.Len())
		childrenStart, err := overflow.End64(terminalStart, terminalSize, size-1)
		if err != nil {
			return nil, fmt.Errorf("%w: terminal info of node %#x: %v", ErrMalformed, tNode.Offset, err)
		}

		if terminalSize != 0 {
			var symOtherInt, symValueInt uint64
			var reExportSymBytes []byte

			symFlagInt, err := ReadUleb128(r)
			if err != nil {
				return nil, err
			}

			flags := types.ExportFlag(symFlagInt)

			if flags.ReExport() {
				symOtherInt, err = ReadUleb128(r)
				if err != nil {
					return nil, err
				}
				reExportSymBytes, err = readCString(r)
				if err != nil {
					return nil, err
				}
			} else {
				if flags.StubAndResolver() {
					symOtherInt, err = ReadUleb128(r)
					if err != nil {
						return nil, err
					}
					symOtherInt += loadAddress
				}

				symValueInt, err = ReadUleb128(r)
				if err != nil {
					return nil, err
				}

				if flags.Regular() || flags.ThreadLocal() {
					symValueInt += loadAddress
				}
			}

			entries = append(entries, TrieEntry{
				Name:     string(tNode.SymBytes),
				ReExport: string(reExportSymBytes),
				Flags:    flags,
				Other:    symOtherInt,
				Address:  symValueInt,
			})
		}

		r.Seek(int64(childrenStart), io.SeekStart)

		childrenRemaining, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: missing child count at %#x", ErrMalformed, childrenStart)
		}

		for i := 0; i < int(childrenRemaining); i++ {
			edge, err := readCString(r)
			if err != nil {
				return nil, err
			}

			tmp := make([]byte, 0, len(tNode.SymBytes)+len(edge))
			tmp = append(tmp, tNode.SymBytes...)
			tmp = append(tmp, edge...)

			childNodeOffset, err := ReadUleb128(r)
			if err != nil {
				return nil, err
			}

			nodes = append(nodes, trieNode{
				Offset:   childNodeOffset,
				SymBytes: tmp,
			})
		}

	}

	return entries, nil
}
