package tbd

import (
	"bytes"
	"encoding/binary"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/appsworld/go-tbd/pkg/overflow"
	"github.com/appsworld/go-tbd/pkg/trie"
	"github.com/appsworld/go-tbd/types"
)

// readSymbols adds the exported symbols of s to info. The export trie is
// preferred; the nlist table is only read when there is none.
func (img *image) readSymbols(s *Slice, info *Info, cfg Config) error {
	if s.DyldInfo.ExportSize > 0 {
		return img.readExportTrie(s, info)
	}
	if s.Symtab.Nsyms > 0 {
		return img.readSymtab(s, info, cfg)
	}
	return nil
}

func exportFlags(f types.ExportFlag) SymbolFlags {
	var out SymbolFlags
	if f.WeakDefinition() {
		out |= SymbolWeakDefined
	}
	if f.ThreadLocal() {
		out |= SymbolThreadLocal
	}
	if f.Absolute() {
		out |= SymbolAbsolute
	}
	if f.ReExport() {
		out |= SymbolReexport
	}
	if f.StubAndResolver() {
		out |= SymbolResolver
	}
	return out
}

func (img *image) readExportTrie(s *Slice, info *Info) error {
	dat, err := img.bytes(uint64(s.DyldInfo.ExportOff), uint64(s.DyldInfo.ExportSize), "export trie")
	if err != nil {
		return err
	}
	entries, err := trie.ParseTrie(dat, 0)
	if err != nil {
		return errors.Wrap(err, "failed to parse export trie")
	}
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		info.Symbols.Add(e.Name, exportFlags(e.Flags), s.Bit())
	}
	log.WithFields(log.Fields{"arch": s.Arch.Name, "count": len(entries)}).Debug("Read export trie")
	return nil
}

func (img *image) readSymtab(s *Slice, info *Info, cfg Config) error {
	st := s.Symtab
	entsize := uint64(types.Nlist32Size)
	if img.is64 {
		entsize = types.Nlist64Size
	}
	symsize, err := overflow.Mul64(uint64(st.Nsyms), entsize)
	if err != nil {
		return errors.Wrapf(ErrOverflow, "%d symbols", st.Nsyms)
	}
	symdat, err := img.bytes(uint64(st.Symoff), symsize, "symbol table")
	if err != nil {
		return err
	}
	strtab, err := img.bytes(uint64(st.Stroff), uint64(st.Strsize), "string table")
	if err != nil {
		return err
	}

	syms := make([]types.Nlist64, st.Nsyms)
	if img.is64 {
		if err := binary.Read(bytes.NewReader(symdat), img.bo, syms); err != nil {
			return errors.Wrap(err, "failed to read nlist_64 entries")
		}
	} else {
		syms32 := make([]types.Nlist32, st.Nsyms)
		if err := binary.Read(bytes.NewReader(symdat), img.bo, syms32); err != nil {
			return errors.Wrap(err, "failed to read nlist entries")
		}
		for i, n := range syms32 {
			syms[i] = types.Nlist64{Name: n.Name, Type: n.Type, Sect: n.Sect, Desc: n.Desc, Value: uint64(n.Value)}
		}
	}

	var added int
	for i, n := range syms {
		if n.Type&types.N_STAB != 0 || n.Type&types.N_EXT == 0 {
			continue
		}
		switch n.Type & types.N_TYPE {
		case types.N_UNDF, types.N_PBUD:
			continue
		}
		if n.Type&types.N_PEXT != 0 && !cfg.AllowPrivate {
			continue
		}
		if n.Name >= st.Strsize {
			if cfg.Strict {
				return errors.Wrapf(ErrFieldOutOfBounds, "symbol %d name offset %#x (strsize %#x)", i, n.Name, st.Strsize)
			}
			log.WithFields(log.Fields{"index": i, "strx": n.Name}).Warn("Skipping symbol with bad name offset")
			continue
		}
		name := cstring(strtab[n.Name:])
		if name == "" {
			continue
		}
		var flags SymbolFlags
		if n.Desc&types.N_WEAK_DEF != 0 {
			flags |= SymbolWeakDefined
		}
		if n.Type&types.N_TYPE == types.N_ABS {
			flags |= SymbolAbsolute
		}
		info.Symbols.Add(name, flags, s.Bit())
		added++
	}
	log.WithFields(log.Fields{"arch": s.Arch.Name, "nsyms": st.Nsyms, "exported": added}).Debug("Read symbol table")
	return nil
}
