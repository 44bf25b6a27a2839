package frontend

import (
	"debug/dwarf"
	"sort"

	"github.com/midenc-go/midenc/internal/hir/ir"
)

// DWARFLines resolves a Wasm code-section byte offset to the source
// location that produced it, built from the module's ".debug_info",
// ".debug_abbrev", ".debug_line", and ".debug_str" custom sections when a
// source-level compiler (e.g. a Rust or TinyGo frontend) embedded them.
// Grounded on wazero's DWARFLines.Line(offset) contract (see
// internal/wasmdebug), adapted here to produce ir.SourceSpan values rather
// than formatted stack-trace strings.
type DWARFLines struct {
	rows []dwarfRow
}

type dwarfRow struct {
	pc   uint64
	file string
	line int
	col  int
}

// NewDWARFLines builds a DWARFLines from a parsed module's custom sections.
// It returns (nil, nil) when no DWARF line program is present, which is the
// common case for a release-mode Wasm binary with debug info stripped.
func NewDWARFLines(m *ModuleInfo) (*DWARFLines, error) {
	info, ok := m.CustomSections[".debug_info"]
	if !ok {
		return nil, nil
	}
	data, err := dwarf.New(
		m.CustomSections[".debug_abbrev"],
		nil, nil,
		info,
		m.CustomSections[".debug_line"],
		nil, nil,
		m.CustomSections[".debug_str"],
	)
	if err != nil {
		return nil, err
	}

	var rows []dwarfRow
	entryReader := data.Reader()
	for {
		entry, err := entryReader.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			continue
		}
		lr, err := data.LineReader(entry)
		if err != nil || lr == nil {
			continue
		}
		var le dwarf.LineEntry
		for {
			if err := lr.Next(&le); err != nil {
				break
			}
			rows = append(rows, dwarfRow{pc: le.Address, file: le.File.Name, line: le.Line, col: le.Column})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].pc < rows[j].pc })
	return &DWARFLines{rows: rows}, nil
}

// SpanForOffset implements SpanResolver. It finds the line-table row with
// the greatest address not exceeding offset, following the same
// "nearest preceding row" rule dwarf.LineReader tables are built for.
// File/Line/Column are carried in SourceSpan's File/Offset/Length fields
// respectively, since this is the only span representation the IR defines;
// Length is the DWARF column, not a byte count, when the span originates
// here rather than from a byte-range source map.
func (d *DWARFLines) SpanForOffset(offset uint64) ir.SourceSpan {
	if d == nil || len(d.rows) == 0 {
		return ir.SourceSpan{}
	}
	i := sort.Search(len(d.rows), func(i int) bool { return d.rows[i].pc > offset }) - 1
	if i < 0 {
		return ir.SourceSpan{}
	}
	row := d.rows[i]
	return ir.SourceSpan{File: row.file, Offset: uint32(row.line), Length: uint32(row.col)}
}
