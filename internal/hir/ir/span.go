package ir

// SourceSpan locates a byte range within a named source file. Frontend
// translation attaches one to each emitted instruction when DWARF debug
// info resolves a Wasm byte offset to a real, loadable source file;
// otherwise instructions carry the zero SourceSpan.
type SourceSpan struct {
	File   string
	Offset uint32
	Length uint32
}

// IsValid reports whether this span names a source file.
func (s SourceSpan) IsValid() bool { return s.File != "" }
