package vm

// ---------------------------------------------------------------------------
// Program: a compiled bytecode image plus its symbol table
// ---------------------------------------------------------------------------

// Program is the unit the compiler hands to the VM: a flat bytecode image
// whose offset 0 holds the synthetic halt RETN, and the symbols bound into
// it. Programs are immutable once built.
type Program struct {
	Code    []byte
	Symbols *SymbolTable
}

// CompileFunc is the compiler backend the facade calls for LoadProgram.
// Implementations report every rejection as an error; a nil error means the
// returned program is complete and well-formed.
//
// The backend is injected from the embedding layer so this package does not
// depend on any particular front end.
type CompileFunc func(source []byte) (*Program, error)
