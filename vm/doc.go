// Package vm implements the Karel virtual machine.
//
// This package contains:
//   - Packed nibble grid and robot state
//   - Bytecode layout and decoding helpers
//   - Symbol table mapping procedure names to entry points
//   - Bytecode interpreter with call and repeat stacks
//   - VM facade: lifecycle, loading, execution, world import/export
package vm
