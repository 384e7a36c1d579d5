package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/atvexy/karel/vm"
)

// ---------------------------------------------------------------------------
// Codegen: compile the AST to a bytecode image
// ---------------------------------------------------------------------------

// conditionCodes maps surface condition keywords to bytecode condition
// codes.
var conditionCodes = map[string]vm.Condition{
	"wall":  vm.CondWall,
	"flag":  vm.CondFlag,
	"home":  vm.CondHome,
	"north": vm.CondNorth,
	"west":  vm.CondWest,
	"south": vm.CondSouth,
	"east":  vm.CondEast,
}

// fixup is a call site whose target procedure was not yet defined when the
// BRANCH_LINKED was emitted.
type fixup struct {
	name string
	pc   int
	pos  lexer.Position
}

// codegen accumulates the image, symbol bindings and diagnostics for one
// compilation.
type codegen struct {
	builder *vm.ImageBuilder
	symbols *vm.SymbolTable
	fixups  []fixup
	errs    []string
}

// errorf records a compilation error.
func (c *codegen) errorf(pos lexer.Position, format string, args ...interface{}) {
	c.errs = append(c.errs, fmt.Sprintf("%d:%d: %s", pos.Line, pos.Column, fmt.Sprintf(format, args...)))
}

// Compile parses and compiles Karel source text. It satisfies vm.CompileFunc.
//
// Image layout: offset 0 holds the synthetic halt RETN; each procedure's
// body follows in definition order, terminated by its own RETN. Calls to
// procedures defined later in the file are backpatched once every entry
// point is known. Procedure names are case-insensitive.
func Compile(source []byte) (*vm.Program, error) {
	prog, err := Parser.ParseBytes("", source)
	if err != nil {
		return nil, err
	}

	c := &codegen{
		builder: vm.NewImageBuilder(),
		symbols: vm.NewSymbolTable(),
	}

	for _, def := range prog.Defs {
		name := strings.ToLower(def.Name)
		if _, exists := c.symbols.Lookup(name); exists {
			c.errorf(def.Pos, "duplicate definition of %q", name)
			continue
		}
		c.symbols.Insert(name, c.builder.Len())
		c.compileBody(def.Body)
		c.builder.Emit(vm.OpRetn)
	}

	c.resolveFixups()

	if len(c.errs) > 0 {
		return nil, errors.New(strings.Join(c.errs, "\n"))
	}
	return &vm.Program{Code: c.builder.Bytes(), Symbols: c.symbols}, nil
}

func (c *codegen) compileBody(body []*Statement) {
	for _, stmt := range body {
		c.compileStatement(stmt)
	}
}

func (c *codegen) compileStatement(stmt *Statement) {
	switch {
	case stmt.Step:
		c.builder.Emit(vm.OpStep)
	case stmt.Left:
		c.builder.Emit(vm.OpLeft)
	case stmt.PickUp:
		c.builder.Emit(vm.OpPickUp)
	case stmt.Place:
		c.builder.Emit(vm.OpPlace)
	case stmt.Stop:
		c.builder.Emit(vm.OpStop)
	case stmt.Repeat != nil:
		c.compileRepeat(stmt.Repeat)
	case stmt.If != nil:
		c.compileIf(stmt.If)
	case stmt.Call != "":
		c.compileCall(stmt.Call, stmt.Pos)
	}
}

// compileRepeat emits the loop body followed by the REPEAT instruction
// pointing back at the body top. The interpreter runs the body once by
// falling through, then the REPEAT supplies the remaining iterations.
func (c *codegen) compileRepeat(stmt *RepeatStmt) {
	if stmt.Count < 1 || stmt.Count > 65535 {
		c.errorf(stmt.Pos, "repeat count %d out of range 1..65535", stmt.Count)
		return
	}
	loopTop := c.builder.Len()
	c.compileBody(stmt.Body)
	c.builder.EmitRepeat(loopTop, uint16(stmt.Count))
}

// compileIf emits a conditional branch around the then-arm. The branch must
// be taken when the surface condition is FALSE, so the emitted invert flag
// is the negation of the source's "not".
func (c *codegen) compileIf(stmt *IfStmt) {
	cond := conditionCodes[strings.ToLower(stmt.Cond)]

	skipThen := c.builder.EmitBranch(vm.OpBranch, cond, !stmt.Not, 0)
	c.compileBody(stmt.Then)

	if len(stmt.Else) == 0 {
		c.builder.PatchBranchTarget(skipThen, c.builder.Len())
		return
	}

	skipElse := c.builder.EmitBranch(vm.OpBranch, vm.CondNone, false, 0)
	c.builder.PatchBranchTarget(skipThen, c.builder.Len())
	c.compileBody(stmt.Else)
	c.builder.PatchBranchTarget(skipElse, c.builder.Len())
}

func (c *codegen) compileCall(name string, pos lexer.Position) {
	name = strings.ToLower(name)
	if entry, ok := c.symbols.Lookup(name); ok {
		c.builder.EmitBranch(vm.OpBranchLinked, vm.CondNone, false, entry)
		return
	}
	// Forward reference: emit with a placeholder target and patch later.
	pc := c.builder.EmitBranch(vm.OpBranchLinked, vm.CondNone, false, 0)
	c.fixups = append(c.fixups, fixup{name: name, pc: pc, pos: pos})
}

func (c *codegen) resolveFixups() {
	for _, f := range c.fixups {
		entry, ok := c.symbols.Lookup(f.name)
		if !ok {
			c.errorf(f.pos, "call to undefined procedure %q", f.name)
			continue
		}
		c.builder.PatchBranchTarget(f.pc, entry)
	}
}
