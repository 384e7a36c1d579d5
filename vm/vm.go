package vm

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: the Karel virtual machine facade
// ---------------------------------------------------------------------------

// VM owns the grid, robot, bytecode image and symbol table, and drives the
// interpreter. Load and run operations are serialized by a single lock; the
// status cell and the short-circuit mask are the only fields touched across
// threads without it.
type VM struct {
	mu sync.Mutex

	grid    Grid
	robot   Robot
	image   []byte
	symbols *SymbolTable
	interp  *Interpreter

	// Both must be true before RunSymbol will execute.
	bytecodeValid bool
	worldValid    bool

	// status is the atomic run-state cell hosts poll from other threads.
	status atomic.Int32
	// fetchMask is 1 while a run may proceed, 0 after ShortCircuit.
	fetchMask atomic.Int32

	compile CompileFunc
	cache   *CompileCache

	// lastCompileErrors holds the diagnostics of the most recent failed
	// LoadProgram, for hosts that want more than COMPILATION_ERROR.
	lastCompileErrors []string

	log commonlog.Logger
}

// NewVM creates a VM with no program or world loaded. A compiler backend
// must be injected with UseCompiler before LoadProgram can work.
func NewVM() *VM {
	v := &VM{
		symbols: NewSymbolTable(),
		cache:   NewCompileCache(),
		log:     commonlog.GetLogger("karel.vm"),
	}
	v.interp = newInterpreter(&v.grid, &v.robot, &v.fetchMask, &v.status)
	v.fetchMask.Store(1)
	v.status.Store(int32(StatusNotInitialized))
	return v
}

// Close tears the VM down: it drops the program, the world and the compiler
// backend, and sets the status cell to NOT_INITIALIZED. Afterwards
// LoadProgram reports NOT_INITIALIZED until a compiler is injected again,
// and RunSymbol reports STATE_NOT_VALID until a program and a world are
// loaded again.
func (v *VM) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bytecodeValid = false
	v.worldValid = false
	v.compile = nil
	v.image = nil
	v.symbols.Clear()
	v.status.Store(int32(StatusNotInitialized))
}

// UseCompiler injects the compiler backend called by LoadProgram.
func (v *VM) UseCompiler(fn CompileFunc) {
	v.mu.Lock()
	v.compile = fn
	v.mu.Unlock()
}

// Status returns the current value of the run-state cell.
func (v *VM) Status() Status {
	return Status(v.status.Load())
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadProgram compiles source text and installs the resulting image and
// symbols, replacing any previous program. Identical source hits the
// compile cache and skips the compiler.
func (v *VM) LoadProgram(source []byte) Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.compile == nil {
		return StatusNotInitialized
	}

	key := SourceKey(source)
	prog := v.cache.Lookup(key)
	if prog == nil {
		var err error
		prog, err = v.compile(source)
		if err != nil {
			v.lastCompileErrors = compileErrorLines(err)
			v.log.Errorf("compilation failed: %s", err.Error())
			return StatusCompilationError
		}
		v.cache.Store(key, prog)
	}

	v.installProgram(prog)
	v.lastCompileErrors = nil
	return StatusSuccess
}

// LoadProgramFile reads a source file and loads it as LoadProgram does.
func (v *VM) LoadProgramFile(path string) Status {
	source, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			v.log.Errorf("source file missing: %s", path)
			return StatusFileNotFound
		}
		v.log.Errorf("reading %s: %s", path, err.Error())
		return StatusUnknownError
	}
	return v.LoadProgram(source)
}

// LoadCompiled installs an already compiled program, bypassing the compiler
// and cache. Used when loading saved image snapshots.
func (v *VM) LoadCompiled(prog *Program) Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.installProgram(prog)
	return StatusSuccess
}

// installProgram replaces the image and rebuilds the symbol table. Called
// with the lock held.
func (v *VM) installProgram(prog *Program) {
	v.image = prog.Code
	v.interp.setImage(prog.Code)
	v.symbols.Clear()
	prog.Symbols.Each(func(name string, pc int) {
		v.symbols.Insert(name, pc)
	})
	v.bytecodeValid = true
}

// LoadWorld overwrites the grid and robot from an exchange-format array and
// robot record. Malformed input is rejected whole: the previous world, if
// any, stays loaded and untouched.
func (v *VM) LoadWorld(cells []byte, rec RobotRecord) Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !validWorld(cells) || !validRobot(rec) {
		v.log.Error("rejecting malformed world import")
		return StatusStateNotValid
	}
	importWorld(&v.grid, &v.robot, cells, rec)
	v.worldValid = true
	return StatusSuccess
}

// ReadWorld writes the current world into out in exchange format, walls as
// 255. out must hold WorldCells bytes.
func (v *VM) ReadWorld(out []byte) Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.worldValid {
		return StatusStateNotValid
	}
	if len(out) != WorldCells {
		return StatusStateNotValid
	}
	exportWorld(&v.grid, out)
	return StatusSuccess
}

// RobotState returns a copy of the robot in exchange-record form.
func (v *VM) RobotState() RobotRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return RobotRecord{
		uint32(v.robot.X), uint32(v.robot.Y),
		uint32(v.robot.Dir),
		uint32(v.robot.HomeX), uint32(v.robot.HomeY),
	}
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// RunSymbol resolves a procedure name and interprets it to completion. The
// lock is held for the whole run; ShortCircuit is the only way another
// thread can influence it.
func (v *VM) RunSymbol(name string) Status {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.bytecodeValid || !v.worldValid {
		return StatusStateNotValid
	}
	entry, ok := v.symbols.Lookup(name)
	if !ok {
		v.log.Errorf("symbol not found: %s", name)
		return StatusSymbolNotFound
	}

	// Arm the mask before publishing IN_PROGRESS so a short-circuit from a
	// previous run cannot leak into this one.
	v.fetchMask.Store(1)
	v.status.Store(int32(StatusInProgress))

	st := v.interp.Run(entry)
	v.log.Debugf("run %s: %s", name, st.String())
	return st
}

// ShortCircuit asks a running interpreter to unwind. Safe to call from any
// thread at any time; at most one more instruction executes after the store
// is observed.
func (v *VM) ShortCircuit() {
	v.fetchMask.Store(0)
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// Symbols returns the loaded procedure names in sorted order.
func (v *VM) Symbols() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.symbols.Names()
}

// LookupSymbol returns the entry PC bound to name.
func (v *VM) LookupSymbol(name string) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.symbols.Lookup(name)
}

// Image returns the loaded bytecode image, or nil. The caller must not
// mutate it.
func (v *VM) Image() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.image
}

// CompileErrors returns the diagnostics from the most recent failed
// LoadProgram, or nil.
func (v *VM) CompileErrors() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastCompileErrors
}

// CacheStats exposes the compile-cache counters.
func (v *VM) CacheStats() (hits, misses uint64) {
	return v.cache.Stats()
}

// compileErrorLines splits a compiler error into per-diagnostic lines.
func compileErrorLines(err error) []string {
	return strings.Split(strings.TrimRight(err.Error(), "\n"), "\n")
}
