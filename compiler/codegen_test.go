package compiler

import (
	"strings"
	"testing"

	"github.com/atvexy/karel/vm"
)

// ---------------------------------------------------------------------------
// Codegen unit tests
// ---------------------------------------------------------------------------

func TestCompileImageLayout(t *testing.T) {
	prog, err := Compile([]byte("define main step end"))
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	// Offset 0 is the synthetic halt RETN.
	op, _, _ := vm.DecodeHead(prog.Code[0])
	if op != vm.OpRetn {
		t.Fatalf("offset 0 = %s, want RETN", op)
	}

	entry, ok := prog.Symbols.Lookup("main")
	if !ok {
		t.Fatal("main not in symbol table")
	}
	if entry != 1 {
		t.Errorf("entry = %d, want 1", entry)
	}
	op, _, _ = vm.DecodeHead(prog.Code[entry])
	if op != vm.OpStep {
		t.Errorf("first instruction = %s, want STEP", op)
	}
	op, _, _ = vm.DecodeHead(prog.Code[entry+1])
	if op != vm.OpRetn {
		t.Errorf("body terminator = %s, want RETN", op)
	}
}

func TestCompileNamesAreCaseInsensitive(t *testing.T) {
	prog, err := Compile([]byte("define Main step end"))
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, ok := prog.Symbols.Lookup("main"); !ok {
		t.Error("definition name was not normalized to lower case")
	}
}

func TestCompileForwardReference(t *testing.T) {
	prog, err := Compile([]byte(`
define main
  helper
end

define helper
  left
end
`))
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	entry, _ := prog.Symbols.Lookup("main")
	op, cond, invert := vm.DecodeHead(prog.Code[entry])
	if op != vm.OpBranchLinked || cond != vm.CondNone || invert {
		t.Fatalf("call head = (%s,%s,%v), want plain BRANCH_LINKED", op, cond, invert)
	}
	helper, _ := prog.Symbols.Lookup("helper")
	if got := vm.ReadBranchTarget(prog.Code, entry); got != helper {
		t.Errorf("backpatched target = %d, want %d", got, helper)
	}
}

func TestCompileIfEmitsInvertedBranch(t *testing.T) {
	prog, err := Compile([]byte("define main if wall then step end end"))
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	entry, _ := prog.Symbols.Lookup("main")
	op, cond, invert := vm.DecodeHead(prog.Code[entry])
	if op != vm.OpBranch || cond != vm.CondWall || !invert {
		t.Errorf("if head = (%s,%s,%v), want BRANCH NOT IS_WALL", op, cond, invert)
	}
	// The skip target is the instruction after the then-arm.
	target := vm.ReadBranchTarget(prog.Code, entry)
	op, _, _ = vm.DecodeHead(prog.Code[target])
	if op != vm.OpRetn {
		t.Errorf("skip target lands on %s, want RETN", op)
	}
}

func TestCompileRepeatPointsAtBodyTop(t *testing.T) {
	prog, err := Compile([]byte("define main repeat 3 times place end end"))
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	entry, _ := prog.Symbols.Lookup("main")

	op, _, _ := vm.DecodeHead(prog.Code[entry])
	if op != vm.OpPlace {
		t.Fatalf("loop body head = %s, want PLACE", op)
	}
	op, _, _ = vm.DecodeHead(prog.Code[entry+1])
	if op != vm.OpRepeat {
		t.Fatalf("after body = %s, want REPEAT", op)
	}
	top, count := vm.ReadRepeat(prog.Code, entry+1)
	if top != entry || count != 3 {
		t.Errorf("repeat operands = (%d,%d), want (%d,3)", top, count, entry)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"duplicate definition", "define main step end define main left end", "duplicate definition"},
		{"undefined call", "define main missing end", "undefined procedure"},
		{"repeat count zero", "define main repeat 0 times step end end", "out of range"},
		{"repeat count too large", "define main repeat 70000 times step end end", "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]byte(tt.src))
			if err == nil {
				t.Fatal("expected a compile error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// End-to-end: compiled programs through the VM
// ---------------------------------------------------------------------------

// runSource compiles source, loads an empty world with the robot at (5,5)
// facing north, runs entry, and returns the VM and final status.
func runSource(t *testing.T, source, entry string) (*vm.VM, vm.Status) {
	t.Helper()
	v := vm.NewVM()
	v.UseCompiler(Compile)
	if st := v.LoadProgram([]byte(source)); st != vm.StatusSuccess {
		t.Fatalf("LoadProgram = %s, errors: %v", st, v.CompileErrors())
	}
	cells := make([]byte, vm.WorldCells)
	if st := v.LoadWorld(cells, vm.RobotRecord{5, 5, 0, 5, 5}); st != vm.StatusSuccess {
		t.Fatalf("LoadWorld = %s", st)
	}
	return v, v.RunSymbol(entry)
}

func TestEndToEndStepAndCall(t *testing.T) {
	v, st := runSource(t, `
define main
  forward
  step
end

define forward
  step
end
`, "main")
	if st != vm.StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", st)
	}
	rec := v.RobotState()
	if rec[0] != 5 || rec[1] != 7 {
		t.Errorf("robot at (%d,%d), want (5,7)", rec[0], rec[1])
	}
}

func TestEndToEndRepeatPlaces(t *testing.T) {
	v, st := runSource(t, `
define main
  repeat 3 times
    place
  end
end
`, "main")
	if st != vm.StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", st)
	}
	out := make([]byte, vm.WorldCells)
	v.ReadWorld(out)
	if got := out[5+5*vm.GridSize]; got != 3 {
		t.Errorf("cell (5,5) = %d, want 3", got)
	}
}

func TestEndToEndIfElse(t *testing.T) {
	// Robot faces north mid-grid: "not wall" holds, so the then-arm steps.
	v, st := runSource(t, `
define main
  if not wall then
    step
  else
    place
  end
end
`, "main")
	if st != vm.StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", st)
	}
	rec := v.RobotState()
	if rec[1] != 6 {
		t.Errorf("then-arm did not run: robot y = %d", rec[1])
	}
	out := make([]byte, vm.WorldCells)
	v.ReadWorld(out)
	if out[5+5*vm.GridSize] != 0 {
		t.Error("else-arm ran as well")
	}
}

func TestEndToEndWalkToWall(t *testing.T) {
	// Walk north until the boundary, then stop: ends on the top row having
	// never faulted.
	v, st := runSource(t, `
define main
  repeat 19 times
    if not wall then
      step
    end
  end
end
`, "main")
	if st != vm.StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", st)
	}
	rec := v.RobotState()
	if rec[1] != vm.GridSize-1 {
		t.Errorf("robot y = %d, want %d", rec[1], vm.GridSize-1)
	}
}

func TestEndToEndStop(t *testing.T) {
	_, st := runSource(t, `
define main
  stop
  step
end
`, "main")
	if st != vm.StatusStopEncountered {
		t.Fatalf("status = %s, want STOP_ENCOUNTERED", st)
	}
}

func TestEndToEndPrimitiveFault(t *testing.T) {
	_, st := runSource(t, `
define main
  pickup
end
`, "main")
	if st != vm.StatusPickupZeroFlags {
		t.Fatalf("status = %s, want PICKUP_ZERO_FLAGS", st)
	}
}
