package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/atvexy/karel/vm"
)

// printWorld renders the VM's world as ASCII, top row first so north is up.
// Walls are '#', empty cells '.', flag counts their digit, and the robot an
// arrow showing its facing.
func printWorld(vmInst *vm.VM) {
	cells := make([]byte, vm.WorldCells)
	if st := vmInst.ReadWorld(cells); st != vm.StatusSuccess {
		fmt.Fprintf(os.Stderr, "cannot read world: %s\n", st)
		return
	}
	robot := vmInst.RobotState()
	arrows := [4]byte{'^', '<', 'v', '>'} // indexed by facing

	var sb strings.Builder
	for y := vm.GridSize - 1; y >= 0; y-- {
		for x := 0; x < vm.GridSize; x++ {
			if uint32(x) == robot[0] && uint32(y) == robot[1] {
				sb.WriteByte(arrows[robot[2]&3])
				continue
			}
			switch c := cells[x+y*vm.GridSize]; {
			case c == vm.WallByte:
				sb.WriteByte('#')
			case c == 0:
				sb.WriteByte('.')
			default:
				sb.WriteByte('0' + c)
			}
		}
		sb.WriteByte('\n')
	}
	fmt.Print(sb.String())
}
