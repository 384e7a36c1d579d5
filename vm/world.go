package vm

// ---------------------------------------------------------------------------
// World import/export translation
// ---------------------------------------------------------------------------

// WorldCells is the number of bytes in an import or export array.
const WorldCells = GridSize * GridSize

// WallByte is the wall marker in the byte-per-cell exchange format. Inside
// the grid a wall is the nibble WallCell; the translation happens only at
// the import/export boundary.
const WallByte = 255

// RobotRecord is the 5-word robot exchange record: px, py, d, hx, hy.
type RobotRecord [5]uint32

// validWorld checks an import array: row-major, bottom-left origin, each
// byte a flag count 0..MaxFlags or WallByte.
func validWorld(cells []byte) bool {
	if len(cells) != WorldCells {
		return false
	}
	for _, c := range cells {
		if c > MaxFlags && c != WallByte {
			return false
		}
	}
	return true
}

// validRobot checks an import record: position and home on the grid, facing
// one of the four cardinals.
func validRobot(rec RobotRecord) bool {
	return rec[0] < GridSize && rec[1] < GridSize &&
		rec[2] < 4 &&
		rec[3] < GridSize && rec[4] < GridSize
}

// importWorld overwrites the grid and robot from exchange-format data.
// Callers validate first.
func importWorld(g *Grid, r *Robot, cells []byte, rec RobotRecord) {
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			c := cells[x+y*GridSize]
			if c == WallByte {
				c = WallCell
			}
			g.Set(x, y, c)
		}
	}
	*r = Robot{
		X: int(rec[0]), Y: int(rec[1]),
		Dir:   Direction(rec[2]),
		HomeX: int(rec[3]), HomeY: int(rec[4]),
	}
}

// exportWorld writes the grid into out in exchange format, walls as
// WallByte.
func exportWorld(g *Grid, out []byte) {
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			c := g.Get(x, y)
			if c == WallCell {
				c = WallByte
			}
			out[x+y*GridSize] = c
		}
	}
}
