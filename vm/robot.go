package vm

// ---------------------------------------------------------------------------
// Robot: position, home and facing
// ---------------------------------------------------------------------------

// Direction is the robot's cardinal facing. The indices run counter-clockwise
// so that turning left is a single increment mod 4. North increases y.
type Direction uint32

const (
	North Direction = 0
	West  Direction = 1
	South Direction = 2
	East  Direction = 3
)

var directionNames = [4]string{"NORTH", "WEST", "SOUTH", "EAST"}

// String implements the Stringer interface.
func (d Direction) String() string {
	return directionNames[d&3]
}

// Robot is the machine's entire mutable state besides the grid. It is
// replaced wholesale on world import; the primitives mutate X, Y and Dir.
type Robot struct {
	X, Y         int       // current position
	HomeX, HomeY int       // position recorded at world import
	Dir          Direction // cardinal facing
}

// TurnLeft rotates the facing counter-clockwise.
func (r *Robot) TurnLeft() {
	r.Dir = (r.Dir + 1) & 3
}

// AtHome reports whether the robot stands on its home cell.
func (r *Robot) AtHome() bool {
	return r.X == r.HomeX && r.Y == r.HomeY
}

// PreviewStep returns the cell the robot would enter by stepping forward, or
// ok=false when that step would leave the grid. It does not mutate the robot
// and does not consult the grid; wall checks are the caller's.
func (r *Robot) PreviewStep() (x, y int, ok bool) {
	x, y = r.X, r.Y
	switch r.Dir {
	case North:
		y++
	case West:
		x--
	case South:
		y--
	case East:
		x++
	}
	if x < 0 || x >= GridSize || y < 0 || y >= GridSize {
		return 0, 0, false
	}
	return x, y, true
}
