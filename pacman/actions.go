package pacman

import "github.com/zeu5/pacman-rl/types"

// Direction Pacman or a ghost can move in
type Direction struct {
	Name string
	dRow int
	dCol int
}

var _ types.Action = &Direction{}

func (d *Direction) Hash() string {
	return d.Name
}

// Reverse direction, Stop reverses to itself
func (d *Direction) Reverse() *Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	}
	return Stop
}

var (
	North = &Direction{"North", -1, 0}
	South = &Direction{"South", 1, 0}
	East  = &Direction{"East", 0, 1}
	West  = &Direction{"West", 0, -1}
	Stop  = &Direction{"Stop", 0, 0}

	// enumeration order of legal actions
	AllDirections = []*Direction{North, South, East, West, Stop}
)

// NoopAction is the hash of the action that leaves Pacman in place
const NoopAction = "Stop"

func directionByName(name string) (*Direction, bool) {
	for _, d := range AllDirections {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}
