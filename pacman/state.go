package pacman

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeu5/pacman-rl/types"
)

// GameState is an immutable snapshot of the game after a tick
type GameState struct {
	layout *Layout
	Pacman Position
	Ghosts []Position
	// direction each ghost last moved in
	ghostDirs []*Direction
	food      []bool
	foodLeft  int
	score     float64
	win       bool
	lose      bool
	Tick      int
}

var _ types.State = &GameState{}
var _ types.Winner = &GameState{}

// foodSignature is a 64 bit digest of the remaining food
func (g *GameState) foodSignature() uint64 {
	d := xxhash.New()
	buf := make([]byte, 8)
	for i, f := range g.food {
		if f {
			binary.LittleEndian.PutUint64(buf, uint64(i))
			d.Write(buf)
		}
	}
	return d.Sum64()
}

// Hash of Pacman's position, the ghost positions and the remaining food
func (g *GameState) Hash() string {
	var b strings.Builder
	fmt.Fprintf(&b, "P(%d,%d)", g.Pacman.Row, g.Pacman.Col)
	for _, ghost := range g.Ghosts {
		fmt.Fprintf(&b, "G(%d,%d)", ghost.Row, ghost.Col)
	}
	fmt.Fprintf(&b, "F%016x", g.foodSignature())
	return b.String()
}

// Actions legal for Pacman, including Stop. A finished game has none.
func (g *GameState) Actions() []types.Action {
	if g.Terminal() {
		return []types.Action{}
	}
	actions := make([]types.Action, 0, len(AllDirections))
	for _, d := range AllDirections {
		if d == Stop || !g.layout.IsWall(g.Pacman.Move(d)) {
			actions = append(actions, d)
		}
	}
	return actions
}

func (g *GameState) Score() float64 {
	return g.score
}

func (g *GameState) Terminal() bool {
	return g.win || g.lose
}

func (g *GameState) Won() bool {
	return g.win
}

func (g *GameState) Lost() bool {
	return g.lose
}

func (g *GameState) FoodLeft() int {
	return g.foodLeft
}

// HasFood is true if the cell still holds food
func (g *GameState) HasFood(p Position) bool {
	if !g.layout.inside(p) {
		return false
	}
	return g.food[g.layout.index(p)]
}

func (g *GameState) copy() *GameState {
	food := make([]bool, len(g.food))
	copy(food, g.food)
	ghosts := make([]Position, len(g.Ghosts))
	copy(ghosts, g.Ghosts)
	ghostDirs := make([]*Direction, len(g.ghostDirs))
	copy(ghostDirs, g.ghostDirs)
	return &GameState{
		layout:    g.layout,
		Pacman:    g.Pacman,
		Ghosts:    ghosts,
		ghostDirs: ghostDirs,
		food:      food,
		foodLeft:  g.foodLeft,
		score:     g.score,
		win:       g.win,
		lose:      g.lose,
		Tick:      g.Tick,
	}
}

func (g *GameState) collides() bool {
	for _, ghost := range g.Ghosts {
		if ghost == g.Pacman {
			return true
		}
	}
	return false
}

// String renders the maze with the current positions
func (g *GameState) String() string {
	var b strings.Builder
	l := g.layout
	for row := 0; row < l.Height; row++ {
		for col := 0; col < l.Width; col++ {
			p := Position{Row: row, Col: col}
			switch {
			case l.walls[l.index(p)]:
				b.WriteByte('%')
			case containsPosition(g.Ghosts, p):
				b.WriteByte('G')
			case p == g.Pacman:
				b.WriteByte('P')
			case g.food[l.index(p)]:
				b.WriteByte('.')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Score: %.0f", g.score)
	return b.String()
}
