package pacman

import (
	"errors"
	"fmt"

	"github.com/zeu5/pacman-rl/types"
	"golang.org/x/exp/rand"
)

// scoring rules
const (
	TimePenalty = 1.0
	FoodReward  = 10.0
	WinReward   = 500.0
	LosePenalty = 500.0
)

var (
	ErrIllegalAction = errors.New("illegal action")
	ErrGameOver      = errors.New("game is over")
)

type Config struct {
	Layout *Layout
	// number of ghosts placed, negative places one on every ghost start
	NumGhosts int
	GhostKind GhostKind
	// 0 seeds from the clock
	Seed uint64
}

// Environment is the game host: Pacman moves first, then every ghost
type Environment struct {
	config Config
	layout *Layout
	rand   rand.Source
	state  *GameState
}

var _ types.Environment = &Environment{}

func NewEnvironment(config Config) (*Environment, error) {
	if config.Layout == nil {
		return nil, fmt.Errorf("%w: no layout", ErrInvalidLayout)
	}
	if config.GhostKind == "" {
		config.GhostKind = RandomGhost
	}
	if _, err := ParseGhostKind(string(config.GhostKind)); err != nil {
		return nil, err
	}
	if config.NumGhosts < 0 || config.NumGhosts > len(config.Layout.GhostStarts) {
		config.NumGhosts = len(config.Layout.GhostStarts)
	}
	e := &Environment{
		config: config,
		layout: config.Layout,
		rand:   rand.NewSource(types.ResolveSeed(config.Seed)),
	}
	e.Reset()
	return e, nil
}

func (e *Environment) Layout() *Layout {
	return e.layout
}

// State of the current game
func (e *Environment) State() *GameState {
	return e.state
}

func (e *Environment) Reset() types.State {
	food := make([]bool, len(e.layout.food))
	copy(food, e.layout.food)
	ghosts := make([]Position, e.config.NumGhosts)
	copy(ghosts, e.layout.GhostStarts[:e.config.NumGhosts])
	e.state = &GameState{
		layout:    e.layout,
		Pacman:    e.layout.PacmanStart,
		Ghosts:    ghosts,
		ghostDirs: make([]*Direction, e.config.NumGhosts),
		food:      food,
		foodLeft:  e.layout.FoodCount(),
	}
	return e.state
}

func (e *Environment) Step(a types.Action) (types.State, error) {
	if e.state.Terminal() {
		return nil, ErrGameOver
	}
	d, ok := a.(*Direction)
	if !ok {
		if d, ok = directionByName(a.Hash()); !ok {
			return nil, fmt.Errorf("%w: %s", ErrIllegalAction, a.Hash())
		}
	}
	target := e.state.Pacman.Move(d)
	if e.layout.IsWall(target) {
		return nil, fmt.Errorf("%w: %s into a wall at (%d, %d)", ErrIllegalAction, d.Name, target.Row, target.Col)
	}

	next := e.state.copy()
	next.Tick++
	next.Pacman = target
	next.score -= TimePenalty

	idx := e.layout.index(target)
	if next.food[idx] {
		next.food[idx] = false
		next.foodLeft--
		next.score += FoodReward
		if next.foodLeft == 0 {
			next.score += WinReward
			next.win = true
		}
	}
	if !next.win && next.collides() {
		next.score -= LosePenalty
		next.lose = true
	}

	for i := 0; i < len(next.Ghosts) && !next.Terminal(); i++ {
		move := chooseGhostMove(e.rand, e.config.GhostKind, e.layout, next.Ghosts[i], next.Pacman, next.ghostDirs[i])
		next.Ghosts[i] = next.Ghosts[i].Move(move)
		next.ghostDirs[i] = move
		if next.Ghosts[i] == next.Pacman {
			next.score -= LosePenalty
			next.lose = true
		}
	}

	e.state = next
	return next, nil
}
