package pacman

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

type GhostKind string

var (
	// moves uniformly at random
	RandomGhost GhostKind = "random"
	// chases Pacman most of the time
	DirectionalGhost GhostKind = "directional"
)

// probability mass a directional ghost puts on the moves closing in on Pacman
const directionalAttackProb = 0.8

func ParseGhostKind(s string) (GhostKind, error) {
	switch GhostKind(s) {
	case RandomGhost, DirectionalGhost:
		return GhostKind(s), nil
	}
	return "", fmt.Errorf("unknown ghost kind %q", s)
}

// ghostMoves are the directions open to a ghost at pos.
// Ghosts never stop and only turn back at dead ends.
func ghostMoves(layout *Layout, pos Position, last *Direction) []*Direction {
	moves := make([]*Direction, 0, 4)
	for _, d := range AllDirections {
		if d == Stop || layout.IsWall(pos.Move(d)) {
			continue
		}
		moves = append(moves, d)
	}
	if last == nil || last == Stop || len(moves) <= 1 {
		return moves
	}
	forward := make([]*Direction, 0, len(moves))
	for _, d := range moves {
		if d != last.Reverse() {
			forward = append(forward, d)
		}
	}
	return forward
}

// ghostDistribution weights the moves of a ghost
func ghostDistribution(kind GhostKind, pos, pacman Position, moves []*Direction) []float64 {
	weights := make([]float64, len(moves))
	if len(moves) == 0 {
		return weights
	}
	uniform := 1.0 / float64(len(moves))
	if kind != DirectionalGhost {
		for i := range weights {
			weights[i] = uniform
		}
		return weights
	}

	best := make([]int, 0, len(moves))
	bestDist := -1
	for i, d := range moves {
		dist := pos.Move(d).Distance(pacman)
		if bestDist == -1 || dist < bestDist {
			best = best[:0]
			bestDist = dist
		}
		if dist == bestDist {
			best = append(best, i)
		}
	}
	for i := range weights {
		weights[i] = (1 - directionalAttackProb) * uniform
	}
	for _, i := range best {
		weights[i] += directionalAttackProb / float64(len(best))
	}
	return weights
}

// chooseGhostMove samples the next move of a ghost, Stop if it is boxed in
func chooseGhostMove(src rand.Source, kind GhostKind, layout *Layout, pos, pacman Position, last *Direction) *Direction {
	moves := ghostMoves(layout, pos, last)
	if len(moves) == 0 {
		return Stop
	}
	i, ok := sampleuv.NewWeighted(ghostDistribution(kind, pos, pacman, moves), src).Take()
	if !ok {
		return Stop
	}
	return moves[i]
}
