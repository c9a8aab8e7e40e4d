package pacman

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

var ErrInvalidLayout = errors.New("invalid layout")

type Position struct {
	Row int
	Col int
}

func (p Position) Move(d *Direction) Position {
	return Position{Row: p.Row + d.dRow, Col: p.Col + d.dCol}
}

func (p Position) Distance(other Position) int {
	return abs(p.Row-other.Row) + abs(p.Col-other.Col)
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// Layout of a maze
//
//	% wall, . food, P Pacman start, G ghost start, space empty
type Layout struct {
	Name        string
	Height      int
	Width       int
	walls       []bool
	food        []bool
	PacmanStart Position
	GhostStarts []Position
}

func (l *Layout) index(p Position) int {
	return p.Row*l.Width + p.Col
}

func (l *Layout) inside(p Position) bool {
	return p.Row >= 0 && p.Row < l.Height && p.Col >= 0 && p.Col < l.Width
}

// IsWall is true for walls and anything outside the maze
func (l *Layout) IsWall(p Position) bool {
	if !l.inside(p) {
		return true
	}
	return l.walls[l.index(p)]
}

// FoodCount is the amount of food at the start of the game
func (l *Layout) FoodCount() int {
	count := 0
	for _, f := range l.food {
		if f {
			count++
		}
	}
	return count
}

// ParseLayout reads the text representation of a maze.
// Rows must have the same width, there must be exactly one Pacman and some food.
func ParseLayout(name, text string) (*Layout, error) {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w %s: empty", ErrInvalidLayout, name)
	}

	l := &Layout{
		Name:        name,
		Height:      len(lines),
		Width:       len(lines[0]),
		GhostStarts: make([]Position, 0),
	}
	l.walls = make([]bool, l.Height*l.Width)
	l.food = make([]bool, l.Height*l.Width)
	pacmen := 0

	for row, line := range lines {
		if len(line) != l.Width {
			return nil, fmt.Errorf("%w %s: row %d has width %d, expected %d", ErrInvalidLayout, name, row, len(line), l.Width)
		}
		for col, c := range line {
			p := Position{Row: row, Col: col}
			switch c {
			case '%':
				l.walls[l.index(p)] = true
			case '.':
				l.food[l.index(p)] = true
			case 'P':
				l.PacmanStart = p
				pacmen++
			case 'G':
				l.GhostStarts = append(l.GhostStarts, p)
			case ' ':
			default:
				return nil, fmt.Errorf("%w %s: unknown symbol %q at (%d, %d)", ErrInvalidLayout, name, c, row, col)
			}
		}
	}
	if pacmen != 1 {
		return nil, fmt.Errorf("%w %s: expected one Pacman, found %d", ErrInvalidLayout, name, pacmen)
	}
	if l.FoodCount() == 0 {
		return nil, fmt.Errorf("%w %s: no food", ErrInvalidLayout, name)
	}
	return l, nil
}

// LoadLayout parses the layout stored in the file
func LoadLayout(path string) (*Layout, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLayout(path, string(bs))
}

var builtinLayouts = map[string]string{
	"tiny": `
%%%%%%%
%P  . %
% %%% %
%.   G%
%%%%%%%
`,
	"small": `
%%%%%%%%%%
%P  .   .%
% %% %%% %
% .    . %
% %%% %% %
%.   G  .%
%%%%%%%%%%
`,
	"medium": `
%%%%%%%%%%%%%%%%
%P.....%......G%
%.%%%%.%.%%%%%.%
%.%  .......  .%
%.%.%%%% %%%%..%
%...... G......%
%%%%%%%%%%%%%%%%
`,
}

// BuiltinLayouts are the names of the layouts shipped with the package
func BuiltinLayouts() []string {
	names := make([]string, 0, len(builtinLayouts))
	for name := range builtinLayouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetLayout returns a built-in layout by name, otherwise reads the name as a file path
func GetLayout(name string) (*Layout, error) {
	if text, ok := builtinLayouts[name]; ok {
		return ParseLayout(name, text)
	}
	return LoadLayout(name)
}

// MustLayout panics if the built-in layout does not parse
func MustLayout(name string) *Layout {
	text, ok := builtinLayouts[name]
	if !ok {
		panic("unknown layout " + name)
	}
	l, err := ParseLayout(name, text)
	if err != nil {
		panic(err)
	}
	return l
}

// String draws the layout
func (l *Layout) String() string {
	var b strings.Builder
	for row := 0; row < l.Height; row++ {
		for col := 0; col < l.Width; col++ {
			p := Position{Row: row, Col: col}
			switch {
			case l.walls[l.index(p)]:
				b.WriteByte('%')
			case p == l.PacmanStart:
				b.WriteByte('P')
			case containsPosition(l.GhostStarts, p):
				b.WriteByte('G')
			case l.food[l.index(p)]:
				b.WriteByte('.')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func containsPosition(ps []Position, p Position) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}
