package policies

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Key of a value table entry
type Key struct {
	State  string
	Action string
}

// QTable maps (state, action) pairs to value estimates.
// Missing entries read as the supplied default and are only created by Set.
type QTable struct {
	table map[Key]float64
}

func NewQTable() *QTable {
	return &QTable{
		table: make(map[Key]float64),
	}
}

func (q *QTable) Get(state, action string, def float64) float64 {
	val, ok := q.table[Key{State: state, Action: action}]
	if !ok {
		return def
	}
	return val
}

func (q *QTable) Set(state, action string, val float64) {
	q.table[Key{State: state, Action: action}] = val
}

func (q *QTable) Has(state, action string) bool {
	_, ok := q.table[Key{State: state, Action: action}]
	return ok
}

// Len is the number of stored entries
func (q *QTable) Len() int {
	return len(q.table)
}

// MaxAmong returns the action with the highest value among actions.
// Ties go to the earliest action in the slice, an empty slice returns ("", def)
func (q *QTable) MaxAmong(state string, actions []string, def float64) (string, float64) {
	if len(actions) == 0 {
		return "", def
	}
	maxAction := actions[0]
	maxVal := q.Get(state, actions[0], def)
	for _, a := range actions[1:] {
		val := q.Get(state, a, def)
		if val > maxVal {
			maxAction = a
			maxVal = val
		}
	}
	return maxAction, maxVal
}

// Record writes the table as JSON, grouped by state
func (q *QTable) Record(path string) error {
	out := make(map[string]map[string]float64)
	for k, v := range q.table {
		if _, ok := out[k.State]; !ok {
			out[k.State] = make(map[string]float64)
		}
		out[k.State][k.Action] = v
	}
	bs, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return err
	}
	return os.WriteFile(path, bs, 0644)
}
