// Package curriculum loads the static unit catalogue that bounds what the
// tutor is allowed to say in each exercise.
package curriculum

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

// ErrInvalidUnit is returned for unit numbers outside [1, Max] or falling in
// a gap of the catalogue.
var ErrInvalidUnit = errors.New("invalid unit")

// Unit is one numbered curriculum block.
type Unit struct {
	Number      int      `json:"unit" yaml:"unit"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Vocabulary  []string `json:"vocabulary" yaml:"vocabulary"`
	Phrases     []string `json:"phrases" yaml:"phrases"`
	Grammar     []string `json:"grammar" yaml:"grammar"`
	Goals       []string `json:"goals" yaml:"goals"`
}

// Summary is the list view of a unit.
type Summary struct {
	Number      int    `json:"unit"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type document struct {
	Units []Unit `yaml:"units"`
}

// Store is an immutable, number-indexed view of the catalogue.
type Store struct {
	units  map[int]Unit
	order  []int
	maxNum int
}

// Load reads the catalogue at path. YAML and JSON are both accepted. An empty
// path selects the embedded default catalogue.
func Load(path string) (*Store, error) {
	raw := defaultDocument
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read curriculum: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes a catalogue document.
func Parse(raw []byte) (*Store, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}
	return New(doc.Units)
}

// New builds a store from already-decoded units.
func New(units []Unit) (*Store, error) {
	if len(units) == 0 {
		return nil, errors.New("curriculum has no units")
	}
	s := &Store{units: make(map[int]Unit, len(units))}
	for _, u := range units {
		if u.Number <= 0 {
			return nil, fmt.Errorf("unit %q: number must be positive", u.Title)
		}
		if _, dup := s.units[u.Number]; dup {
			return nil, fmt.Errorf("unit %d defined twice", u.Number)
		}
		if len(u.Vocabulary) == 0 {
			return nil, fmt.Errorf("unit %d: vocabulary is empty", u.Number)
		}
		s.units[u.Number] = cloneUnit(u)
		s.order = append(s.order, u.Number)
		if u.Number > s.maxNum {
			s.maxNum = u.Number
		}
	}
	sort.Ints(s.order)
	return s, nil
}

// Max is the highest unit number in the catalogue.
func (s *Store) Max() int { return s.maxNum }

// Lookup returns a copy of the unit, or false when it does not exist.
func (s *Store) Lookup(number int) (Unit, bool) {
	u, ok := s.units[number]
	if !ok {
		return Unit{}, false
	}
	return cloneUnit(u), true
}

// Resolve validates number for starting an exercise. Out-of-range numbers and
// gaps in the catalogue are both ErrInvalidUnit.
func (s *Store) Resolve(number int) (Unit, error) {
	if number < 1 || number > s.maxNum {
		return Unit{}, fmt.Errorf("%w: %d is outside 1..%d", ErrInvalidUnit, number, s.maxNum)
	}
	u, ok := s.Lookup(number)
	if !ok {
		return Unit{}, fmt.Errorf("%w: unit %d does not exist", ErrInvalidUnit, number)
	}
	return u, nil
}

// List returns the summaries in ascending unit order.
func (s *Store) List() []Summary {
	out := make([]Summary, 0, len(s.order))
	for _, n := range s.order {
		u := s.units[n]
		out = append(out, Summary{Number: u.Number, Title: u.Title, Description: u.Description})
	}
	return out
}

func cloneUnit(u Unit) Unit {
	c := u
	c.Vocabulary = append([]string(nil), u.Vocabulary...)
	c.Phrases = append([]string(nil), u.Phrases...)
	c.Grammar = append([]string(nil), u.Grammar...)
	c.Goals = append([]string(nil), u.Goals...)
	return c
}
