package merge

import "fmt"

// DuplicateMode selects which records survive when adjacent records in the
// sorted stream share a variant key.
type DuplicateMode int

const (
	// KeepAll passes every record through.
	KeepAll DuplicateMode = iota
	// KeepFirst keeps the first record seen for each key.
	KeepFirst
	// KeepNone drops every record whose key occurs more than once.
	KeepNone
)

var modeNames = map[DuplicateMode]string{
	KeepAll:   "all_duplicate",
	KeepFirst: "first_duplicate",
	KeepNone:  "no_duplicate",
}

func (m DuplicateMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("DuplicateMode(%d)", int(m))
}

// ParseDuplicateMode parses the command-line name of a mode.
func ParseDuplicateMode(s string) (DuplicateMode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown duplicate mode %q (want first_duplicate, all_duplicate or no_duplicate)", s)
}

func (m DuplicateMode) valid() bool {
	_, ok := modeNames[m]
	return ok
}

// keep reports whether a record seen count times survives under m.
func (m DuplicateMode) keep(count int) bool {
	switch m {
	case KeepAll, KeepFirst:
		return true
	case KeepNone:
		return count == 1
	}
	return false
}
