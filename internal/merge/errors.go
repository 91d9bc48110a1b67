package merge

import (
	"fmt"

	"github.com/inodb/varsim-tools/internal/vcf"
)

// InsufficientInputError is returned when fewer than two inputs are given.
// A single file is not merged; callers copy it instead.
type InsufficientInputError struct {
	Count int
}

func (e *InsufficientInputError) Error() string {
	return fmt.Sprintf("merge needs at least 2 input VCFs, got %d", e.Count)
}

// SortOrderError reports a sorted stream that breaks the sorter's
// post-condition. It is only returned in strict mode.
type SortOrderError struct {
	Line   int
	Key    vcf.Key
	Reason string
}

func (e *SortOrderError) Error() string {
	return fmt.Sprintf("sorted stream out of order at line %d (%s): %s", e.Line, e.Key, e.Reason)
}
