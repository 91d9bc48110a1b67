package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/varsim-tools/internal/vcf"
)

// SubsetCheck selects how a violated subset precondition is handled.
type SubsetCheck int

const (
	// CheckStrict fails with a PreconditionViolationError.
	CheckStrict SubsetCheck = iota
	// CheckWarn logs the violation and continues.
	CheckWarn
	// CheckOff skips the check.
	CheckOff
)

// ParseSubsetCheck parses "strict", "warn" or "off".
func ParseSubsetCheck(s string) (SubsetCheck, error) {
	switch s {
	case "strict", "":
		return CheckStrict, nil
	case "warn":
		return CheckWarn, nil
	case "off":
		return CheckOff, nil
	}
	return 0, fmt.Errorf("unknown subset check %q (want strict, warn or off)", s)
}

// PreconditionViolationError reports variants of Subset that are absent from
// Superset, which makes the set difference computed by deduplication wrong.
type PreconditionViolationError struct {
	Subset   string
	Superset string
	Missing  int
	Example  vcf.Key
}

func (e *PreconditionViolationError) Error() string {
	return fmt.Sprintf("%d variants of %s are missing from %s (first: %s)", e.Missing, e.Subset, e.Superset, e.Example)
}

const cancelCheckInterval = 4096

// verify checks that every variant key of subset occurs in superset.
func (r *Reconciler) verify(ctx context.Context, subset, superset string) error {
	if r.check == CheckOff {
		return nil
	}

	missing, example, err := missingKeys(ctx, subset, superset)
	if err != nil {
		return fmt.Errorf("check subset: %w", err)
	}
	if missing == 0 {
		return nil
	}

	verr := &PreconditionViolationError{Subset: subset, Superset: superset, Missing: missing, Example: example}
	if r.check == CheckStrict {
		return verr
	}
	r.logger.Warn("subset precondition violated, reconciled set will be inaccurate",
		zap.String("subset", subset),
		zap.String("superset", superset),
		zap.Int("missing", missing),
		zap.Stringer("example", example))
	return nil
}

// missingKeys counts the data records of subset whose key is not in superset.
func missingKeys(ctx context.Context, subset, superset string) (int, vcf.Key, error) {
	keys, err := vcf.ReadKeys(ctx, superset)
	if err != nil {
		return 0, vcf.Key{}, err
	}

	r, err := vcf.NewRecordReader(subset)
	if err != nil {
		return 0, vcf.Key{}, err
	}
	defer r.Close()

	var (
		missing int
		example vcf.Key
	)
	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, vcf.Key{}, err
			}
		}
		rec, err := r.Next()
		if err != nil {
			return 0, vcf.Key{}, fmt.Errorf("%s: %w", subset, err)
		}
		if rec == nil {
			return missing, example, nil
		}
		if rec.Header {
			continue
		}
		if _, ok := keys[rec.Key]; !ok {
			if missing == 0 {
				example = rec.Key
			}
			missing++
		}
	}
}
