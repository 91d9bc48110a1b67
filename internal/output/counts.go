// Package output formats comparison summaries.
package output

import (
	"math"

	"github.com/inodb/varsim-tools/internal/vcf"
)

// AllTypes labels the row that totals every variant type.
const AllTypes = "All"

// Counts holds the reconciled call counts for one variant type.
type Counts struct {
	VariantType string `json:"variant_type"`
	TP          int    `json:"tp"`
	FN          int    `json:"fn"`
	FP          int    `json:"fp"`
}

// T returns the number of true variants.
func (c Counts) T() int {
	return c.TP + c.FN
}

// Recall returns TP/T, or NaN when there are no true variants.
func (c Counts) Recall() float64 {
	if c.T() == 0 {
		return math.NaN()
	}
	return float64(c.TP) / float64(c.T())
}

// Precision returns TP/(TP+FP), or NaN when there are no calls.
func (c Counts) Precision() float64 {
	if c.TP+c.FP == 0 {
		return math.NaN()
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// F1 returns the harmonic mean of recall and precision, or NaN when it is undefined.
func (c Counts) F1() float64 {
	r, p := c.Recall(), c.Precision()
	if math.IsNaN(r) || math.IsNaN(p) || r+p == 0 {
		return math.NaN()
	}
	return 2 * r * p / (r + p)
}

// Total sums counts over all variant types.
func Total(counts []Counts) Counts {
	total := Counts{VariantType: AllTypes}
	for _, c := range counts {
		total.TP += c.TP
		total.FN += c.FN
		total.FP += c.FP
	}
	return total
}

// typeOrder ranks variant types for display.
var typeOrder = map[string]int{
	string(vcf.TypeSNP):       0,
	string(vcf.TypeInsertion): 1,
	string(vcf.TypeDeletion):  2,
	string(vcf.TypeMNP):       3,
	string(vcf.TypeComplex):   4,
	string(vcf.TypeSV):        5,
}

// rank orders known types first, then others by name.
func rank(variantType string) int {
	if r, ok := typeOrder[variantType]; ok {
		return r
	}
	return len(typeOrder)
}
