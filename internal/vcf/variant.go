// Package vcf provides VCF file parsing functionality.
package vcf

import "strings"

// Variant represents a single genomic variant from a VCF file.
type Variant struct {
	Chrom         string                 // Chromosome name (e.g., "12", "chr12")
	Pos           int64                  // 1-based genomic position
	ID            string                 // Variant identifier (e.g., rs ID)
	Ref           string                 // Reference allele
	Alt           string                 // Alternate allele(s), comma separated
	Qual          float64                // Quality score
	Filter        string                 // Filter status (PASS or filter name)
	Info          map[string]interface{} // INFO field key-value pairs
	SampleColumns string                 // FORMAT and sample columns, tab joined
}

// VariantType is the class a variant is counted under in accuracy reports.
type VariantType string

const (
	TypeSNP       VariantType = "SNP"
	TypeInsertion VariantType = "Insertion"
	TypeDeletion  VariantType = "Deletion"
	TypeMNP       VariantType = "MNP"
	TypeComplex   VariantType = "Complex"
	TypeSV        VariantType = "SV"
)

// Key returns the identity tuple of the variant.
func (v *Variant) Key() Key {
	return Key{Chrom: v.Chrom, Pos: formatPos(v.Pos), Ref: v.Ref, Alt: v.Alt}
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// IsIndel returns true if the variant is an insertion or deletion.
func (v *Variant) IsIndel() bool {
	return len(v.Ref) != len(v.Alt)
}

// IsInsertion returns true if the variant is an insertion.
func (v *Variant) IsInsertion() bool {
	return len(v.Alt) > len(v.Ref)
}

// IsDeletion returns true if the variant is a deletion.
func (v *Variant) IsDeletion() bool {
	return len(v.Ref) > len(v.Alt)
}

// IsSymbolic returns true if the ALT allele is symbolic (<DEL>, <DUP>, ...)
// or a breakend.
func (v *Variant) IsSymbolic() bool {
	return strings.HasPrefix(v.Alt, "<") || strings.ContainsAny(v.Alt, "[]")
}

// Type classifies the variant by its first ALT allele.
// Insertions and deletions must share the leading (anchor) base; any other
// length change is reported as Complex.
func (v *Variant) Type() VariantType {
	alt := v.Alt
	if i := strings.IndexByte(alt, ','); i >= 0 {
		alt = alt[:i]
	}
	first := &Variant{Ref: v.Ref, Alt: alt}
	if first.IsSymbolic() {
		return TypeSV
	}

	switch {
	case first.IsSNV():
		return TypeSNP
	case !first.IsIndel():
		return TypeMNP
	case len(v.Ref) == 1 && first.IsInsertion() && alt[0] == v.Ref[0]:
		return TypeInsertion
	case len(alt) == 1 && first.IsDeletion() && alt[0] == v.Ref[0]:
		return TypeDeletion
	}
	return TypeComplex
}
