package vcf

import "testing"

func TestVariant_IsSNV(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		alt  string
		want bool
	}{
		{"A to G", "A", "G", true},
		{"deletion", "AT", "A", false},
		{"insertion", "A", "AT", false},
		{"MNV", "AT", "GC", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{Ref: tt.ref, Alt: tt.alt}
			if got := v.IsSNV(); got != tt.want {
				t.Errorf("IsSNV() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariant_Type(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		alt  string
		want VariantType
	}{
		{"snp", "A", "G", TypeSNP},
		{"insertion", "A", "ATG", TypeInsertion},
		{"deletion", "ATG", "A", TypeDeletion},
		{"mnp", "AT", "GC", TypeMNP},
		{"unanchored insertion", "A", "CTG", TypeComplex},
		{"replacement", "ATG", "CC", TypeComplex},
		{"symbolic", "A", "<DUP>", TypeSV},
		{"breakend", "G", "G]17:198982]", TypeSV},
		{"multi-allelic uses first alt", "A", "G,AT", TypeSNP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &Variant{Ref: tt.ref, Alt: tt.alt}
			if got := v.Type(); got != tt.want {
				t.Errorf("Type() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariant_Key(t *testing.T) {
	v := &Variant{Chrom: "chr1", Pos: 100, Ref: "A", Alt: "T"}
	want := Key{Chrom: "chr1", Pos: "100", Ref: "A", Alt: "T"}
	if got := v.Key(); got != want {
		t.Errorf("Key() = %v, want %v", got, want)
	}
	if got := v.Key().String(); got != "chr1:100:A:T" {
		t.Errorf("Key().String() = %q", got)
	}
}
