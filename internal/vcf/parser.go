package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser reads variants from a VCF file.
type Parser struct {
	src        *source
	lineNumber int
}

// NewParser creates a new VCF parser for the given file.
// Supports both plain VCF and gzipped VCF (.vcf.gz) files.
func NewParser(path string) (*Parser, error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}

	p := &Parser{src: src}
	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// parseHeader skips the VCF header through the #CHROM line.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.src.readLine()
		if err != nil {
			if isEOF(err) {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		if strings.HasPrefix(line, "##") {
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			return nil
		}

		return &ParseError{
			Line:    p.lineNumber,
			Message: "expected #CHROM header line",
		}
	}

	return &ParseError{
		Line:    p.lineNumber,
		Message: "no #CHROM header line found",
	}
}

// Next reads the next variant from the VCF file.
// Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, err := p.src.readLine()
		if err != nil {
			if isEOF(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		p.lineNumber++

		if line == "" {
			continue
		}
		return p.parseLine(line)
	}
}

// parseLine parses a single VCF data line into a Variant.
func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 5 {
		return nil, &MalformedRecordError{Line: p.lineNumber, Fields: len(fields), Text: line}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	v := &Variant{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    fields[4],
		Filter: ".",
		Info:   map[string]interface{}{},
	}

	// Comparator outputs may be trimmed to the first columns.
	if len(fields) > 5 && fields[5] != "." {
		v.Qual, _ = strconv.ParseFloat(fields[5], 64)
	}
	if len(fields) > 6 {
		v.Filter = fields[6]
	}
	if len(fields) > 7 {
		v.Info = parseInfo(fields[7])
	}
	if len(fields) > 8 {
		v.SampleColumns = strings.Join(fields[8:], "\t")
	}

	return v, nil
}

// parseInfo parses the INFO field into a map.
func parseInfo(info string) map[string]interface{} {
	result := make(map[string]interface{})
	if info == "." {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		} else {
			// Flag-type INFO field
			result[parts[0]] = true
		}
	}

	return result
}

// SplitMultiAllelic splits a multi-allelic variant into separate variants.
func SplitMultiAllelic(v *Variant) []*Variant {
	alts := strings.Split(v.Alt, ",")
	if len(alts) == 1 {
		return []*Variant{v}
	}

	variants := make([]*Variant, len(alts))
	for i, alt := range alts {
		variants[i] = &Variant{
			Chrom:         v.Chrom,
			Pos:           v.Pos,
			ID:            v.ID,
			Ref:           v.Ref,
			Alt:           alt,
			Qual:          v.Qual,
			Filter:        v.Filter,
			Info:          v.Info, // shared, not copied
			SampleColumns: v.SampleColumns,
		}
	}

	return variants
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	return p.src.close()
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
