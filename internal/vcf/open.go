package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// source is an opened VCF file, transparently decompressed when it starts
// with the gzip magic bytes. BGZF files are multi-member gzip streams and
// are read the same way.
type source struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
}

func openSource(path string) (*source, error) {
	if path == "-" {
		return &source{reader: bufio.NewReader(os.Stdin)}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	s := &source{file: file}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf file: %w", err)
	}

	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		s.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		s.reader = bufio.NewReader(s.gzipReader)
	} else {
		s.reader = bufio.NewReader(file)
	}

	return s, nil
}

// readLine returns the next line without its terminator. It returns io.EOF
// once the input is exhausted; a final line without a newline is returned
// normally.
func (s *source) readLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return trimEOL(line), nil
		}
		return "", err
	}
	return trimEOL(line), nil
}

func (s *source) close() error {
	if s.gzipReader != nil {
		s.gzipReader.Close()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

func trimEOL(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

func isEOF(err error) bool {
	return err == io.EOF
}
