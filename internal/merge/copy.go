package merge

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// CopyVCF places a single input at outputPath without merging. A BGZF input
// is copied to outputPath.gz along with its index, or indexed if it has none.
// A plain input is copied, then compressed and indexed when compress is set.
// The path written is returned.
func (m *Merger) CopyVCF(ctx context.Context, outputPath, input string, compress bool) (string, error) {
	log := m.logger.With(zap.String("output", outputPath), zap.String("input", input))

	if !strings.HasSuffix(input, ".gz") {
		if err := copyFile(input, outputPath); err != nil {
			return "", err
		}
		if !compress {
			return outputPath, nil
		}
		return m.compress(ctx, outputPath, log)
	}

	gzPath := outputPath + ".gz"
	tmp, err := createTemp(gzPath, "copy")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	err = copyContents(tmp, input)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}

	srcIndex, dstIndex := input+".tbi", gzPath+".tbi"
	if m.indexer != nil {
		srcIndex, dstIndex = m.indexer.IndexPath(input), m.indexer.IndexPath(gzPath)
	}
	if _, err := os.Stat(srcIndex); err != nil {
		if err := m.indexAndPromote(ctx, tmp.Name(), gzPath, log); err != nil {
			return "", err
		}
		return gzPath, nil
	}

	if err := copyFile(srcIndex, dstIndex); err != nil {
		return "", err
	}
	if err := promote(tmp.Name(), gzPath); err != nil {
		os.Remove(dstIndex)
		return "", err
	}
	return gzPath, nil
}

// copyFile copies src to dst through a temp file renamed into place.
func copyFile(src, dst string) error {
	tmp, err := createTemp(dst, "copy")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = copyContents(tmp, src)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return promote(tmp.Name(), dst)
}

func copyContents(w io.Writer, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}
