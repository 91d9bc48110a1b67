package duckdb

import (
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// StatFiles fingerprints files keyed by role. Empty paths are skipped.
func StatFiles(paths map[string]string) (map[string]FileFingerprint, error) {
	out := make(map[string]FileFingerprint, len(paths))
	for role, path := range paths {
		if path == "" {
			continue
		}
		fp, err := StatFile(path)
		if err != nil {
			return nil, err
		}
		out[role] = fp
	}
	return out, nil
}

// Changed reports whether the file at fp.Path no longer matches fp.
func (fp FileFingerprint) Changed() bool {
	cur, err := StatFile(fp.Path)
	if err != nil {
		return true
	}
	// The store keeps microsecond timestamps.
	return cur.Size != fp.Size || !cur.ModTime.Truncate(time.Microsecond).Equal(fp.ModTime.Truncate(time.Microsecond))
}
