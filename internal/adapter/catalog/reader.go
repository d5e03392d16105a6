package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Row is one raw catalog record: a header-keyed view of a CSV line.
type Row struct {
	Index  int // position within the overall load, used for error reporting
	Source string
	Values map[string]string
}

// Reader loads raw rows from CSV files under a data directory. Which
// files participate is controlled by include and exclude glob patterns.
type Reader struct {
	dataDir  string
	includes []string
	excludes []string
}

func NewReader(dataDir string, includes, excludes []string) *Reader {
	if len(includes) == 0 {
		includes = []string{"**/*.csv"}
	}
	return &Reader{dataDir: dataDir, includes: includes, excludes: excludes}
}

// Load reads every matching file and returns rows in file-then-line
// order. Files are visited in sorted path order so a load is
// reproducible.
func (r *Reader) Load() ([]Row, error) {
	files, err := r.matchFiles()
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, path := range files {
		fileRows, err := r.readFile(path, len(rows))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

func (r *Reader) matchFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(r.dataDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && r.matchesAny(r.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if r.matchesAny(r.includes, rel) && !r.matchesAny(r.excludes, rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func (r *Reader) matchesAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (r *Reader) readFile(path string, offset int) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are handled by the normalizer

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		values := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				values[col] = record[i]
			}
		}
		rows = append(rows, Row{
			Index:  offset + len(rows),
			Source: path,
			Values: values,
		})
	}
	return rows, nil
}
