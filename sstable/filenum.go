package sstable

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/Priyanshu23/flashstore/internal/status"
)

const tableFileExt = ".sst"

var tableFileNamePattern = regexp.MustCompile(`^(\d{6,})\.sst$`)

// FileNumbering allocates monotonically increasing table file numbers
// within a directory, resuming after the highest zero-padded *.sst
// name already present.
type FileNumbering struct {
	dir    string
	nextID uint64
}

// NewFileNumbering scans dir for existing *.sst files and resumes
// numbering after the highest one found. The directory is created if
// it does not yet exist.
func NewFileNumbering(dir string) (*FileNumbering, status.Status) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, status.Wrap(err, "sstable: create directory")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, status.Wrap(err, "sstable: read directory")
	}

	var ids []uint64
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		matches := tableFileNamePattern.FindStringSubmatch(entry.Name())
		if len(matches) != 2 {
			continue
		}
		id, err := strconv.ParseUint(matches[1], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fn := &FileNumbering{dir: dir}
	if len(ids) > 0 {
		fn.nextID = ids[len(ids)-1] + 1
	}
	return fn, status.OKStatus
}

// Next allocates and returns the next table file number and its path.
func (fn *FileNumbering) Next() (uint64, string) {
	id := fn.nextID
	fn.nextID++
	return id, fn.Path(id)
}

// Path returns the path a given table file number resolves to.
func (fn *FileNumbering) Path(id uint64) string {
	return filepath.Join(fn.dir, fmt.Sprintf("%06d%s", id, tableFileExt))
}
