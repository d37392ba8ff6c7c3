package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ReadOptions controls how a source file is read into raw records.
type ReadOptions struct {
	// Delimiter for CSV. If 0, it is sniffed from the header line.
	Delimiter rune
	// SheetName selects an XLSX sheet; if empty SheetIndex (1-based) is used.
	SheetName  string
	SheetIndex int
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
}

// Reader turns a source file into a header and raw string records.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt ReadOptions) (header []string, records [][]string, err error)
}

var readers []Reader

// RegisterReader adds a source reader. Later registrations are consulted last.
func RegisterReader(r Reader) {
	readers = append(readers, r)
}

func readerFor(path string) (Reader, error) {
	for _, r := range readers {
		if r.CanRead(path) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("unsupported dataset format %q (use .csv, .tsv or .xlsx)", strings.ToLower(filepath.Ext(path)))
}

func init() {
	RegisterReader(csvReader{})
	RegisterReader(xlsxReader{})
}

// padRecord returns rec widened to n cells.
func padRecord(rec []string, n int) []string {
	if len(rec) >= n {
		return rec[:n]
	}
	tmp := make([]string, n)
	copy(tmp, rec)
	return tmp
}
