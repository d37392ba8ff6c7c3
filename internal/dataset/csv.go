package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type csvReader struct{}

func (csvReader) CanRead(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvReader) Read(path string, opt ReadOptions) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path, br)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	ncol := len(header)
	var records [][]string
	for {
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, padRecord(rec, ncol))
	}
	return header, records, nil
}

// sniffDelimiter picks the candidate that occurs most often in the header
// line, falling back to the extension default.
func sniffDelimiter(path string, br *bufio.Reader) rune {
	def := ','
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		def = '\t'
	}
	head, _ := br.Peek(4096)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best, bestN := def, strings.Count(string(head), string(def))
	for _, c := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(string(head), string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}
