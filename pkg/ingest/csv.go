package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

// sniffSize is how much of the input is inspected to decide whether it is
// UTF-8 or Latin-1. GTD exports are Latin-1.
const sniffSize = 64 * 1024

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (*models.RawRecordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV reads a header row followed by data rows. Input that is not valid
// UTF-8 is decoded as Latin-1. Short rows are padded with empty values so
// every row has one value per column.
func ReadCSV(r io.Reader) (*models.RawRecordSet, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var src io.Reader = br
	if !utf8.Valid(trimPartialRune(head)) {
		src = transform.NewReader(br, charmap.ISO8859_1.NewDecoder())
	}

	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("input has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	set := &models.RawRecordSet{Columns: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(set.Rows)+1, err)
		}
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		}
		set.Rows = append(set.Rows, record)
	}

	return set, nil
}

// trimPartialRune drops a trailing incomplete UTF-8 sequence that the sniff
// window may have cut in half.
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			return b
		}
	}
	return b
}
