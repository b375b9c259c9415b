// Package corpus loads the CPT-4 and ICD-10 reference code tables.
//
// Each table is a CSV file whose rows become one CodeRecord apiece. The
// loader is schema-tolerant: it finds the code and description columns by
// header name and keeps the full row text for embedding, so tables with
// extra columns (effective dates, coverage flags) still index cleanly.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrLoadFailure indicates a reference table failed to parse or load.
// Callers absorb it: the affected table's records are simply absent.
var ErrLoadFailure = errors.New("corpus load failure")

// Source identifies which coding system a record belongs to.
type Source string

// Recognized code table sources.
const (
	SourceCPT Source = "cpt"
	SourceICD Source = "icd"
)

// CodeRecord is one reference entry. Immutable once loaded.
type CodeRecord struct {
	// Code is the billing code (e.g. "99213", "S52.501A").
	Code string

	// Description is the human-readable code description.
	Description string

	// Source is the coding system this record came from.
	Source Source

	// Text is the full row rendered as "column: value" lines. This is what
	// gets embedded; extra columns add retrieval signal.
	Text string
}

// LoadFile parses one CSV code table into records.
//
// The first row is treated as a header. The code column is the first header
// containing "code" (excluding ones that also mention a description), the
// description column the first containing "desc"; when neither matches, the
// first two columns are used. Rows with an empty code are skipped.
func LoadFile(path string, source Source) ([]CodeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrLoadFailure, path, err)
	}
	defer f.Close()

	records, err := parse(f, source)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrLoadFailure, path, err)
	}
	return records, nil
}

func parse(r io.Reader, source Source) ([]CodeRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	codeCol, descCol := detectColumns(header)

	var records []CodeRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}

		code := field(row, codeCol)
		if code == "" {
			continue
		}

		records = append(records, CodeRecord{
			Code:        code,
			Description: field(row, descCol),
			Source:      source,
			Text:        renderRow(header, row),
		})
	}

	return records, nil
}

// detectColumns finds the code and description column indices by header name.
func detectColumns(header []string) (codeCol, descCol int) {
	codeCol, descCol = 0, 1
	codeFound, descFound := false, false

	for i, name := range header {
		lower := strings.ToLower(strings.TrimSpace(name))
		if !codeFound && strings.Contains(lower, "code") && !strings.Contains(lower, "desc") {
			codeCol = i
			codeFound = true
		}
		if !descFound && strings.Contains(lower, "desc") {
			descCol = i
			descFound = true
		}
	}
	return codeCol, descCol
}

// field returns the trimmed cell at idx, or "" for short rows.
func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// renderRow formats a row as "column: value" lines, one per column.
func renderRow(header, row []string) string {
	var b strings.Builder
	for i, value := range row {
		if i > 0 {
			b.WriteByte('\n')
		}
		name := fmt.Sprintf("column%d", i+1)
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(value))
	}
	return b.String()
}
