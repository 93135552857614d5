package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is one complaint from a batch import file.
type Row struct {
	Text        string
	SubmitterID string
	Location    string
}

// Parse reads a complaint batch CSV. The first record is a header; the
// "text" column is required, "submitter_id" and "location" are
// optional, and column order does not matter. Rows with an empty text
// field are skipped.
func Parse(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	textIdx, ok := cols["text"]
	if !ok {
		return nil, fmt.Errorf(`missing required "text" column`)
	}

	var rows []Row
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		row := Row{Text: strings.TrimSpace(field(record, textIdx))}
		if row.Text == "" {
			continue
		}
		if i, ok := cols["submitter_id"]; ok {
			row.SubmitterID = strings.TrimSpace(field(record, i))
		}
		if i, ok := cols["location"]; ok {
			row.Location = strings.TrimSpace(field(record, i))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}
