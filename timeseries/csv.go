package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVOptions holds options for FRED-MD style CSV files.
type CSVOptions struct {
	DateColumn  string    // Column name for dates (default: "sasdate", falls back to the first column)
	DateFormat  string    // Preferred date format (default: "1/2/2006")
	Delimiter   rune      // Field delimiter (default: ',')
	MaxScanRows int       // Rows after the header searched for embedded codes (default: 5)
	Frequency   Frequency // Panel frequency (default: Monthly)
}

// DefaultCSVOptions returns default options for FRED-MD files.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		DateColumn:  "sasdate",
		DateFormat:  "1/2/2006",
		Delimiter:   ',',
		MaxScanRows: 5,
		Frequency:   Monthly,
	}
}

// FREDMD is a parsed FRED-MD vintage.
type FREDMD struct {
	Panel *Panel
	// Codes holds the embedded transformation codes, empty if the file has none.
	Codes map[string]int
	// CodeRow is the 0-based file row of the codes (header is row 0), -1 if absent.
	CodeRow int
	// DateColumn is the header name of the date column.
	DateColumn string
}

var dateFormats = []string{
	"1/2/2006",
	"01/02/2006",
	"2006-01-02",
	"2006/01/02",
	"2006-01",
	"2006-01-02T15:04:05",
}

var missingTokens = map[string]bool{
	"": true, "NA": true, "NaN": true, "nan": true, "null": true, ".": true,
}

// LoadFREDMD loads a FRED-MD style CSV file.
func LoadFREDMD(filename string, opts *CSVOptions) (*FREDMD, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadFREDMDFromReader(file, opts)
}

// LoadFREDMDFromReader parses a FRED-MD style CSV: a header row naming the
// date column and the series, an optional row of transformation codes within
// the first few rows, then one row per date.
func LoadFREDMDFromReader(r io.Reader, opts *CSVOptions) (*FREDMD, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}
	o := *opts
	opts = &o
	def := DefaultCSVOptions()
	if opts.Delimiter == 0 {
		opts.Delimiter = def.Delimiter
	}
	if opts.MaxScanRows <= 0 {
		opts.MaxScanRows = def.MaxScanRows
	}
	if opts.Frequency == FrequencyUnknown {
		opts.Frequency = def.Frequency
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, errors.New("no data rows found in CSV")
	}

	header := make([]string, len(records[0]))
	dateIdx := 0
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.Trim(h, "\ufeff\""))
		if opts.DateColumn != "" && header[i] == opts.DateColumn {
			dateIdx = i
		}
	}

	out := &FREDMD{
		Codes:      make(map[string]int),
		CodeRow:    -1,
		DateColumn: header[dateIdx],
	}

	// Step 1: locate the embedded code row
	for i := 1; i < len(records) && i <= opts.MaxScanRows; i++ {
		if codes, ok := parseCodeRow(records[i], header, dateIdx, opts.DateFormat); ok {
			out.Codes = codes
			out.CodeRow = i
			break
		}
	}

	// Step 2: read data rows
	columns := make([][]Value, len(header))
	var timestamps []time.Time
	for i := 1; i < len(records); i++ {
		if i == out.CodeRow {
			continue
		}
		record := records[i]
		if dateIdx >= len(record) || strings.TrimSpace(record[dateIdx]) == "" {
			continue
		}
		ts, err := parseDate(record[dateIdx], opts.DateFormat)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		timestamps = append(timestamps, ts)
		for j := range header {
			if j == dateIdx {
				continue
			}
			cell := ""
			if j < len(record) {
				cell = strings.TrimSpace(strings.Trim(record[j], "\""))
			}
			if missingTokens[cell] {
				columns[j] = append(columns[j], Missing())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: invalid value %q", i, header[j], cell)
			}
			columns[j] = append(columns[j], FromFloat(v))
		}
	}
	if len(timestamps) == 0 {
		return nil, errors.New("no valid data found in CSV")
	}

	// Step 3: assemble the panel
	panel := NewPanel(timestamps, opts.Frequency)
	for j, name := range header {
		if j == dateIdx || name == "" {
			continue
		}
		s, err := NewWithTimestamps(name, timestamps, columns[j])
		if err != nil {
			return nil, err
		}
		s.Frequency = opts.Frequency
		if err := panel.Add(s); err != nil {
			return nil, err
		}
	}
	out.Panel = panel
	return out, nil
}

// parseCodeRow reports whether record holds a transformation code for every
// series column.
func parseCodeRow(record, header []string, dateIdx int, dateFormat string) (map[string]int, bool) {
	if dateIdx < len(record) {
		if _, err := parseDate(record[dateIdx], dateFormat); err == nil {
			return nil, false
		}
	}
	codes := make(map[string]int)
	for j, name := range header {
		if j == dateIdx || name == "" {
			continue
		}
		if j >= len(record) {
			return nil, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[j]), 64)
		if err != nil || v != math.Trunc(v) || v < 1 || v > 7 {
			return nil, false
		}
		codes[name] = int(v)
	}
	return codes, len(codes) > 0
}

func parseDate(s, preferred string) (time.Time, error) {
	s = strings.TrimSpace(strings.Trim(s, "\""))
	formats := dateFormats
	if preferred != "" {
		formats = append([]string{preferred}, dateFormats...)
	}
	for _, f := range formats {
		if ts, err := time.Parse(f, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// SavePanelCSV saves a panel to a CSV file.
func SavePanelCSV(p *Panel, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WritePanelCSV(file, p, ""); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WritePanelCSV writes a panel with one row per index date. Missing values
// are written as empty cells. dateColumn defaults to "sasdate".
func WritePanelCSV(w io.Writer, p *Panel, dateColumn string) error {
	if dateColumn == "" {
		dateColumn = "sasdate"
	}
	writer := csv.NewWriter(w)

	series := p.Series()
	header := make([]string, 0, len(series)+1)
	header = append(header, dateColumn)
	for _, s := range series {
		header = append(header, s.Name)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, ts := range p.Index {
		row[0] = ts.Format("1/2/2006")
		for j, s := range series {
			v := s.Values[i]
			if v.Valid {
				row[j+1] = strconv.FormatFloat(v.Float, 'g', -1, 64)
			} else {
				row[j+1] = ""
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
