// Package ingest loads raw source files into validated, deduplicated rows.
//
// Row-level problems such as an unparseable timestamp drop the row and are
// counted in Stats. Problems with the file as a whole, like a missing column
// or a schema violation on a validated row, abort with an AppError.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"

	"fintechbi/pkg/errors"
	"fintechbi/pkg/models"
)

// Validation modes
const (
	ModeSample = "sample"
	ModeFull   = "full"
)

// DefaultSampleSize is the number of leading transactions schema-checked in sample mode.
const DefaultSampleSize = 5

// Options tune transaction validation.
type Options struct {
	Mode       string
	SampleSize int
}

// DefaultOptions validates the first DefaultSampleSize rows
func DefaultOptions() Options {
	return Options{Mode: ModeSample, SampleSize: DefaultSampleSize}
}

func (o Options) validates(kept int) bool {
	if o.Mode == ModeFull {
		return true
	}
	size := o.SampleSize
	if size <= 0 {
		size = DefaultSampleSize
	}
	return kept < size
}

// Stats counts what happened to the rows of one source.
// Read always equals Duplicates + Malformed + Kept.
type Stats struct {
	Read       int `json:"read"`
	Duplicates int `json:"duplicates"`
	Malformed  int `json:"malformed"`
	Kept       int `json:"kept"`
}

var timestampLayouts = []string{
	models.TimestampLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	models.DateLayout,
}

var dateLayouts = []string{
	models.DateLayout,
	models.TimestampLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseTime(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseDate(s string) (time.Time, bool) {
	t, ok := parseTime(s, dateLayouts)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// csvSource reads a headered CSV and resolves required columns by name.
type csvSource struct {
	path    string
	reader  *csv.Reader
	columns map[string]int
}

func openCSV(path string, required []string) (*csvSource, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Wrap(err, errors.ErrCodeFileNotFound, "Source file not found").
				WithContext("path", path).
				WithSuggestions("Run 'fintechbi generate' to create the raw files")
		}
		return nil, nil, errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to open source file").
			WithContext("path", path)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, nil, errors.SourceError(path, "Source file is empty", nil)
		}
		return nil, nil, errors.SourceError(path, "Failed to read header", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		f.Close()
		return nil, nil, errors.SourceError(path, "Source file is missing columns", nil).
			WithContext("missing", strings.Join(missing, ","))
	}

	return &csvSource{path: path, reader: r, columns: columns}, f.Close, nil
}

// next returns the next record and its line number, or io.EOF.
func (s *csvSource) next() ([]string, int, error) {
	record, err := s.reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, 0, io.EOF
		}
		return nil, 0, errors.SourceError(s.path, "Failed to parse CSV", err)
	}
	line, _ := s.reader.FieldPos(0)
	return record, line, nil
}

func (s *csvSource) field(record []string, name string) string {
	i := s.columns[name]
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
