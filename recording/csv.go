package recording

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const timestampColumn = "timestamp"

// CSVStore reads recordings from a directory of "<name>_<actuatorID>.csv" files.
// The header row holds a timestamp column plus one column per channel.
type CSVStore struct {
	dir string
}

// NewCSVStore reads recordings from dir.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

func (s *CSVStore) Dir() string { return s.dir }

// Path returns the file backing a recording.
func (s *CSVStore) Path(name, actuatorID string) string {
	return filepath.Join(s.dir, fileName(name, actuatorID))
}

func fileName(name, actuatorID string) string {
	return fmt.Sprintf("%s_%s.csv", name, actuatorID)
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// Read parses <name>_<actuatorID>.csv.
func (s *CSVStore) Read(name, actuatorID string) ([]Frame, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: invalid recording name %q", ErrNotFound, name)
	}

	path := s.Path(name, actuatorID)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open recording %s: %w", path, err)
	}
	defer f.Close()

	frames, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", path, err)
	}
	return frames, nil
}

// ParseCSV parses a recording table. Every value must be numeric.
func ParseCSV(r io.Reader) ([]Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}

	tsIndex := -1
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
		if header[i] == timestampColumn {
			tsIndex = i
		}
	}
	if tsIndex < 0 {
		return nil, fmt.Errorf("%w: missing %q column", ErrMalformed, timestampColumn)
	}

	var frames []Frame
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, row, err)
		}

		frame := Frame{State: make(map[string]float64, len(header)-1)}
		for i, raw := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %q is not numeric", ErrMalformed, row, header[i], raw)
			}
			if i == tsIndex {
				frame.Timestamp = v
				continue
			}
			frame.State[header[i]] = v
		}
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrMalformed)
	}
	return frames, nil
}

// List returns the sorted names of recordings stored for actuatorID.
// A missing directory yields an empty list.
func (s *CSVStore) List(actuatorID string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read recordings dir: %w", err)
	}

	suffix := "_" + actuatorID + ".csv"
	names := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), suffix)
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Info describes a stored recording file.
type Info struct {
	Name     string    `json:"name"`
	File     string    `json:"file"`
	Rows     int       `json:"rows"`
	Modified time.Time `json:"modified"`
}

// Info counts the data rows of a recording without parsing values.
func (s *CSVStore) Info(name, actuatorID string) (Info, error) {
	path := s.Path(name, actuatorID)
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Info{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows := 0
	for {
		_, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Info{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		rows++
	}
	if rows > 0 {
		rows-- // header
	}

	return Info{
		Name:     name,
		File:     filepath.Base(path),
		Rows:     rows,
		Modified: st.ModTime(),
	}, nil
}

// Create opens a new recording file for writing, creating the directory if needed.
func (s *CSVStore) Create(name, actuatorID string) (*CSVWriter, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid recording name %q", name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}
	f, err := os.Create(s.Path(name, actuatorID))
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	return &CSVWriter{file: f, w: csv.NewWriter(f)}, nil
}

// CSVWriter appends frames to a recording file. The first frame fixes the columns.
type CSVWriter struct {
	file    *os.File
	w       *csv.Writer
	columns []string
}

// WriteFrame appends one row and flushes it.
func (cw *CSVWriter) WriteFrame(frame Frame) error {
	if cw.columns == nil {
		cw.columns = make([]string, 0, len(frame.State))
		for ch := range frame.State {
			cw.columns = append(cw.columns, ch)
		}
		sort.Strings(cw.columns)
		if err := cw.w.Write(append([]string{timestampColumn}, cw.columns...)); err != nil {
			return err
		}
	}

	row := make([]string, 0, len(cw.columns)+1)
	row = append(row, strconv.FormatFloat(frame.Timestamp, 'f', -1, 64))
	for _, ch := range cw.columns {
		row = append(row, strconv.FormatFloat(frame.State[ch], 'f', -1, 64))
	}
	if err := cw.w.Write(row); err != nil {
		return err
	}
	cw.w.Flush()
	return cw.w.Error()
}

func (cw *CSVWriter) Close() error {
	cw.w.Flush()
	return errors.Join(cw.w.Error(), cw.file.Close())
}
