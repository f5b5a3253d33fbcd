package data

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/HannahMarsh/ethp2p-privacy-evaluation/pkg/utils"
	pl "github.com/HannahMarsh/PrettyLogger"
)

// Store persists report rows. Implementations are safe for concurrent use.
type Store interface {
	Save(ctx context.Context, reports []Report) error
	Close() error
}

// CSVStore appends report rows to a CSV file, writing the header when the
// file is new.
type CSVStore struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

func NewCSVStore(path string) (*CSVStore, error) {
	info, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, pl.WrapError(err, "data.NewCSVStore(): failed to open %s", path)
	}
	s := &CSVStore{f: f, w: csv.NewWriter(f)}
	if errors.Is(statErr, os.ErrNotExist) || (statErr == nil && info.Size() == 0) {
		if err = s.w.Write(header); err != nil {
			_ = f.Close()
			return nil, pl.WrapError(err, "data.NewCSVStore(): failed to write header")
		}
		s.w.Flush()
	}
	return s, nil
}

func (s *CSVStore) Save(_ context.Context, reports []Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reports {
		if err := s.w.Write(r.Record()); err != nil {
			return pl.WrapError(err, "data.CSVStore.Save(): failed to write row")
		}
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}

// ReadCSV loads every report row from a file written by CSVStore.
func ReadCSV(path string) ([]Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pl.WrapError(err, "data.ReadCSV(): failed to open %s", path)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, pl.WrapError(err, "data.ReadCSV(): malformed csv")
	}
	reports := make([]Report, 0, len(records))
	for i, record := range records {
		if i == 0 && len(record) > 0 && record[0] == header[0] {
			continue
		}
		r, err := parseRecord(record)
		if err != nil {
			return nil, pl.WrapError(err, "data.ReadCSV(): bad row %d", i)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// JSONStore collects report rows in memory and writes them as one JSON
// array on Close. Paths ending in .gz are gzip compressed.
type JSONStore struct {
	mu      sync.Mutex
	path    string
	reports []Report
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path, reports: make([]Report, 0)}
}

func (s *JSONStore) Save(_ context.Context, reports []Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, reports...)
	return nil
}

func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.MarshalIndent(s.reports, "", "  ")
	if err != nil {
		return pl.WrapError(err, "data.JSONStore.Close(): failed to marshal reports")
	}
	if strings.HasSuffix(s.path, ".gz") {
		err = utils.WriteGzipFile(s.path, b)
	} else {
		err = os.WriteFile(s.path, b, 0644)
	}
	if err != nil {
		return pl.WrapError(err, "data.JSONStore.Close(): failed to write %s", s.path)
	}
	return nil
}

// ReadJSON loads the reports written by a JSONStore.
func ReadJSON(path string) ([]Report, error) {
	var b []byte
	var err error
	if strings.HasSuffix(path, ".gz") {
		b, err = utils.ReadGzipFile(path)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, pl.WrapError(err, "data.ReadJSON(): failed to read %s", path)
	}
	var reports []Report
	if err = json.Unmarshal(b, &reports); err != nil {
		return nil, pl.WrapError(err, "data.ReadJSON(): malformed json")
	}
	return reports, nil
}

// MultiStore fans every call out to all of its stores.
type MultiStore []Store

func (m MultiStore) Save(ctx context.Context, reports []Report) error {
	for _, s := range m {
		if err := s.Save(ctx, reports); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiStore) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
