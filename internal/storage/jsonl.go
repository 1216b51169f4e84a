package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"txsemantics/internal/model"
)

// JsonlStorage appends records and normalization errors to two JSONL files.
// An empty errors path drops errors.
type JsonlStorage struct {
	recordsPath string
	errorsPath  string
	mu          sync.Mutex
}

func NewJsonlStorage(recordsPath, errorsPath string) *JsonlStorage {
	return &JsonlStorage{recordsPath: recordsPath, errorsPath: errorsPath}
}

// PutRecords appends a batch of canonical records as JSON lines.
func (s *JsonlStorage) PutRecords(records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	lines := make([]interface{}, 0, len(records))
	for _, r := range records {
		lines = append(lines, r)
	}
	return s.appendLines(s.recordsPath, lines)
}

// PutErrors appends normalization failures as JSON lines.
func (s *JsonlStorage) PutErrors(errs []model.NormalizeError) error {
	if len(errs) == 0 || s.errorsPath == "" {
		return nil
	}
	lines := make([]interface{}, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, e)
	}
	return s.appendLines(s.errorsPath, lines)
}

func (s *JsonlStorage) appendLines(path string, lines []interface{}) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, v := range lines {
		line, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal line: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write line: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
