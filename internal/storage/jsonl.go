package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"historyScope/internal/model"
)

// JSONLFile is an open JSON lines file. Appends are serialized and flushed per call.
type JSONLFile struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	enc    *json.Encoder
}

// OpenJSONL opens path for writing, creating parent directories. With truncate
// the previous content is dropped, otherwise lines are appended.
func OpenJSONL(path string, truncate bool) (*JSONLFile, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	writer := bufio.NewWriter(file)
	return &JSONLFile{file: file, writer: writer, enc: json.NewEncoder(writer)}, nil
}

func appendLines[T any](f *JSONLFile, values []T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range values {
		if err := f.enc.Encode(values[i]); err != nil {
			return fmt.Errorf("encode line %d: %w", i, err)
		}
	}
	if err := f.writer.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", f.file.Name(), err)
	}
	return nil
}

// Close flushes and closes the file.
func (f *JSONLFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writer.Flush(); err != nil {
		f.file.Close()
		return err
	}
	return f.file.Close()
}

// JsonlStorage appends decoded transactions to a JSONL file, one per line.
type JsonlStorage struct {
	out *JSONLFile
}

func NewJsonlStorage(path string) (*JsonlStorage, error) {
	out, err := OpenJSONL(path, false)
	if err != nil {
		return nil, err
	}
	return &JsonlStorage{out: out}, nil
}

func (s *JsonlStorage) PutDecodedBatch(_ context.Context, txs []model.DecodedTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	if err := appendLines(s.out, txs); err != nil {
		return fmt.Errorf("write decoded transactions: %w", err)
	}
	return nil
}

func (s *JsonlStorage) Close() error {
	return s.out.Close()
}

// ErrorLog records transactions that could not be decoded. It starts empty on every run.
type ErrorLog struct {
	out *JSONLFile
}

func NewErrorLog(path string) (*ErrorLog, error) {
	out, err := OpenJSONL(path, true)
	if err != nil {
		return nil, err
	}
	return &ErrorLog{out: out}, nil
}

func (l *ErrorLog) Record(record model.DecodeError) error {
	return appendLines(l.out, []model.DecodeError{record})
}

func (l *ErrorLog) Close() error {
	return l.out.Close()
}
