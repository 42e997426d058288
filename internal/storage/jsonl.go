package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lpEngine/internal/model"
)

// JsonlJournal appends receipts and operation errors to two JSONL files.
// An empty path disables that stream.
type JsonlJournal struct {
	receiptsPath string
	errorsPath   string
	mu           sync.Mutex
}

var _ Journal = (*JsonlJournal)(nil)

func NewJsonlJournal(receiptsPath, errorsPath string) *JsonlJournal {
	return &JsonlJournal{receiptsPath: receiptsPath, errorsPath: errorsPath}
}

// PutReceipts appends a batch of receipts as JSON lines.
func (j *JsonlJournal) PutReceipts(receipts []model.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}
	return appendLines(&j.mu, j.receiptsPath, len(receipts), func(i int) any { return receipts[i] })
}

// PutErrors appends a batch of rejected requests as JSON lines.
func (j *JsonlJournal) PutErrors(errs []model.OperationError) error {
	if len(errs) == 0 {
		return nil
	}
	return appendLines(&j.mu, j.errorsPath, len(errs), func(i int) any { return errs[i] })
}

func appendLines(mu *sync.Mutex, path string, n int, record func(int) any) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for i := 0; i < n; i++ {
		line, err := json.Marshal(record(i))
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
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
