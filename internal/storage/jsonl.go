package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"

	"lendingScope/internal/model"
)

const maxErrorLineSize = 4 << 20

// JsonlErrorLog appends projection errors to a JSONL file for operator review.
// Each event is written once, including across restarts.
type JsonlErrorLog struct {
	path string
	mu   sync.Mutex
	seen map[model.EventID]struct{}
}

func NewJsonlErrorLog(path string) *JsonlErrorLog {
	return &JsonlErrorLog{path: path}
}

// PutProjectionErrors appends the errors whose event is not in the file yet.
func (s *JsonlErrorLog) PutProjectionErrors(errs []model.ProjectionError) error {
	if len(errs) == 0 || s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadSeen(); err != nil {
		return err
	}

	fresh := make([]model.ProjectionError, 0, len(errs))
	batch := make(map[model.EventID]struct{}, len(errs))
	for _, record := range errs {
		id := model.EventID{TxDigest: record.TxDigest, EventSeq: record.EventSeq}
		if _, ok := s.seen[id]; ok {
			continue
		}
		if _, ok := batch[id]; ok {
			continue
		}
		batch[id] = struct{}{}
		fresh = append(fresh, record)
	}
	if len(fresh) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create errors dir: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open errors file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range fresh {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal projection error: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write projection error: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush errors: %w", err)
	}

	for id := range batch {
		s.seen[id] = struct{}{}
	}
	return nil
}

// loadSeen indexes the event ids already in the file. Lines that do not
// parse are ignored.
func (s *JsonlErrorLog) loadSeen() error {
	if s.seen != nil {
		return nil
	}
	seen := make(map[model.EventID]struct{})

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.seen = seen
		return nil
	}
	if err != nil {
		return fmt.Errorf("open errors file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxErrorLineSize)
	for scanner.Scan() {
		fields := gjson.GetManyBytes(scanner.Bytes(), "tx_digest", "event_seq")
		if !fields[0].Exists() {
			continue
		}
		seen[model.EventID{TxDigest: fields[0].String(), EventSeq: fields[1].String()}] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read errors file: %w", err)
	}
	s.seen = seen
	return nil
}
