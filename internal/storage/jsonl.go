package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vaultScope/internal/model"
)

// JsonlWarnings appends warnings to a JSONL file, one record per line.
type JsonlWarnings struct {
	path string

	mu       sync.Mutex
	dirReady bool
}

func NewJsonlWarnings(path string) *JsonlWarnings {
	return &JsonlWarnings{path: path}
}

// PutWarning appends w.
func (s *JsonlWarnings) PutWarning(w model.Warning) error {
	line, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal warning: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirReady {
		if dir := filepath.Dir(s.path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create warnings dir: %w", err)
			}
		}
		s.dirReady = true
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open warnings file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write warning: %w", err)
	}
	return nil
}

// CountWarnings tallies recorded warnings per vault, keyed by AddressKey.
// A missing file counts nothing; undecodable lines are ignored.
func (s *JsonlWarnings) CountWarnings() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return counts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open warnings file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var w model.Warning
		if json.Unmarshal(scanner.Bytes(), &w) != nil {
			continue
		}
		counts[AddressKey(strings.TrimSpace(w.Vault))]++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read warnings file: %w", err)
	}
	return counts, nil
}
