package state

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	KindSubmit = "submit"
	KindShell  = "shell"
)

// Entry is one agent action and what came back.
type Entry struct {
	Time       time.Time `json:"time"`
	ProblemID  string    `json:"problem_id,omitempty"`
	Kind       string    `json:"kind"`
	Input      string    `json:"input"`
	StatusCode int       `json:"status_code,omitempty"`
	ExitCode   int       `json:"exit_code"`
	Output     string    `json:"output"`
}

// Append adds e to the JSON-lines transcript at path.
func Append(path string, e Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create transcript dir failed: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal transcript entry failed: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript failed: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("write transcript failed: %w", err)
	}
	return f.Close()
}

// Load reads every entry at path. A missing transcript is empty.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read transcript failed: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("parse transcript failed: %w", err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript failed: %w", err)
	}
	return entries, nil
}

func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove transcript failed: %w", err)
	}
	return nil
}
