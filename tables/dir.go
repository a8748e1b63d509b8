package tables

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DirSource serves resources from a local directory and supports writes.
// Writes are serialized by a single mutex.
type DirSource struct {
	Root string
	mu   sync.Mutex
}

var _ ReadWriter = (*DirSource)(nil)

func NewDirSource(root string) *DirSource {
	return &DirSource{Root: root}
}

func (s *DirSource) path(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.Root, name), nil
}

func (s *DirSource) Fetch(ctx context.Context, name string) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", &FetchError{Name: name, Err: err}
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return "", &FetchError{Name: name, Err: err}
	}
	return string(data), nil
}

// AppendRow appends one comma-joined row, creating the file if needed.
func (s *DirSource) AppendRow(ctx context.Context, name string, fields []string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	// Keep rows on their own line even if the file lacks a final newline.
	prefix := ""
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		last := make([]byte, 1)
		if rf, err := os.Open(p); err == nil {
			if _, err := rf.ReadAt(last, info.Size()-1); err == nil && last[0] != '\n' {
				prefix = "\n"
			}
			rf.Close()
		}
	}

	if _, err := f.WriteString(prefix + strings.Join(fields, ",") + "\n"); err != nil {
		return fmt.Errorf("failed to append to %s: %w", name, err)
	}
	return nil
}

// UpdateRows rewrites the file, passing every non-blank line to update.
// Unchanged lines are written back byte for byte. The rewrite goes through
// a temporary file and a rename so readers never see a partial table.
func (s *DirSource) UpdateRows(ctx context.Context, name string, update RowUpdater) (int, error) {
	p, err := s.path(name)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(p)
	if err != nil {
		return 0, &FetchError{Name: name, Err: err}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return 0, &FetchError{Name: name, Err: err}
	}

	lines := strings.Split(string(data), "\n")
	changed := 0
	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields, ok := update(i+1, strings.Split(line, ","))
		if !ok {
			continue
		}
		lines[i] = strings.Join(fields, ",")
		changed++
	}
	if changed == 0 {
		return 0, nil
	}

	tmp, err := os.CreateTemp(s.Root, "."+name+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(lines, "\n")); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write %s: %w", name, err)
	}
	// Keep the mode of the original; CreateTemp uses 0600.
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to set mode of %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return 0, fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return changed, nil
}

// IsNotFound reports whether err means the named resource does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	var fe *FetchError
	return errors.As(err, &fe) && fe.Status == http.StatusNotFound
}
