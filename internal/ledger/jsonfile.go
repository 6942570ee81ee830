package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/theleanbow/meroshare-automation/internal/filex"
)

// JSONFileRepository stores the ledger as a pretty-printed JSON array,
// compatible with the original history.json. Writes go through an
// exclusive lock and an atomic rename.
type JSONFileRepository struct {
	path string
}

func NewJSONFileRepository(path string) *JSONFileRepository {
	return &JSONFileRepository{path: path}
}

func (r *JSONFileRepository) Load(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := filex.WithLock(ctx, r.path, func() error {
		var err error
		entries, err = r.read()
		return err
	})
	return entries, err
}

func (r *JSONFileRepository) Append(ctx context.Context, entry Entry) error {
	return filex.WithLock(ctx, r.path, func() error {
		entries, err := r.read()
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return r.write(entries)
	})
}

func (r *JSONFileRepository) Replace(ctx context.Context, entries []Entry) error {
	return filex.WithLock(ctx, r.path, func() error {
		return r.write(entries)
	})
}

func (r *JSONFileRepository) read() ([]Entry, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", r.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", r.path, err)
	}
	return entries, nil
}

func (r *JSONFileRepository) write(entries []Entry) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	return filex.WriteAtomic(r.path, raw, 0o600)
}
