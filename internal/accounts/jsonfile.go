package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/theleanbow/meroshare-automation/internal/common"
	"github.com/theleanbow/meroshare-automation/internal/filex"
)

// JSONFileRepository stores accounts as a pretty-printed JSON array,
// the same shape the original accounts.json used. Every operation holds an
// exclusive cross-process lock, since the admin surface and the automation
// driver may touch the file concurrently.
type JSONFileRepository struct {
	path string
}

func NewJSONFileRepository(path string) *JSONFileRepository {
	return &JSONFileRepository{path: path}
}

func (r *JSONFileRepository) List(ctx context.Context) ([]Account, error) {
	var accs []Account
	err := filex.WithLock(ctx, r.path, func() error {
		var err error
		accs, err = r.read()
		return err
	})
	return accs, err
}

func (r *JSONFileRepository) Add(ctx context.Context, acc Account) error {
	return filex.WithLock(ctx, r.path, func() error {
		accs, err := r.read()
		if err != nil {
			return err
		}
		accs = append(accs, acc)
		return r.write(accs)
	})
}

func (r *JSONFileRepository) Remove(ctx context.Context, id string) error {
	return filex.WithLock(ctx, r.path, func() error {
		accs, err := r.read()
		if err != nil {
			return err
		}
		for i, acc := range accs {
			if acc.ID == id {
				accs = append(accs[:i], accs[i+1:]...)
				return r.write(accs)
			}
		}
		return fmt.Errorf("%w: account %s", common.ErrNotFound, id)
	})
}

// read returns an empty slice when the file does not exist yet.
func (r *JSONFileRepository) read() ([]Account, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Account{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", r.path, err)
	}

	var accs []Account
	if err := json.Unmarshal(raw, &accs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", r.path, err)
	}
	return accs, nil
}

func (r *JSONFileRepository) write(accs []Account) error {
	raw, err := json.MarshalIndent(accs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding accounts: %w", err)
	}
	return filex.WriteAtomic(r.path, raw, 0o600)
}
