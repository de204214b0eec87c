package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/imagetest-ec2/internal/drivers"
)

var _ Inventory = &file{}

// file is an Inventory stored as a single JSON document mapping environment
// names to their state.
type file struct {
	mu   sync.Mutex
	path string
}

type model struct {
	Environments map[string]drivers.State `json:"environments"`
}

func NewFile(path string) (Inventory, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inventory directory: %w", err)
	}
	return &file{path: path}, nil
}

// Get implements Inventory.
func (i *file) Get(ctx context.Context, name string) (drivers.State, error) {
	if name == "" {
		return drivers.State{}, ErrInvalidName
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	data, err := i.read(ctx)
	if err != nil {
		return drivers.State{}, err
	}
	return data.Environments[name], nil
}

// Put implements Inventory.
func (i *file) Put(ctx context.Context, name string, state drivers.State) error {
	if name == "" {
		return ErrInvalidName
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	data, err := i.read(ctx)
	if err != nil {
		return err
	}
	if state == (drivers.State{}) {
		delete(data.Environments, name)
	} else {
		data.Environments[name] = state
	}
	return i.write(ctx, data)
}

// List implements Inventory.
func (i *file) List(ctx context.Context) (map[string]drivers.State, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	data, err := i.read(ctx)
	if err != nil {
		return nil, err
	}
	return maps.Clone(data.Environments), nil
}

// read loads the document. A missing file is an empty inventory.
func (i *file) read(ctx context.Context) (*model, error) {
	data := &model{}
	// #nosec G304
	raw, err := os.ReadFile(i.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		clog.FromContext(ctx).Debug("inventory does not exist yet", "path", i.path)
	case err != nil:
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	default:
		if err := json.Unmarshal(raw, data); err != nil {
			return nil, fmt.Errorf("failed to decode inventory %s: %w", i.path, err)
		}
	}
	if data.Environments == nil {
		data.Environments = make(map[string]drivers.State)
	}
	return data, nil
}

// write replaces the document through a rename so readers never observe a
// partial write.
func (i *file) write(_ context.Context, data *model) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(i.path), filepath.Base(i.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write inventory: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write inventory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write inventory: %w", err)
	}
	if err := os.Rename(tmp.Name(), i.path); err != nil {
		return fmt.Errorf("failed to write inventory: %w", err)
	}
	return nil
}
