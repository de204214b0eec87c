// Package inventory records the lifecycle state of named test environments
// between invocations, so an environment created by one process can be
// destroyed by another.
package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/chainguard-dev/imagetest-ec2/internal/drivers"
)

var ErrInvalidName = fmt.Errorf("environment name must not be empty")

type Inventory interface {
	// Get returns the state recorded for 'name', or a zero State.
	Get(ctx context.Context, name string) (drivers.State, error)
	// Put records 'state' for 'name'. Recording a zero State forgets the
	// environment.
	Put(ctx context.Context, name string, state drivers.State) error
	// List returns every recorded environment.
	List(ctx context.Context) (map[string]drivers.State, error)
}

// Inventories hands out one Inventory per path, so concurrent commands in
// the same process share its lock.
type Inventories struct {
	items  map[string]Inventory
	mu     sync.RWMutex
	create InventoryCreate
}

type InventoryCreate func(path string) (Inventory, error)

func NewInventories(create InventoryCreate) *Inventories {
	return &Inventories{
		items:  make(map[string]Inventory),
		create: create,
	}
}

func (i *Inventories) Get(path string) (Inventory, error) {
	i.mu.RLock()
	item, exists := i.items[path]
	i.mu.RUnlock()

	if exists {
		return item, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if inv, exists := i.items[path]; exists {
		return inv, nil
	}

	inv, err := i.create(path)
	if err != nil {
		return nil, err
	}

	i.items[path] = inv
	return inv, nil
}
