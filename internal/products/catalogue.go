package products

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

// Catalogue keeps products in memory.
type Catalogue struct {
	mu     sync.RWMutex
	items  map[int64]Product
	nextID int64
}

// NewCatalogue returns a catalogue holding seed.
func NewCatalogue(seed ...Product) *Catalogue {
	c := &Catalogue{items: make(map[int64]Product, len(seed))}
	for _, p := range seed {
		c.items[p.ID] = p
		if p.ID > c.nextID {
			c.nextID = p.ID
		}
	}
	return c
}

// List returns every product ordered by id.
func (c *Catalogue) List(ctx context.Context) []Product {
	return c.filter(func(Product) bool { return true })
}

// ListOwned returns the products owned by ownerID.
func (c *Catalogue) ListOwned(ctx context.Context, ownerID int64) []Product {
	return c.filter(func(p Product) bool { return p.OwnerID == ownerID })
}

// Create stores a new product owned by ownerID.
func (c *Catalogue) Create(ctx context.Context, ownerID int64, in Input) Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	p := Product{ID: c.nextID, Name: in.Name, Description: in.Description, Price: in.Price, OwnerID: ownerID}
	c.items[p.ID] = p
	return p
}

// UpdateOwned applies patch to a product owned by ownerID. Products owned by
// someone else are reported as missing.
func (c *Catalogue) UpdateOwned(ctx context.Context, ownerID, id int64, patch Patch) (Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	if !ok || p.OwnerID != ownerID {
		return Product{}, fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	p = patch.apply(p)
	c.items[id] = p
	return p, nil
}

// DeleteOwned removes a product owned by ownerID.
func (c *Catalogue) DeleteOwned(ctx context.Context, ownerID, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	if !ok || p.OwnerID != ownerID {
		return fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	delete(c.items, id)
	return nil
}

func (c *Catalogue) filter(keep func(Product) bool) []Product {
	c.mu.RLock()
	out := make([]Product, 0, len(c.items))
	for _, p := range c.items {
		if keep(p) {
			out = append(out, p)
		}
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
