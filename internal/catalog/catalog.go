// Package catalog provides a concurrency-safe, file-backed product catalog.
//
// The catalog file is produced by an external ingestion job and has the shape
//
//	{"t_shirts": [{"model_id": "ts1", "model_name": "...", "colors": ["<url>", ...]}],
//	 "hoodies":  [...]}
//
// A Catalog holds an immutable snapshot of that file. Reload swaps in a new
// snapshot atomically and keeps the previous one when the file is unreadable,
// so a half-written file never empties the shop. The package does no logging;
// callers decide what to do with reload errors.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tbourn/merch-order-bot/internal/domain"
)

var (
	// ErrNoProducts is returned when a category has no products.
	ErrNoProducts = errors.New("no products in category")
	// ErrProductNotFound is returned for an unknown model id.
	ErrProductNotFound = errors.New("product not found")
)

// Product is one catalog entry. ColorImages holds one image per colour.
type Product struct {
	ID          string   `json:"model_id"`
	Name        string   `json:"model_name"`
	ColorImages []string `json:"colors"`
}

// Image returns the image for colour index i, wrapping out-of-range indexes.
// It returns "" when the product has no images.
func (p Product) Image(i int) string {
	if len(p.ColorImages) == 0 {
		return ""
	}
	return p.ColorImages[Wrap(i, len(p.ColorImages))]
}

// Lookup is the read contract the order workflow depends on.
type Lookup interface {
	GetProduct(c domain.Category, index int) (Product, error)
	Count(c domain.Category) int
	FindByID(id string) (Product, error)
}

// Wrap maps i into [0, n) with wrap-around in both directions. n must be > 0.
func Wrap(i, n int) int {
	if n <= 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minColors   int
	maxProducts int
}

func defaultConfig() config {
	return config{minColors: 1}
}

// WithMinColors drops products with fewer than n colour images. The default
// of 1 hides products that cannot be displayed.
func WithMinColors(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minColors = n
		}
	}
}

// WithMaxProducts caps the number of products kept per category.
func WithMaxProducts(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxProducts = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type snapshot struct {
	byCat map[domain.Category][]Product
	byID  map[string]Product
}

// Catalog is safe for concurrent use.
type Catalog struct {
	path string
	cfg  config

	mu   sync.RWMutex
	snap snapshot
}

var _ Lookup = (*Catalog)(nil)

// Load reads the catalog file at path.
func Load(path string, opts ...Option) (*Catalog, error) {
	c := &Catalog{path: path, cfg: defaultConfig()}
	for _, o := range opts {
		o(&c.cfg)
	}
	c.snap = snapshot{byCat: map[domain.Category][]Product{}, byID: map[string]Product{}}
	if err := c.Reload(); err != nil {
		return c, err
	}
	return c, nil
}

// FromReader builds a catalog from JSON provided by r. Reload on the result
// is a no-op.
func FromReader(r io.Reader, opts ...Option) (*Catalog, error) {
	c := &Catalog{cfg: defaultConfig()}
	for _, o := range opts {
		o(&c.cfg)
	}
	snap, err := parse(r, c.cfg)
	if err != nil {
		return c, err
	}
	c.snap = snap
	return c, nil
}

// Reload re-reads the backing file and swaps the snapshot. On error the
// previous snapshot stays in place.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	b, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	snap, err := parse(bytes.NewReader(b), c.cfg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return nil
}

// Watch calls Reload every interval until ctx is done. Reload errors are
// passed to onErr when it is non-nil.
func (c *Catalog) Watch(ctx context.Context, every time.Duration, onErr func(error)) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.Reload(); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

// GetProduct returns the product at index within category, wrapping the
// index around the category size.
func (c *Catalog) GetProduct(cat domain.Category, index int) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := c.snap.byCat[cat]
	if len(list) == 0 {
		return Product{}, ErrNoProducts
	}
	return list[Wrap(index, len(list))], nil
}

// Count returns the number of products in category.
func (c *Catalog) Count(cat domain.Category) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snap.byCat[cat])
}

// FindByID returns the product with the given model id.
func (c *Catalog) FindByID(id string) (Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.snap.byID[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func parse(r io.Reader, cfg config) (snapshot, error) {
	var raw map[domain.Category][]Product
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return snapshot{}, err
	}
	snap := snapshot{
		byCat: make(map[domain.Category][]Product, len(raw)),
		byID:  make(map[string]Product),
	}
	for cat, items := range raw {
		kept := make([]Product, 0, len(items))
		for _, p := range items {
			p.ID = strings.TrimSpace(p.ID)
			if p.ID == "" || len(p.ColorImages) < cfg.minColors {
				continue
			}
			if _, dup := snap.byID[p.ID]; dup {
				continue
			}
			kept = append(kept, p)
			snap.byID[p.ID] = p
			if cfg.maxProducts > 0 && len(kept) >= cfg.maxProducts {
				break
			}
		}
		snap.byCat[cat] = kept
	}
	return snap, nil
}
