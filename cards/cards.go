// Package cards maps card ids to payload text for readers that can only
// report an id.
package cards

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"

	"sonosctl/reader"
)

// Entry is a single catalogued card.
type Entry struct {
	ID    uint64 `yaml:"id"`
	Text  string `yaml:"text"`  // "STOP" or a playlist item-id
	Label string `yaml:"label"` // free-form note, e.g. the playlist title
}

type catalogFile struct {
	Cards []Entry `yaml:"cards"`
}

// Catalog is the in-memory card list.
type Catalog struct {
	mu    sync.RWMutex
	path  string
	cards map[uint64]Entry
}

// Load reads the catalog file at path.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the catalog file. On error the previous contents are kept.
func (c *Catalog) Reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read card file: %w", err)
	}
	cards, err := parse(data)
	if err != nil {
		return fmt.Errorf("card file %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.cards = cards
	c.mu.Unlock()

	log.Printf("Loaded %d cards from %s", len(cards), c.path)
	return nil
}

func parse(data []byte) (map[uint64]Entry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	cards := make(map[uint64]Entry, len(f.Cards))
	for i, e := range f.Cards {
		if strings.TrimSpace(e.Text) == "" {
			return nil, fmt.Errorf("card %d (entry %d) has no text", e.ID, i)
		}
		if _, dup := cards[e.ID]; dup {
			return nil, fmt.Errorf("card %d listed twice", e.ID)
		}
		cards[e.ID] = e
	}
	return cards, nil
}

// Lookup finds a card in the catalog.
func (c *Catalog) Lookup(id uint64) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cards[id]
	return e, ok
}

// Len returns the number of catalogued cards.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cards)
}

// Wrap returns a reader that fills in the text of cards read without one.
func Wrap(r reader.TagReader, c *Catalog) reader.TagReader {
	return &catalogReader{TagReader: r, catalog: c}
}

type catalogReader struct {
	reader.TagReader
	catalog *Catalog
}

func (r *catalogReader) Read(ctx context.Context) (reader.Card, error) {
	card, err := r.TagReader.Read(ctx)
	if err != nil {
		return card, err
	}
	if card.Text == "" {
		if e, ok := r.catalog.Lookup(card.ID); ok {
			card.Text = e.Text
		} else {
			log.Printf("Card %d not in catalog", card.ID)
		}
	}
	return card, nil
}
