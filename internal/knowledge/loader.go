package knowledge

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// docFile is the on-disk format for knowledge base content.
type docFile struct {
	Documents []docEntry `yaml:"documents"`
}

type docEntry struct {
	Collection string `yaml:"collection"`
	Topic      string `yaml:"topic"`
	Title      string `yaml:"title"`
	Body       string `yaml:"body"`
}

var validCollections = map[string]bool{
	CollectionIndustry:  true,
	CollectionCompany:   true,
	CollectionDecisions: true,
	CollectionIntel:     true,
	CollectionPlaybooks: true,
}

// LoadFile reads a YAML document file and inserts its entries into the
// store. Returns the number of documents loaded. Entries naming an
// unknown collection fail the whole load so typos surface immediately.
func LoadFile(store *Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read knowledge file: %w", err)
	}

	var file docFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse knowledge file: %w", err)
	}

	for i, entry := range file.Documents {
		if entry.Title == "" || entry.Body == "" {
			return 0, fmt.Errorf("document %d: title and body are required", i)
		}
		if !validCollections[entry.Collection] {
			return 0, fmt.Errorf("document %d (%s): unknown collection %q", i, entry.Title, entry.Collection)
		}
	}

	loaded := 0
	for _, entry := range file.Documents {
		doc := &Document{
			ID:         fmt.Sprintf("doc-%s", uuid.New().String()[:8]),
			Collection: entry.Collection,
			Topic:      entry.Topic,
			Title:      entry.Title,
			Body:       entry.Body,
			CreatedAt:  time.Now(),
		}
		if err := store.Create(doc); err != nil {
			return loaded, fmt.Errorf("load %q: %w", entry.Title, err)
		}
		loaded++
	}

	return loaded, nil
}
