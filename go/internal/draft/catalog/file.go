package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/mcdev12/corpsdraft/go/internal/models"
	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	ID      string `yaml:"id"`
	Corps   string `yaml:"corps"`
	Caption string `yaml:"caption"`
}

type fileDoc struct {
	Captions []fileEntry `yaml:"captions"`
}

// File is a caption catalog kept in a YAML file:
//
//	captions:
//	  - id: bd-brass
//	    corps: Blue Devils
//	    caption: Brass
//
// The file is read on every call, so edits apply to the next draft start.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// AllItems implements room.Catalog.
func (f *File) AllItems(ctx context.Context) ([]models.Caption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", f.path, err)
	}
	return Parse(data)
}

// Parse decodes a catalog document. Entries without an id are rejected.
func Parse(data []byte) ([]models.Caption, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	items := make([]models.Caption, 0, len(doc.Captions))
	for i, e := range doc.Captions {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no id", i)
		}
		items = append(items, models.Caption{ID: e.ID, Corps: e.Corps, Caption: e.Caption})
	}
	return items, nil
}
