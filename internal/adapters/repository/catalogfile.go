package repository

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidewave/melodex/internal/domain/model"
)

// CatalogDump is the JSON bootstrap format for the in-memory catalog. The
// simulator writes it; the server loads it at startup.
type CatalogDump struct {
	Artists []model.Artist `json:"artists"`
	Albums  []model.Album  `json:"albums"`
	Tracks  []model.Track  `json:"tracks"`
}

// LoadCatalogFile builds a MemoryStore from a catalog dump on disk.
func LoadCatalogFile(path string, opts ...Option) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var dump CatalogDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	store := NewMemoryStore(opts...)
	for _, a := range dump.Artists {
		store.AddArtist(a)
	}
	for _, a := range dump.Albums {
		store.AddAlbum(a)
	}
	for _, t := range dump.Tracks {
		if err := store.AddTrack(t); err != nil {
			return nil, fmt.Errorf("load track %s: %w", t.ID, err)
		}
	}
	return store, nil
}
