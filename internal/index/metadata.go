package index

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cgrep/cgrep/internal/errs"
)

// Metadata is the persisted {path -> unix-seconds modification time} map
// used to decide per-file whether reindexing is required (spec §3 "Index
// metadata").
type Metadata map[string]int64

const metadataFileName = "metadata.json"

func metadataPath(indexDir string) string {
	return filepath.Join(indexDir, metadataFileName)
}

// LoadMetadata reads the persisted modification-time map, returning an
// empty map if it does not exist yet.
func LoadMetadata(indexDir string) (Metadata, error) {
	data, err := os.ReadFile(metadataPath(indexDir))
	if os.IsNotExist(err) {
		return Metadata{}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "load index metadata", err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errs.Wrap(errs.ErrSerialization, "parse index metadata", err)
	}
	return m, nil
}

// Save persists the modification-time map to indexDir.
func (m Metadata) Save(indexDir string) error {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return errs.Wrap(errs.ErrIO, "create index dir", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errs.Wrap(errs.ErrSerialization, "marshal index metadata", err)
	}
	if err := os.WriteFile(metadataPath(indexDir), data, 0o644); err != nil {
		return errs.Wrap(errs.ErrIO, "write index metadata", err)
	}
	return nil
}
