package manifest

import (
	"encoding/gob"
	"fmt"
	"os"
	"strings"
)

// SnapshotPath derives the gob snapshot path for a CSV manifest path
// ("" when csvPath is empty).
func SnapshotPath(csvPath string) string {
	if csvPath == "" {
		return ""
	}
	return strings.TrimSuffix(csvPath, ".csv") + ".gob"
}

// SaveSnapshot serializes parsed rows to a gob file for fast restarts.
func SaveSnapshot(rows []Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot %s: %w", path, err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(rows); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot deserializes rows from a gob snapshot.
func LoadSnapshot(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer f.Close()

	var rows []Row
	if err := gob.NewDecoder(f).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return rows, nil
}
