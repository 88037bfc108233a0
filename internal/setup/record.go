package setup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

// Record describes the installation present under a Qt root. It is written
// after a fresh install and travels with the cached tree.
type Record struct {
	Version     string    `yaml:"version"`
	RawVersion  string    `yaml:"rawVersion"`
	Compiler    string    `yaml:"compiler"`
	Host        string    `yaml:"host"`
	CacheKey    string    `yaml:"cacheKey"`
	InstalledAt time.Time `yaml:"installedAt"`
}

// WriteRecord writes r to path atomically.
func WriteRecord(path string, r Record) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal install record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write install record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write install record: %w", err)
	}
	return nil
}

// ReadRecord reads the record at path. The second result is false when no
// record exists.
func ReadRecord(path string) (Record, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to read install record: %w", err)
	}

	var r Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Record{}, false, fmt.Errorf("failed to parse install record %s: %w", path, err)
	}
	return r, true, nil
}
