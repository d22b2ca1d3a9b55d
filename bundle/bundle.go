// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package bundle

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/intentdb/core"
	"github.com/poiesic/intentdb/index"
)

// Artifact file names within a bundle directory.
const (
	IndexFile   = "vectors.bin"
	RecordsFile = "records.bin"
	ConfigFile  = "config.json"
)

// Bundle is a loaded index bundle. The i-th record describes the i-th
// vector of the index; Save refuses bundles that violate this.
type Bundle struct {
	Index   *index.Flat
	Records []core.Record
	Config  core.BundleConfig
}

// New assembles a bundle from an index and its records, deriving the
// config from the index's state and the given model name.
func New(idx *index.Flat, records []core.Record, modelName string) (*Bundle, error) {
	if idx == nil {
		return nil, fmt.Errorf("index is nil")
	}
	if idx.Count() != len(records) {
		return nil, fmt.Errorf("%w: index has %d vectors, %d records given",
			core.ErrCorruptedBundle, idx.Count(), len(records))
	}

	config := core.BundleConfig{
		ModelName:    modelName,
		Dimension:    idx.Dimension(),
		TotalVectors: idx.Count(),
	}
	if err := core.ValidateBundleConfig(&config); err != nil {
		return nil, err
	}

	return &Bundle{Index: idx, Records: records, Config: config}, nil
}

// Save writes the bundle to dir, creating it if needed. Artifacts are
// written index first, records second, config last; the config's vector
// count is taken from the index at the moment of the call. Save must not
// run concurrently with another Save to the same directory.
func Save(b *Bundle, dir string) error {
	if b.Index.Count() != len(b.Records) {
		return fmt.Errorf("%w: index has %d vectors, %d records",
			core.ErrCorruptedBundle, b.Index.Count(), len(b.Records))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := b.Index.SaveToFile(filepath.Join(dir, IndexFile)); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}

	if err := saveRecords(b.Records, filepath.Join(dir, RecordsFile)); err != nil {
		return fmt.Errorf("saving records: %w", err)
	}

	config := b.Config
	config.Dimension = b.Index.Dimension()
	config.TotalVectors = b.Index.Count()
	if err := saveConfig(&config, filepath.Join(dir, ConfigFile)); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	slog.Default().Info("saved bundle",
		"dir", dir,
		"vectors", config.TotalVectors,
		"dimension", config.Dimension,
		"model", config.ModelName)
	return nil
}

// Load reads a bundle from dir. The config is read and validated first,
// then the index, then the records; the vector and record counts must
// agree with the config or the load fails with a corruption error.
func Load(dir string) (*Bundle, error) {
	config, err := loadConfig(filepath.Join(dir, ConfigFile))
	if err != nil {
		return nil, err
	}

	idx, err := index.LoadFromFile(filepath.Join(dir, IndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config present but index artifact missing: %v",
				core.ErrCorruptedBundle, err)
		}
		return nil, fmt.Errorf("%w: %w", core.ErrCorruptedBundle, err)
	}

	if idx.Count() != config.TotalVectors {
		return nil, fmt.Errorf("%w: index has %d vectors, config declares %d",
			core.ErrCorruptedBundle, idx.Count(), config.TotalVectors)
	}
	if idx.Dimension() != config.Dimension {
		return nil, fmt.Errorf("%w: index dimension %d, config declares %d",
			core.ErrCorruptedBundle, idx.Dimension(), config.Dimension)
	}

	records, err := loadRecords(filepath.Join(dir, RecordsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config present but records artifact missing: %v",
				core.ErrCorruptedBundle, err)
		}
		return nil, fmt.Errorf("%w: %w", core.ErrCorruptedBundle, err)
	}

	if len(records) != idx.Count() {
		return nil, fmt.Errorf("%w: %d records for %d vectors",
			core.ErrCorruptedBundle, len(records), idx.Count())
	}

	slog.Default().Info("loaded bundle",
		"dir", dir,
		"vectors", config.TotalVectors,
		"dimension", config.Dimension,
		"model", config.ModelName)
	return &Bundle{Index: idx, Records: records, Config: *config}, nil
}

func saveConfig(config *core.BundleConfig, path string) error {
	if err := core.ValidateBundleConfig(config); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(path, data)
}

func loadConfig(path string) (*core.BundleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle config: %w", err)
	}

	var config core.BundleConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidConfig, err)
	}

	if err := core.ValidateBundleConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// writeFileAtomic writes data to a temp file in the target's directory
// and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
