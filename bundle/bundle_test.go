package bundle

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/intentdb/core"
	"github.com/poiesic/intentdb/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestBundle(t *testing.T) *Bundle {
	t.Helper()

	idx, err := index.New(3)
	require.NoError(t, err)
	require.NoError(t, idx.Add(
		[]float32{1, 0, 0},
		[]float32{0, 1, 0},
	))

	records := []core.Record{
		{
			Text:      "hours",
			Tag:       "hours_info",
			Responses: []string{"We are open 9-5."},
			Kind:      core.RecordKindPattern,
		},
		{
			Text:      "location",
			Tag:       "location_info",
			Responses: []string{"Main campus."},
			Kind:      core.RecordKindPattern,
		},
	}

	b, err := New(idx, records, "all-minilm")
	require.NoError(t, err)
	return b
}

func TestNew(t *testing.T) {
	t.Run("derives config from index", func(t *testing.T) {
		b := buildTestBundle(t)
		assert.Equal(t, "all-minilm", b.Config.ModelName)
		assert.Equal(t, 3, b.Config.Dimension)
		assert.Equal(t, 2, b.Config.TotalVectors)
	})

	t.Run("rejects misaligned records", func(t *testing.T) {
		idx, err := index.New(3)
		require.NoError(t, err)
		require.NoError(t, idx.Add([]float32{1, 0, 0}))

		_, err = New(idx, nil, "all-minilm")
		assert.ErrorIs(t, err, core.ErrCorruptedBundle)
	})

	t.Run("rejects empty model name", func(t *testing.T) {
		idx, err := index.New(3)
		require.NoError(t, err)

		_, err = New(idx, nil, "")
		assert.ErrorIs(t, err, core.ErrInvalidConfig)
	})
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	original := buildTestBundle(t)
	dir := filepath.Join(t.TempDir(), "bundle")

	require.NoError(t, Save(original, dir))

	loaded, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, original.Config, loaded.Config)
	assert.Equal(t, original.Records, loaded.Records)
	assert.Equal(t, original.Index.Count(), loaded.Index.Count())

	// Identical search results before and after the round trip.
	query := []float32{0.9, 0.1, 0}
	want, err := original.Index.Search(query, 2)
	require.NoError(t, err)
	got, err := loaded.Index.Search(query, 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSave_RefreshesVectorCount(t *testing.T) {
	b := buildTestBundle(t)
	// Simulate a stale cached count; Save must write the live one.
	b.Config.TotalVectors = 999
	dir := filepath.Join(t.TempDir(), "bundle")

	require.NoError(t, Save(b, dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Config.TotalVectors)
}

func TestLoad_MissingConfig(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoad_InvalidConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		config  string
		wantErr error
	}{
		{
			name:    "malformed json",
			config:  "{not json",
			wantErr: core.ErrInvalidConfig,
		},
		{
			name:    "zero dimension",
			config:  `{"model_name":"m","dimension":0,"total_vectors":2}`,
			wantErr: core.ErrInvalidConfig,
		},
		{
			name:    "empty model name",
			config:  `{"model_name":"","dimension":3,"total_vectors":2}`,
			wantErr: core.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(tt.config), 0644))
			_, err := Load(dir)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_CountMismatch(t *testing.T) {
	b := buildTestBundle(t)
	dir := filepath.Join(t.TempDir(), "bundle")
	require.NoError(t, Save(b, dir))

	// Rewrite the config with a count that disagrees with the index.
	config := core.BundleConfig{ModelName: "all-minilm", Dimension: 3, TotalVectors: 5}
	data, err := json.Marshal(config)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), data, 0644))

	_, err = Load(dir)
	assert.ErrorIs(t, err, core.ErrCorruptedBundle)
}

func TestLoad_MissingIndexArtifact(t *testing.T) {
	b := buildTestBundle(t)
	dir := filepath.Join(t.TempDir(), "bundle")
	require.NoError(t, Save(b, dir))
	require.NoError(t, os.Remove(filepath.Join(dir, IndexFile)))

	_, err := Load(dir)
	assert.ErrorIs(t, err, core.ErrCorruptedBundle)
}

func TestLoad_MissingRecordsArtifact(t *testing.T) {
	b := buildTestBundle(t)
	dir := filepath.Join(t.TempDir(), "bundle")
	require.NoError(t, Save(b, dir))
	require.NoError(t, os.Remove(filepath.Join(dir, RecordsFile)))

	_, err := Load(dir)
	assert.ErrorIs(t, err, core.ErrCorruptedBundle)
}

func TestLoad_CorruptedRecords(t *testing.T) {
	b := buildTestBundle(t)
	dir := filepath.Join(t.TempDir(), "bundle")
	require.NoError(t, Save(b, dir))

	path := filepath.Join(dir, RecordsFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-6] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = Load(dir)
	assert.ErrorIs(t, err, core.ErrCorruptedBundle)
}

func TestLoadRecords_ImplausibleCount(t *testing.T) {
	// A checksum-valid artifact whose header declares far more records
	// than its payload could possibly hold. The declared count must not
	// size an allocation.
	buf := make([]byte, recordsHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], recordsMagic)
	binary.LittleEndian.PutUint32(buf[4:], recordsVersion)
	binary.LittleEndian.PutUint64(buf[8:], 1<<60)
	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))

	path := filepath.Join(t.TempDir(), RecordsFile)
	require.NoError(t, os.WriteFile(path, buf, 0644))

	_, err := loadRecords(path)
	assert.ErrorIs(t, err, core.ErrCorruptedBundle)
}

func TestSaveLoad_EmptyBundle(t *testing.T) {
	// A bundle with zero vectors still round-trips; the matcher decides
	// whether an empty index is useful.
	idx, err := index.New(4)
	require.NoError(t, err)

	b, err := New(idx, nil, "all-minilm")
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "bundle")
	require.NoError(t, Save(b, dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Index.Count())
	assert.Empty(t, loaded.Records)
}
