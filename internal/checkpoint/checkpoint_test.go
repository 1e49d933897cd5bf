package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	assert.Equal(t, int64(0), Load(path), "missing file should mean ingest everything")
}

func TestLoad_MalformedContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not JSON", "last_internal_ms: 42"},
		{"truncated JSON", `{"last_internal_ms": 17`},
		{"empty file", ""},
		{"missing key", `{"other_key": 99}`},
		{"negative value", `{"last_internal_ms": -5}`},
		{"wrong type", `{"last_internal_ms": "soon"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "checkpoint.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			assert.Equal(t, int64(0), Load(path))
		})
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	require.NoError(t, Save(path, 1755000000123))
	assert.Equal(t, int64(1755000000123), Load(path))

	require.NoError(t, Save(path, 1756000000456))
	assert.Equal(t, int64(1756000000456), Load(path))
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	require.NoError(t, Save(path, 42))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "checkpoint.json", entries[0].Name())
}

func TestSave_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "checkpoint.json")
	assert.Error(t, Save(path, 42), "write failure must surface to the caller")
}
