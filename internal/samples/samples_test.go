package samples

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	loader, err := Load("")
	require.NoError(t, err)

	infos := loader.List()
	require.NotEmpty(t, infos)
	for _, info := range infos {
		assert.NotEmpty(t, info.Name)
		assert.NotEmpty(t, info.Description)
	}
}

func TestGet(t *testing.T) {
	loader, err := Load("")
	require.NoError(t, err)

	t.Run("by name", func(t *testing.T) {
		tc, err := loader.Get("customer_account")
		require.NoError(t, err)
		assert.Equal(t, "customer_account", tc.TableName)
		assert.NotEmpty(t, tc.Columns)
	})

	t.Run("empty name returns first sample", func(t *testing.T) {
		tc, err := loader.Get("")
		require.NoError(t, err)
		assert.Equal(t, loader.List()[0].Name, tc.TableName)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := loader.Get("nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.json")
	content := `[{"name":"tiny","description":"one table","payload":{"table_name":"tiny","columns":[{"column_name":"id"}]}}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loader, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loader.List(), 1)
	assert.Equal(t, "tiny", loader.List()[0].Name)
}

func TestLoadFailures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
