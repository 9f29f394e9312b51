package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	t.Run("explicit file sets unset variables only", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		require.NoError(t, os.Unsetenv("JWT_SECRET"))
		t.Setenv("ITEMGATE_LOG_LEVEL", "warn")

		path := filepath.Join(t.TempDir(), "itemgate.env")
		require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-dotenv\nITEMGATE_LOG_LEVEL=debug\n"), 0o600))

		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "from-dotenv", os.Getenv("JWT_SECRET"))
		assert.Equal(t, "warn", os.Getenv("ITEMGATE_LOG_LEVEL"))
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})

	t.Run("missing default file is ignored", func(t *testing.T) {
		t.Chdir(t.TempDir())
		assert.NoError(t, loadEnvFile(""))
	})
}
