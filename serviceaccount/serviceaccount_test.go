package serviceaccount_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sagarc03/itemgate/serviceaccount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service-account.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Valid(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t, `{
		"access_key_id": " GOOG1EXAMPLE ",
		"secret_access_key": "secret",
		"session_token": "token",
		"region": "auto",
		"project_id": "demo"
	}`)

	acct, err := serviceaccount.Load(path)
	require.NoError(t, err)

	assert.Equal(t, serviceaccount.Account{
		AccessKeyID:     "GOOG1EXAMPLE",
		SecretAccessKey: "secret",
		SessionToken:    "token",
		Region:          "auto",
		ProjectID:       "demo",
	}, acct)
}

func TestLoad_Incomplete(t *testing.T) {
	t.Parallel()

	for _, content := range []string{
		`{}`,
		`{"access_key_id": "key"}`,
		`{"secret_access_key": "secret"}`,
		`{"access_key_id": "  ", "secret_access_key": "secret"}`,
	} {
		_, err := serviceaccount.Load(writeTestFile(t, content))
		assert.ErrorIs(t, err, serviceaccount.ErrIncomplete, content)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := serviceaccount.Load(writeTestFile(t, `{not json`))
	assert.ErrorContains(t, err, "parse service account file")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := serviceaccount.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
