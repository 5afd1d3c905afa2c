package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"fintechbi/pkg/errors"
)

func TestKeyringBackend(t *testing.T) {
	keyring.MockInit()

	store, err := newCredentialStore(t.TempDir(), true)
	require.NoError(t, err)
	assert.Equal(t, BackendKeyring, store.Backend())

	require.NoError(t, store.Set("warehouse", "s3cret"))
	value, err := store.Get("warehouse")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)

	require.NoError(t, store.Set("warehouse", "rotated"))
	value, err = store.Get("warehouse")
	require.NoError(t, err)
	assert.Equal(t, "rotated", value)

	require.NoError(t, store.Delete("warehouse"))
	require.NoError(t, store.Delete("warehouse"), "deleting twice is fine")

	_, err = store.Get("warehouse")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCredentialMissing))
}

func TestFileBackend(t *testing.T) {
	dir := t.TempDir()

	store, err := newCredentialStore(dir, false)
	require.NoError(t, err)
	assert.Equal(t, BackendFile, store.Backend())

	require.NoError(t, store.Set("warehouse", "s3cret"))

	data, err := os.ReadFile(filepath.Join(dir, "warehouse.cred"))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "s3cret"), "value is stored encrypted")

	info, err := os.Stat(filepath.Join(dir, "warehouse.cred"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := newCredentialStore(dir, false)
	require.NoError(t, err)
	value, err := reopened.Get("warehouse")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", value)

	require.NoError(t, reopened.Delete("warehouse"))
	_, err = store.Get("warehouse")
	assert.True(t, errors.HasCode(err, errors.ErrCodeCredentialMissing))
}

func TestFileBackendRejectsForeignSalt(t *testing.T) {
	dir := t.TempDir()
	store, err := newCredentialStore(dir, false)
	require.NoError(t, err)
	require.NoError(t, store.Set("warehouse", "s3cret"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".salt"), make([]byte, saltSize), 0600))
	other, err := newCredentialStore(dir, false)
	require.NoError(t, err)

	_, err = other.Get("warehouse")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeEncryptionFailed))
}

func TestCredentialNames(t *testing.T) {
	store, err := newCredentialStore(t.TempDir(), false)
	require.NoError(t, err)

	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		err := store.Set(name, "x")
		require.Error(t, err, name)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput), name)
	}
	assert.NoError(t, store.Set("prod-warehouse_1.pw", "x"))
}

func TestEncryptDecrypt(t *testing.T) {
	store, err := newCredentialStore(t.TempDir(), false)
	require.NoError(t, err)

	sealed, err := store.encrypt("sensitive data")
	require.NoError(t, err)
	assert.NotEqual(t, "sensitive data", sealed)

	again, err := store.encrypt("sensitive data")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces differ")

	plain, err := store.decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sensitive data", plain)

	_, err = store.decrypt("c2hvcnQ=")
	assert.Error(t, err)
}

func TestKeyringAvailabilityOverride(t *testing.T) {
	t.Setenv(EnvUseKeyring, "false")
	assert.False(t, isKeyringAvailable())

	store, err := NewCredentialStore(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, BackendFile, store.Backend())
}
