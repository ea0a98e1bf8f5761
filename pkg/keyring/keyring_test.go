package keyring

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKeyringRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.json")
	fk := NewFileKeyring(path, "master-password")

	require.NoError(t, fk.Set("op3-security", "secret-master-key", "the-secret"))

	value, err := fk.Get("op3-security", "secret-master-key")
	require.NoError(t, err)
	assert.Equal(t, "the-secret", value)

	// A second keyring over the same file and password sees the entry.
	other := NewFileKeyring(path, "master-password")
	value, err = other.Get("op3-security", "secret-master-key")
	require.NoError(t, err)
	assert.Equal(t, "the-secret", value)
}

func TestFileKeyringWrongPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.json")
	fk := NewFileKeyring(path, "master-password")
	require.NoError(t, fk.Set("op3-security", "secret-master-key", "the-secret"))

	wrong := NewFileKeyring(path, "not-the-password")
	_, err := wrong.Get("op3-security", "secret-master-key")
	assert.Error(t, err)
}

func TestFileKeyringDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.json")
	fk := NewFileKeyring(path, "master-password")
	require.NoError(t, fk.Set("op3-security", "secret-master-key", "the-secret"))

	require.NoError(t, fk.Delete("op3-security", "secret-master-key"))

	_, err := fk.Get("op3-security", "secret-master-key")
	assert.Error(t, err)
}

func TestFileKeyringMissingEntry(t *testing.T) {
	fk := NewFileKeyring(filepath.Join(t.TempDir(), "keyring.json"), "pw")
	_, err := fk.Get("op3-security", "missing")
	assert.Error(t, err)
}
