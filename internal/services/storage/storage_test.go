package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "testpassword123"

func TestEncryptDecryptRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	ledgerFile := store.Path("postings.csv")
	original := []byte("Date,Account,Amount\n2024-01-01,Assets:Checking,100.00\n")
	require.NoError(t, store.WriteFile(ledgerFile, original, 0644))

	read, err := store.ReadFile(ledgerFile)
	require.NoError(t, err)
	assert.Equal(t, original, read)

	require.NoError(t, store.EnableEncryption(testPassword))
	assert.True(t, store.IsEncrypted())
	assert.Equal(t, Status{Encrypted: true, Unlocked: true}, store.Status())

	raw, err := os.ReadFile(ledgerFile)
	require.NoError(t, err)
	assert.True(t, isAgeEncrypted(raw), "file should be encrypted on disk")

	read, err = store.ReadFile(ledgerFile)
	require.NoError(t, err)
	assert.Equal(t, original, read)

	store.Lock()
	assert.False(t, store.IsUnlocked())
	_, err = store.ReadFile(ledgerFile)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, store.Unlock(testPassword))
	read, err = store.ReadFile(ledgerFile)
	require.NoError(t, err)
	assert.Equal(t, original, read)

	require.NoError(t, store.DisableEncryption(testPassword))
	assert.False(t, store.IsEncrypted())

	raw, err = os.ReadFile(ledgerFile)
	require.NoError(t, err)
	assert.Equal(t, original, raw)
}

func TestWrongPassword(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.WriteFile(store.Path("settings.json"), []byte(`{"mode":"pnl"}`), 0644))
	require.NoError(t, store.EnableEncryption("correctpassword"))
	store.Lock()

	assert.ErrorIs(t, store.Unlock("wrongpassword"), ErrIncorrectPassword)
	assert.ErrorIs(t, store.DisableEncryption("wrongpassword"), ErrIncorrectPassword)
	assert.True(t, store.IsEncrypted())
}

func TestEnableEncryptionErrors(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, store.EnableEncryption("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, store.DisableEncryption(testPassword), ErrNotEncrypted)

	require.NoError(t, store.EnableEncryption(testPassword))
	assert.ErrorIs(t, store.EnableEncryption(testPassword), ErrAlreadyEncrypted)
}

func TestEncryptionSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, store.EnableEncryption(testPassword))

	reopened, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, Status{Encrypted: true, Unlocked: false}, reopened.Status())
	require.NoError(t, reopened.Unlock(testPassword))
	assert.True(t, reopened.IsUnlocked())
}

func TestSkipCacheFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	cacheFile := filepath.Join(dir, "cache", "chart.json")
	content := []byte(`{"cached":true}`)
	require.NoError(t, store.WriteFile(cacheFile, content, 0644))

	require.NoError(t, store.EnableEncryption(testPassword))

	raw, err := os.ReadFile(cacheFile)
	require.NoError(t, err)
	assert.Equal(t, content, raw, "cache file should stay in plain text")
}

func TestNewFilesEncrypted(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.EnableEncryption(testPassword))

	newFile := store.Path("new.csv")
	content := []byte("Date,Account,Amount\n2024-01-01,Income:Salary,-100\n")
	require.NoError(t, store.WriteFile(newFile, content, 0644))

	raw, err := os.ReadFile(newFile)
	require.NoError(t, err)
	assert.True(t, isAgeEncrypted(raw))

	read, err := store.ReadFile(newFile)
	require.NoError(t, err)
	assert.Equal(t, content, read)
}

func TestWriteWhileLocked(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.EnableEncryption(testPassword))
	store.Lock()

	err = store.WriteFile(store.Path("new.csv"), []byte("x"), 0644)
	assert.ErrorIs(t, err, ErrLocked)
}
