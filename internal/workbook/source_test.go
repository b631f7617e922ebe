package workbook

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_ReadsDirectly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.xlsm")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	data, err := NewSource(t.TempDir(), nil).Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestSource_MissingFile(t *testing.T) {
	_, err := NewSource(t.TempDir(), nil).Read(context.Background(), filepath.Join(t.TempDir(), "none.xlsm"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestSource_LockedFileFallsBackToTempCopy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.xlsm")
	require.NoError(t, os.WriteFile(path, []byte("locked content"), 0o644))

	tmp := t.TempDir()
	src := NewSource(tmp, nil)
	src.readFile = func(string) ([]byte, error) { return nil, fs.ErrPermission }

	data, err := src.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "locked content", string(data))
	assertEmptyDir(t, tmp)
}

func TestSource_FallbackFailureCleansUpAndReportsNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1.xlsm")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	tmp := t.TempDir()
	src := NewSource(tmp, nil)
	src.readFile = func(string) ([]byte, error) { return nil, fs.ErrPermission }
	src.copyFile = func(_, dst string) error {
		// leave a partial file behind, as an interrupted copy would
		require.NoError(t, os.WriteFile(dst, []byte("partial"), 0o600))
		return errors.New("sharing violation")
	}

	_, err := src.Read(context.Background(), path)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, err, ErrLocked)
	assertEmptyDir(t, tmp)
}

func TestSource_TimesOut(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	src := NewSource(t.TempDir(), nil)
	src.readFile = func(string) ([]byte, error) {
		<-block
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Read(ctx, "whatever.xlsm")
	assert.ErrorIs(t, err, context.Canceled)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp copies must be removed")
}
