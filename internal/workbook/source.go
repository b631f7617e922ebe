package workbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Source reads workbook bytes from disk. A workbook held open by a desktop spreadsheet
// application may refuse a direct read; Source then retries once through a private
// copy in TempDir and removes that copy on every exit path.
type Source struct {
	tempDir string
	logger  *slog.Logger

	readFile func(path string) ([]byte, error)
	copyFile func(src, dst string) error
}

func NewSource(tempDir string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Source{
		tempDir:  tempDir,
		logger:   logger,
		readFile: os.ReadFile,
		copyFile: copyFile,
	}
}

// Read returns the content of the workbook at path. Missing files and failed
// fallbacks both surface as ErrFileNotFound.
func (s *Source) Read(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := runWithContext(ctx, func() error {
		var err error
		data, err = s.read(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Source) read(path string) ([]byte, error) {
	data, err := s.readFile(path)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrFileNotFound)
	}

	s.logger.Warn("workbook read failed, retrying through temp copy", "path", path, "error", err)
	data, copyErr := s.readViaCopy(path)
	if copyErr != nil {
		s.logger.Error("temp copy fallback failed", "path", path, "error", copyErr)
		return nil, fmt.Errorf("%s: %w: %w", path, ErrFileNotFound, errors.Join(ErrLocked, copyErr))
	}
	return data, nil
}

func (s *Source) readViaCopy(path string) ([]byte, error) {
	tmp := filepath.Join(s.tempDir, "cyrscan-"+uuid.NewString()+filepath.Ext(path))
	defer func() {
		if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to remove temp workbook copy", "path", tmp, "error", err)
		}
	}()

	if err := s.copyFile(path, tmp); err != nil {
		return nil, fmt.Errorf("copy: %w", err)
	}
	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("read copy: %w", err)
	}
	return data, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// runWithContext runs fn and returns early if ctx ends first. fn keeps running in the
// background in that case; file I/O on a hung share cannot be interrupted.
func runWithContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("workbook i/o: %w", ctx.Err())
	}
}
