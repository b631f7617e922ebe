package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "K1", cfg.Workbook.ControlCell)
	assert.Equal(t, "AA", cfg.Workbook.QuantityCol)
	assert.Equal(t, 6, cfg.Workbook.ProjectRow)
	assert.Equal(t, 20*time.Second, cfg.Workbook.IOTimeout)
	assert.Equal(t, 2, cfg.Packaging.Workers)
	assert.Nil(t, cfg.Packaging.Recipients)
}

func TestLoadConfig_EnvironmentAndFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("WORKBOOK_DIR=/mnt/bom\nHTTP_ADDR=:9999\n"), 0o600))

	t.Setenv("HTTP_ADDR", ":7000")
	t.Setenv("WORKBOOK_IO_TIMEOUT", "5s")
	t.Setenv("WORKBOOK_WARM_ON_CHANGE", "true")
	t.Setenv("PACKAGING_RECIPIENTS", "a@cyramp.ca, ,b@cyramp.ca")
	t.Setenv("PACKAGING_WORKERS", "not-a-number")
	t.Setenv("WORKBOOK_DIR", "")
	require.NoError(t, os.Unsetenv("WORKBOOK_DIR"))

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "/mnt/bom", cfg.Workbook.Dir)
	assert.Equal(t, ":7000", cfg.Server.HTTPAddr, "process environment wins over the file")
	assert.Equal(t, 5*time.Second, cfg.Workbook.IOTimeout)
	assert.True(t, cfg.Workbook.WarmOnChange)
	assert.Equal(t, []string{"a@cyramp.ca", "b@cyramp.ca"}, cfg.Packaging.Recipients)
	assert.Equal(t, 2, cfg.Packaging.Workers)
}

func TestLoadConfig_MissingFileIsIgnored(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.Workbook.Dir = ""
	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidInput)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{NotFoundError("x"), http.StatusNotFound},
		{InvalidInputError("x"), http.StatusBadRequest},
		{ConflictError("x"), http.StatusBadRequest},
		{NewAppError("V", "x", errors.Join(ErrValidation, errors.New("cause"))), http.StatusBadRequest},
		{NewAppError("U", "x", ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", NewAppError("DB", "x", ErrDatabase)), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Palette introuvable", PublicMessage(fmt.Errorf("ctx: %w", NotFoundError("Palette introuvable"))))
	assert.Equal(t, "internal error", PublicMessage(errors.New("pq: connection reset")))
}

func TestValidator(t *testing.T) {
	err := NewValidator().
		Field("jobNumber", "24017", Required, JobNumber).
		Field("name", "PAL1", Required, MaxLength(10)).
		Err()
	assert.NoError(t, err)

	v := NewValidator().
		Field("jobNumber", "../x", Required, JobNumber).
		Field("name", "  ", Required).
		Field("notes", "abcdef", MaxLength(3))
	require.True(t, v.HasErrors())
	err = v.Err()
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "jobNumber")
	assert.Contains(t, err.Error(), "name est requis")
	assert.Contains(t, err.Error(), "au plus 3")

	assert.NotNil(t, JobNumber("job", 42))
	assert.NotNil(t, Required("n", 0))
	assert.Nil(t, Required("n", int64(3)))
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, OperatorFromContext(ctx))

	ctx = WithOperator(WithRequestID(ctx, "req-1"), "marie")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "marie", OperatorFromContext(ctx))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "job_number", "24017")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"job_number":"24017"`)

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
