package workbook

import (
	"bytes"
	"context"
	"log/slog"
	"time"
)

// Loader ties the locator, the source and the parser together.
type Loader struct {
	locator *Locator
	source  *Source
	parser  *Parser
	timeout time.Duration
	logger  *slog.Logger
}

func NewLoader(locator *Locator, source *Source, parser *Parser, timeout time.Duration, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{locator: locator, source: source, parser: parser, timeout: timeout, logger: logger}
}

// Locator exposes the underlying locator.
func (l *Loader) Locator() *Locator { return l.locator }

// LoadJob locates and parses the CONTROLE sheet of the job's workbook.
func (l *Loader) LoadJob(ctx context.Context, jobNumber string) (*JobPartSet, error) {
	start := time.Now()
	path, data, err := l.read(ctx, jobNumber)
	if err != nil {
		return nil, err
	}
	set, err := l.parser.Parse(jobNumber, path, bytes.NewReader(data))
	if err != nil {
		l.logger.Error("workbook.parse.failed", "job_number", jobNumber, "path", path, "error", err)
		return nil, err
	}
	l.logger.Info("workbook.parse.ok",
		"job_number", jobNumber,
		"path", path,
		"rows", set.RowCount(),
		"parts", len(set.PartIDs()),
		"total_quantity", set.TotalQuantity(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return set, nil
}

// LoadProject locates and parses the PROJET sheet of the job's workbook.
func (l *Loader) LoadProject(ctx context.Context, jobNumber string) (*ProjectSheet, error) {
	path, data, err := l.read(ctx, jobNumber)
	if err != nil {
		return nil, err
	}
	sheet, err := l.parser.ParseProject(bytes.NewReader(data))
	if err != nil {
		l.logger.Error("workbook.project.failed", "job_number", jobNumber, "path", path, "error", err)
		return nil, err
	}
	return sheet, nil
}

func (l *Loader) read(ctx context.Context, jobNumber string) (string, []byte, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	path, err := l.locator.Locate(ctx, jobNumber)
	if err != nil {
		return "", nil, err
	}
	data, err := l.source.Read(ctx, path)
	if err != nil {
		return "", nil, err
	}
	return path, data, nil
}
