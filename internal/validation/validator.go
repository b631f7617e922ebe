// Package validation answers whether a scanned part belongs to a job.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cyramp/cyrscan/constants"
	"github.com/cyramp/cyrscan/internal/workbook"
)

// Kind classifies a validation outcome.
type Kind string

const (
	KindValid            Kind = "valid"
	KindFileNotFound     Kind = "file_not_found"
	KindPartNotFound     Kind = "part_not_found"
	KindQuantityMismatch Kind = "quantity_mismatch"
)

// PartSource resolves the parsed part set of a job. *jobcache.Cache implements it.
type PartSource interface {
	Get(ctx context.Context, jobNumber string) (*workbook.JobPartSet, error)
}

// Request is one validation query. QRCode and Quantity select the mode: with a
// Quantity the expected quantity must match as well; otherwise membership is enough.
type Request struct {
	JobNumber string
	PartID    string
	QRCode    string
	Quantity  *int
}

// Result is the soft outcome of a validation. Failures are values, never errors.
type Result struct {
	Valid            bool   `json:"isValid"`
	Kind             Kind   `json:"kind"`
	Message          string `json:"message"`
	ExpectedQuantity int    `json:"expectedQuantity"`
	// ActualQuantity echoes the requested quantity on a mismatch.
	ActualQuantity   *int `json:"actualQuantity,omitempty"`
	TotalQuantityJob int  `json:"totalQuantityJob"`
}

type Validator struct {
	parts  PartSource
	logger *slog.Logger
}

func NewValidator(parts PartSource, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{parts: parts, logger: logger}
}

// Validate checks req against the job's workbook. Any failure to obtain the part set
// (missing workbook, missing sheet, unreadable cells, lock that outlived the fallback,
// timeout) is reported as KindFileNotFound.
func (v *Validator) Validate(ctx context.Context, req Request) Result {
	job := strings.TrimSpace(req.JobNumber)
	part := strings.TrimSpace(req.PartID)

	set, err := v.parts.Get(ctx, job)
	if err != nil {
		v.logFailure(job, err)
		return Result{Kind: KindFileNotFound, Message: constants.MsgFileNotFound}
	}

	total := set.TotalQuantity()
	expected, ok := set.Expected(part)
	if !ok {
		return Result{Kind: KindPartNotFound, Message: constants.MsgPartNotFound, TotalQuantityJob: total}
	}

	if req.Quantity != nil && *req.Quantity != expected {
		actual := *req.Quantity
		return Result{
			Kind:             KindQuantityMismatch,
			Message:          fmt.Sprintf(constants.MsgQuantityMismatch, expected, actual),
			ExpectedQuantity: expected,
			ActualQuantity:   &actual,
			TotalQuantityJob: total,
		}
	}

	return Result{
		Valid:            true,
		Kind:             KindValid,
		Message:          constants.MsgTagValid,
		ExpectedQuantity: expected,
		TotalQuantityJob: total,
	}
}

func (v *Validator) logFailure(job string, err error) {
	switch {
	case errors.Is(err, workbook.ErrLocked):
		v.logger.Warn("validate.workbook.locked", "job_number", job, "error", err)
	case errors.Is(err, workbook.ErrFileNotFound):
		v.logger.Info("validate.workbook.missing", "job_number", job)
	default:
		v.logger.Error("validate.workbook.failed", "job_number", job, "error", err)
	}
}

// FormatQRCode pads the trailing sequence segment of a QR code to two digits when it
// is 1 to 9: "J-P-3" becomes "J-P-03". Other codes are returned unchanged.
func FormatQRCode(code string) string {
	if strings.TrimSpace(code) == "" {
		return code
	}
	parts := strings.Split(code, "-")
	if len(parts) < 2 {
		return code
	}
	last := parts[len(parts)-1]
	n, err := strconv.Atoi(last)
	if err != nil || n < 1 || n > 9 {
		return code
	}
	parts[len(parts)-1] = "0" + strconv.Itoa(n)
	return strings.Join(parts, "-")
}

// QRSequence returns the trailing segment of a QR code, which identifies the piece
// within its part. A code without separators is its own sequence.
func QRSequence(code string) string {
	return code[strings.LastIndexByte(code, '-')+1:]
}
