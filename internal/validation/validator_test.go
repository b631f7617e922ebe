package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyramp/cyrscan/constants"
	"github.com/cyramp/cyrscan/internal/jobcache"
	"github.com/cyramp/cyrscan/internal/workbook"
)

type mapSource map[string]*workbook.JobPartSet

func (m mapSource) Get(_ context.Context, job string) (*workbook.JobPartSet, error) {
	if set, ok := m[job]; ok {
		return set, nil
	}
	return nil, fmt.Errorf("%s: %w", job, workbook.ErrFileNotFound)
}

func jobSet() *workbook.JobPartSet {
	return workbook.NewJobPartSet("24017", "mem", []workbook.Row{
		{Line: 2, PartID: "P-100", Quantity: 2},
		{Line: 3, PartID: "P-200", Quantity: 5},
	})
}

func qty(n int) *int { return &n }

func TestValidate_UnknownJobIsFileNotFoundForAnyPart(t *testing.T) {
	v := NewValidator(mapSource{}, nil)
	for _, part := range []string{"P-100", "", "whatever"} {
		res := v.Validate(context.Background(), Request{JobNumber: "99999", PartID: part})
		assert.False(t, res.Valid, part)
		assert.Equal(t, KindFileNotFound, res.Kind, part)
		assert.Equal(t, constants.MsgFileNotFound, res.Message, part)
		assert.Zero(t, res.TotalQuantityJob, part)
	}
}

func TestValidate_Membership(t *testing.T) {
	v := NewValidator(mapSource{"24017": jobSet()}, nil)

	ok := v.Validate(context.Background(), Request{JobNumber: "24017", PartID: " P-200 ", QRCode: "24017-P-200-03"})
	assert.Equal(t, Result{
		Valid:            true,
		Kind:             KindValid,
		Message:          constants.MsgTagValid,
		ExpectedQuantity: 5,
		TotalQuantityJob: 7,
	}, ok)

	missing := v.Validate(context.Background(), Request{JobNumber: "24017", PartID: "P-999"})
	assert.False(t, missing.Valid)
	assert.Equal(t, KindPartNotFound, missing.Kind)
	assert.Equal(t, constants.MsgPartNotFound, missing.Message)
	assert.Equal(t, 7, missing.TotalQuantityJob)
}

func TestValidate_QuantityMode(t *testing.T) {
	v := NewValidator(mapSource{"24017": jobSet()}, nil)

	match := v.Validate(context.Background(), Request{JobNumber: "24017", PartID: "P-100", Quantity: qty(2)})
	assert.True(t, match.Valid)

	mismatch := v.Validate(context.Background(), Request{JobNumber: "24017", PartID: "P-100", Quantity: qty(3)})
	assert.False(t, mismatch.Valid)
	assert.Equal(t, KindQuantityMismatch, mismatch.Kind)
	assert.Equal(t, "Erreur QTE : Attendu 2, Scanné 3", mismatch.Message)
	assert.Equal(t, 2, mismatch.ExpectedQuantity)
	require.NotNil(t, mismatch.ActualQuantity)
	assert.Equal(t, 3, *mismatch.ActualQuantity)
	assert.Nil(t, match.ActualQuantity)

	zero := v.Validate(context.Background(), Request{JobNumber: "24017", PartID: "P-100", Quantity: qty(0)})
	body, err := json.Marshal(zero)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"actualQuantity":0`)

	body, err = json.Marshal(match)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "actualQuantity")
}

func TestValidate_LoadErrorsAreSoft(t *testing.T) {
	for _, cause := range []error{workbook.ErrLocked, workbook.ErrSheetNotFound, workbook.ErrParse, context.DeadlineExceeded} {
		c := jobcache.New(func(context.Context, string) (*workbook.JobPartSet, error) { return nil, cause })
		res := NewValidator(c, nil).Validate(context.Background(), Request{JobNumber: "1", PartID: "A"})
		assert.Equal(t, KindFileNotFound, res.Kind, cause.Error())
		assert.Zero(t, c.Stats().Entries)
	}
}

func TestValidate_ParsesOncePerJob(t *testing.T) {
	var parses atomic.Int32
	c := jobcache.New(func(context.Context, string) (*workbook.JobPartSet, error) {
		parses.Add(1)
		return jobSet(), nil
	})
	v := NewValidator(c, nil)

	first := v.Validate(context.Background(), Request{JobNumber: "24017", PartID: "P-100"})
	second := v.Validate(context.Background(), Request{JobNumber: "24017", PartID: "P-100"})
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, parses.Load())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := v.Validate(context.Background(), Request{JobNumber: "24017", PartID: "P-200"})
			assert.True(t, res.Valid)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, parses.Load())
}

func TestFormatQRCode(t *testing.T) {
	tests := map[string]string{
		"24017-P-100-3":  "24017-P-100-03",
		"24017-P-100-9":  "24017-P-100-09",
		"24017-P-100-10": "24017-P-100-10",
		"24017-P-100-0":  "24017-P-100-0",
		"24017-P-100-03": "24017-P-100-03",
		"24017-P-100-x":  "24017-P-100-x",
		"7":              "7",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatQRCode(in), in)
	}
}

func TestQRSequence(t *testing.T) {
	require.Equal(t, "03", QRSequence("24017-P-100-03"))
	require.Equal(t, "ABC", QRSequence("ABC"))
	require.Equal(t, "", QRSequence("A-"))
}
