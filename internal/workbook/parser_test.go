package workbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyramp/cyrscan/internal/common"
)

func TestParse_ExplicitRowCount(t *testing.T) {
	fx := fixture{
		control: 3,
		rows: []controlRow{
			{part: "P-100", qty: 2},
			{part: "P-200", qty: 1},
			{part: "P-300", qty: 4},
			{part: "P-400", qty: 9}, // beyond the control count
		},
	}

	set, err := newTestParser(t).Parse("24017", "mem", fx.reader(t))
	require.NoError(t, err)

	assert.Equal(t, 3, set.RowCount())
	assert.Equal(t, []string{"P-100", "P-200", "P-300"}, set.PartIDs())
	assert.Equal(t, 7, set.TotalQuantity())
	assert.False(t, set.Contains("P-400"))

	q, ok := set.Expected("P-300")
	require.True(t, ok)
	assert.Equal(t, 4, q)
}

func TestParse_InfersRowCountFromQuantityRun(t *testing.T) {
	fx := fixture{
		control: 0,
		rows: []controlRow{
			{part: "A", qty: 3},
			{part: "B", qty: 2},
			{part: "C", qty: 0},
			{part: "D", qty: 5},
		},
	}

	set, err := newTestParser(t).Parse("1", "mem", fx.reader(t))
	require.NoError(t, err)

	assert.Equal(t, 2, set.RowCount())
	assert.Equal(t, []string{"A", "B"}, set.PartIDs())
	assert.Equal(t, 5, set.TotalQuantity())
}

func TestParse_BlankControlCellInfersToo(t *testing.T) {
	fx := fixture{
		rows: []controlRow{
			{part: "A", qty: 1},
			{part: "B"},
			{part: "C", qty: 1},
		},
	}

	set, err := newTestParser(t).Parse("1", "mem", fx.reader(t))
	require.NoError(t, err)
	assert.Equal(t, 1, set.RowCount())
	assert.Equal(t, []string{"A"}, set.PartIDs())
}

func TestParse_FallbackSequenceNumbering(t *testing.T) {
	fx := fixture{
		control: 2,
		rows: []controlRow{
			{fallback: "X", qty: 2},
			{fallback: "X", qty: 1},
		},
	}

	set, err := newTestParser(t).Parse("1", "mem", fx.reader(t))
	require.NoError(t, err)

	var got [][2]any
	for _, o := range set.Occurrences() {
		got = append(got, [2]any{o.PartID, o.Seq})
	}
	assert.Equal(t, [][2]any{{"X", 1}, {"X", 2}, {"X", 1}}, got)
	assert.Equal(t, []string{"X"}, set.PartIDs())
}

func TestParse_PrimaryColumnWinsOverFallback(t *testing.T) {
	fx := fixture{
		control: 2,
		rows: []controlRow{
			{part: "P-1", fallback: "IGNORED", qty: 3},
			{fallback: "F-1", qty: 2},
		},
	}

	set, err := newTestParser(t).Parse("1", "mem", fx.reader(t))
	require.NoError(t, err)

	rows := set.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Line: 2, PartID: "P-1", Quantity: 3}, rows[0])
	assert.Equal(t, Row{Line: 3, PartID: "F-1", Quantity: 2, Fallback: true}, rows[1])

	occ := set.Occurrences()
	require.Len(t, occ, 3)
	assert.Equal(t, Occurrence{PartID: "P-1", Line: 2}, occ[0])
}

func TestParse_SkipsRowsWithoutPart(t *testing.T) {
	fx := fixture{
		control: 3,
		rows: []controlRow{
			{part: "A", qty: 1},
			{qty: 4},
			{part: "B", qty: 1},
		},
	}

	set, err := newTestParser(t).Parse("1", "mem", fx.reader(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, set.PartIDs())
	assert.Equal(t, 2, set.TotalQuantity())
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		fx   fixture
		want error
	}{
		{"missing control sheet", fixture{noControl: true}, ErrSheetNotFound},
		{"text in control cell", fixture{control: "beaucoup"}, ErrParse},
		{"text in quantity", fixture{control: 1, rows: []controlRow{{part: "A", qty: "two"}}}, ErrParse},
		{"negative quantity while inferring", fixture{control: 0, rows: []controlRow{{part: "A", qty: -1}}}, ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser(t).Parse("1", "mem", tt.fx.reader(t))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_NotAWorkbook(t *testing.T) {
	_, err := newTestParser(t).Parse("1", "mem", bytesOf("definitely not a zip"))
	require.ErrorIs(t, err, ErrParse)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		blank   bool
		wantErr bool
	}{
		{"", 0, true, false},
		{"7", 7, false, false},
		{"7.0", 7, false, false},
		{"2,5", 3, false, false},
		{"x", 0, false, true},
		{"-1", 0, false, true},
	}
	for _, tt := range tests {
		n, blank, err := parseCount(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrParse, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, n, tt.in)
		assert.Equal(t, tt.blank, blank, tt.in)
	}
}

func TestParse_OversizedControlCountStopsAtLastRow(t *testing.T) {
	fx := fixture{
		control: 1500000000,
		rows:    []controlRow{{part: "A", qty: 2}},
	}

	started := time.Now()
	set, err := newTestParser(t).Parse("1", "mem", fx.reader(t))
	require.NoError(t, err)

	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Equal(t, 1500000000, set.RowCount(), "row count is kept as read")
	assert.Equal(t, []string{"A"}, set.PartIDs())
	assert.Equal(t, 2, set.TotalQuantity())
}

func TestParse_RowQuantityCeiling(t *testing.T) {
	l := DefaultLayout()
	l.MaxRowQuantity = 5
	p, err := NewParser(l)
	require.NoError(t, err)

	ok := fixture{control: 1, rows: []controlRow{{fallback: "X", qty: 5}}}
	set, err := p.Parse("1", "mem", ok.reader(t))
	require.NoError(t, err)
	assert.Len(t, set.Occurrences(), 5)

	tooMany := fixture{control: 1, rows: []controlRow{{fallback: "X", qty: 6}}}
	_, err = p.Parse("1", "mem", tooMany.reader(t))
	require.ErrorIs(t, err, ErrParse)

	huge := fixture{control: 1, rows: []controlRow{{fallback: "X", qty: 20000000}}}
	_, err = newTestParser(t).Parse("1", "mem", huge.reader(t))
	require.ErrorIs(t, err, ErrParse)
}

func TestNewParser_RejectsBadLayout(t *testing.T) {
	l := DefaultLayout()
	l.PartColumn = "1Z"
	_, err := NewParser(l)
	assert.Error(t, err)

	l = DefaultLayout()
	l.MaterialRange = "H2:J19"
	_, err = NewParser(l)
	assert.Error(t, err)

	l = DefaultLayout()
	l.MaxRowQuantity = 0
	_, err = NewParser(l)
	assert.Error(t, err)

	l = DefaultLayout()
	l.SiteCell = "B"
	_, err = NewParser(l)
	assert.Error(t, err)
}

func TestLayoutFromConfig_DefaultsMatch(t *testing.T) {
	cfg, err := common.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLayout(), LayoutFromConfig(cfg.Workbook))
}
