package workbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cyramp/cyrscan/constants"
)

func TestParseProject(t *testing.T) {
	fx := fixture{
		projectHdr: []string{"Tour Boréale", "Construction Nord", "Québec"},
		materials: [][]any{
			{"AL", 1.35},
			{"acier", 2.5},
		},
		project: [][]any{
			{"P-100", "12", "6", "al"},
			{"p-200", 24, 12, "ACIER"},
			{"P-300", "10", "10", "ZINC"},
			{},
			{"P-999", "1", "1", "AL"}, // after the first blank row
		},
	}

	sheet, err := newTestParser(t).ParseProject(fx.reader(t))
	require.NoError(t, err)

	assert.Equal(t, ProjectInfo{Name: "Tour Boréale", Client: "Construction Nord", Site: "Québec"}, sheet.Info)
	assert.Equal(t, 3, sheet.Len())

	rec, ok := sheet.Lookup("p-100")
	require.True(t, ok)
	assert.Equal(t, PartPackagingRecord{PartID: "P-100", Height: "12", Width: "6", MaterialCode: "AL", MassPerArea: 1.35}, rec)

	rec, ok = sheet.Lookup("P-200")
	require.True(t, ok)
	assert.Equal(t, 2.5, rec.MassPerArea)
	assert.Equal(t, "24", rec.Height)

	rec, ok = sheet.Lookup("P-300")
	require.True(t, ok)
	assert.Zero(t, rec.MassPerArea, "unknown material has no mass")

	_, ok = sheet.Lookup("P-999")
	assert.False(t, ok)
}

func TestParseProject_MissingSheet(t *testing.T) {
	_, err := newTestParser(t).ParseProject(fixture{control: 1}.reader(t))
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestParseProject_BadMass(t *testing.T) {
	fx := fixture{materials: [][]any{{"AL", "lourd"}}, project: [][]any{{"P-1", "1", "1", "AL"}}}
	_, err := newTestParser(t).ParseProject(fx.reader(t))
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseProject_CustomLayout(t *testing.T) {
	l := DefaultLayout()
	l.ProjectNameCell, l.ClientCell, l.SiteCell = "A1", "A2", "A3"
	l.ProjectPartColumn, l.HeightColumn, l.WidthColumn, l.MaterialColumn = "E", "F", "G", "H"
	l.ProjectFirstRow = 10
	l.MaterialRange = "K2:L5"
	p, err := NewParser(l)
	require.NoError(t, err)

	f := excelize.NewFile()
	_, err = f.NewSheet(constants.SheetProject)
	require.NoError(t, err)
	for ref, v := range map[string]any{
		"A1": "Pont Est", "A2": "Ville", "A3": "Lévis",
		"K2": "AL", "L2": 1.5,
		"E10": "P-7", "F10": "24", "G10": "12", "H10": "al",
	} {
		require.NoError(t, f.SetCellValue(constants.SheetProject, ref, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	sheet, err := p.ParseProject(bytesOf(buf.String()))
	require.NoError(t, err)

	assert.Equal(t, ProjectInfo{Name: "Pont Est", Client: "Ville", Site: "Lévis"}, sheet.Info)
	rec, ok := sheet.Lookup("P-7")
	require.True(t, ok)
	assert.Equal(t, PartPackagingRecord{PartID: "P-7", Height: "24", Width: "12", MaterialCode: "AL", MassPerArea: 1.5}, rec)
}
