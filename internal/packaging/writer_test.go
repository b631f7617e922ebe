package packaging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cyramp/cyrscan/constants"
	"github.com/cyramp/cyrscan/internal/workbook"
)

func sampleManifest() *Manifest {
	lines := []Line{
		{PartID: "P-100", Height: "12", Width: "6", MaterialCode: "ALU", MassPerArea: 2.5, Quantity: 3, Area: 0.5, Mass: 7.5},
	}
	m := &Manifest{
		JobNumber:  "24017",
		PalletName: "PAL1",
		Project:    workbook.ProjectInfo{Name: "Passerelle Nord", Client: "Ville de Laval", Site: "Laval"},
		Length:     "96",
		Width:      "48",
		Height:     "40",
		Notes:      "Fragile",
		CreatedAt:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines:      lines,
	}
	m.TotalQuantity, m.TotalMass = Totals(lines)
	return m
}

func TestWriter_NewWorkbook(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "", nil)

	path, err := w.Write(context.Background(), sampleManifest(), &Image{Name: "pal.png", Data: pngImage(t)})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "24017 PAL1 EMBALLAGE.xlsm"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	get := func(cell string) string {
		v, err := f.GetCellValue(constants.SheetManifest, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "24017", get("B1"))
	assert.Equal(t, "PAL1", get("B2"))
	assert.Equal(t, "Ville de Laval", get("B4"))
	assert.Equal(t, "96 x 48 x 40", get("B6"))
	assert.Equal(t, "NON", get("B9"))
	assert.Equal(t, "Pièce", get("A10"))
	assert.Equal(t, "P-100", get("A11"))
	assert.Equal(t, "0.5", get("E11"))
	assert.Equal(t, "TOTAL", get("A12"))
	assert.Equal(t, "3", get("F12"))

	pics, err := f.GetPictures(constants.SheetManifest, pictureCell)
	require.NoError(t, err)
	assert.Len(t, pics, 1)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".~*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriter_TemplateKeepsContent(t *testing.T) {
	dir := t.TempDir()
	tpl := excelize.NewFile()
	_, err := tpl.NewSheet(constants.SheetManifest)
	require.NoError(t, err)
	require.NoError(t, tpl.SetCellValue(constants.SheetManifest, "K1", "CYRAMP"))
	tplPath := filepath.Join(dir, "modele.xlsm")
	require.NoError(t, tpl.SaveAs(tplPath))
	require.NoError(t, tpl.Close())

	m := sampleManifest()
	m.Final = true
	path, err := NewWriter(filepath.Join(dir, "out"), tplPath, nil).Write(context.Background(), m, nil)
	require.NoError(t, err)
	assert.Equal(t, "24017 PAL1 EMBALLAGE (FINALE).xlsm", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(constants.SheetManifest, "K1")
	require.NoError(t, err)
	assert.Equal(t, "CYRAMP", v)
	v, err = f.GetCellValue(constants.SheetManifest, "B9")
	require.NoError(t, err)
	assert.Equal(t, "OUI", v)
}

func TestWriter_RejectsUnknownImage(t *testing.T) {
	_, err := NewWriter(t.TempDir(), "", nil).Write(context.Background(), sampleManifest(), &Image{Name: "x.txt", Data: []byte("hello")})
	assert.Error(t, err)
}

func TestWriter_MissingTemplate(t *testing.T) {
	dir := t.TempDir()
	_, err := NewWriter(dir, filepath.Join(dir, "absent.xlsm"), nil).Write(context.Background(), sampleManifest(), nil)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, FileName("24017", "PAL1", false)))
	assert.True(t, os.IsNotExist(statErr))
}
