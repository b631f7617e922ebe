package packaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cyramp/cyrscan/constants"
	"github.com/cyramp/cyrscan/internal/workbook"
)

// jobWorkbook returns the bytes of a job workbook with a PROJET sheet holding two
// parts and two materials.
func jobWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet(constants.SheetControl)
	require.NoError(t, err)
	_, err = f.NewSheet(constants.SheetProject)
	require.NoError(t, err)

	set := func(cell string, v any) {
		require.NoError(t, f.SetCellValue(constants.SheetProject, cell, v))
	}
	set("B1", "Passerelle Nord")
	set("B2", "Ville de Laval")
	set("B3", "Laval")
	set("H2", "ALU")
	set("I2", 2.5)
	set("H3", "ACIER")
	set("I3", 1.25)
	set("A6", "P-100")
	set("B6", "12")
	set("C6", "6")
	set("D6", "ALU")
	set("A7", "P-200")
	set("B7", "24")
	set("C7", "12")
	set("D7", "acier")

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func testProjectSheet(t *testing.T) *workbook.ProjectSheet {
	t.Helper()
	p, err := workbook.NewParser(workbook.DefaultLayout())
	require.NoError(t, err)
	sheet, err := p.ParseProject(bytes.NewReader(jobWorkbook(t)))
	require.NoError(t, err)
	return sheet
}

// testLoader serves workbooks saved in a temp directory.
func testLoader(t *testing.T, jobs ...string) *workbook.Loader {
	t.Helper()
	dir := t.TempDir()
	for _, job := range jobs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, job+" BOM.xlsm"), jobWorkbook(t), 0o644))
	}
	p, err := workbook.NewParser(workbook.DefaultLayout())
	require.NoError(t, err)
	return workbook.NewLoader(workbook.NewLocator(dir, nil), workbook.NewSource(t.TempDir(), nil), p, 0, nil)
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
