package workbook

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cyramp/cyrscan/constants"
)

// controlRow is one CONTROLE data row in a fixture.
type controlRow struct {
	part     string
	fallback string
	qty      any
}

type fixture struct {
	control    any
	rows       []controlRow
	noControl  bool
	project    [][]any
	materials  [][]any
	projectHdr []string
}

func (fx fixture) build(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	if !fx.noControl {
		_, err := f.NewSheet(constants.SheetControl)
		require.NoError(t, err)
		if fx.control != nil {
			require.NoError(t, f.SetCellValue(constants.SheetControl, "K1", fx.control))
		}
		for i, r := range fx.rows {
			line := i + 2
			if r.part != "" {
				require.NoError(t, f.SetCellValue(constants.SheetControl, cell(t, "Z", line), r.part))
			}
			if r.fallback != "" {
				require.NoError(t, f.SetCellValue(constants.SheetControl, cell(t, "C", line), r.fallback))
			}
			if r.qty != nil {
				require.NoError(t, f.SetCellValue(constants.SheetControl, cell(t, "AA", line), r.qty))
			}
		}
	}
	if fx.project != nil || fx.materials != nil {
		_, err := f.NewSheet(constants.SheetProject)
		require.NoError(t, err)
		for i, v := range fx.projectHdr {
			require.NoError(t, f.SetCellValue(constants.SheetProject, cell(t, "B", i+1), v))
		}
		for i, m := range fx.materials {
			require.NoError(t, f.SetCellValue(constants.SheetProject, cell(t, "H", i+2), m[0]))
			require.NoError(t, f.SetCellValue(constants.SheetProject, cell(t, "I", i+2), m[1]))
		}
		for i, p := range fx.project {
			for c, v := range p {
				col, err := excelize.ColumnNumberToName(c + 1)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(constants.SheetProject, cell(t, col, i+6), v))
			}
		}
	}
	return f
}

func (fx fixture) bytes(t *testing.T) []byte {
	t.Helper()
	buf, err := fx.build(t).WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func (fx fixture) reader(t *testing.T) *bytes.Reader {
	return bytes.NewReader(fx.bytes(t))
}

// save writes the fixture as dir/name and returns the full path.
func (fx fixture) save(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, fx.bytes(t), 0o644))
	return path
}

func cell(t *testing.T, col string, row int) string {
	t.Helper()
	name, err := excelize.JoinCellName(col, row)
	require.NoError(t, err)
	return name
}

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser(DefaultLayout())
	require.NoError(t, err)
	return p
}

func bytesOf(s string) *bytes.Reader {
	return bytes.NewReader([]byte(s))
}
