package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cyramp/cyrscan/constants"
)

// ProjectInfo is the header block of the PROJET sheet.
type ProjectInfo struct {
	Name   string `json:"name"`
	Client string `json:"client"`
	Site   string `json:"site"`
}

// PartPackagingRecord carries the dimensions needed to pack one part. Height and
// width are kept as written in the sheet (inches).
type PartPackagingRecord struct {
	PartID       string  `json:"partId"`
	Height       string  `json:"height"`
	Width        string  `json:"width"`
	MaterialCode string  `json:"materialCode"`
	MassPerArea  float64 `json:"massPerArea"`
}

// ProjectSheet is the parsed PROJET sheet.
type ProjectSheet struct {
	Info    ProjectInfo
	records map[string]PartPackagingRecord
}

// Lookup finds the packaging record of partID, ignoring case.
func (p *ProjectSheet) Lookup(partID string) (PartPackagingRecord, bool) {
	r, ok := p.records[strings.ToUpper(strings.TrimSpace(partID))]
	return r, ok
}

// Len is the number of parts described in the sheet.
func (p *ProjectSheet) Len() int { return len(p.records) }

// ParseProject reads the PROJET sheet: the project header, the material lookup block
// and the parts table, which runs from the configured first row until the first row
// without a part identifier.
func (p *Parser) ParseProject(r io.Reader) (*ProjectSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w: %w", ErrParse, err)
	}
	defer f.Close()

	rows, err := sheetRows(f, constants.SheetProject)
	if err != nil {
		return nil, err
	}

	masses := make(map[string]float64)
	for row := p.idx.materialFirstRow; row <= p.idx.materialLastRow; row++ {
		code := strings.ToUpper(cellAt(rows, row, p.idx.materialCodeCol))
		if code == "" {
			continue
		}
		raw := cellAt(rows, row, p.idx.materialMassCol)
		if raw == "" {
			continue
		}
		mass, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("%s material %q mass %q: %w", constants.SheetProject, code, raw, ErrParse)
		}
		masses[code] = mass
	}

	sheet := &ProjectSheet{
		Info: ProjectInfo{
			Name:   cellAt(rows, p.idx.infoCells[0].row, p.idx.infoCells[0].col),
			Client: cellAt(rows, p.idx.infoCells[1].row, p.idx.infoCells[1].col),
			Site:   cellAt(rows, p.idx.infoCells[2].row, p.idx.infoCells[2].col),
		},
		records: make(map[string]PartPackagingRecord),
	}
	for row := p.idx.projectFirstRow; row < len(rows); row++ {
		part := cellAt(rows, row, p.idx.projPartCol)
		if part == "" {
			break
		}
		code := strings.ToUpper(cellAt(rows, row, p.idx.materialCol))
		sheet.records[strings.ToUpper(part)] = PartPackagingRecord{
			PartID:       part,
			Height:       cellAt(rows, row, p.idx.heightCol),
			Width:        cellAt(rows, row, p.idx.widthCol),
			MaterialCode: code,
			MassPerArea:  masses[code],
		}
	}
	return sheet, nil
}
