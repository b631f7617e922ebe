package workbook

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cyramp/cyrscan/internal/common"
)

// Layout pins down where values live in a job workbook. Column fields are letters
// ("Z", "AA"), cells are A1 references.
type Layout struct {
	ControlCell    string
	PartColumn     string
	FallbackColumn string
	QuantityColumn string
	// MaxRowQuantity caps the quantity of one CONTROLE row. Larger values are
	// reported as parse errors.
	MaxRowQuantity int

	ProjectNameCell   string
	ClientCell        string
	SiteCell          string
	ProjectPartColumn string
	HeightColumn      string
	WidthColumn       string
	MaterialColumn    string
	ProjectFirstRow   int
	MaterialRange     string
}

// DefaultLayout is the layout of the shop's current workbook template.
func DefaultLayout() Layout {
	return Layout{
		ControlCell:       "K1",
		PartColumn:        "Z",
		FallbackColumn:    "C",
		QuantityColumn:    "AA",
		MaxRowQuantity:    10000,
		ProjectNameCell:   "B1",
		ClientCell:        "B2",
		SiteCell:          "B3",
		ProjectPartColumn: "A",
		HeightColumn:      "B",
		WidthColumn:       "C",
		MaterialColumn:    "D",
		ProjectFirstRow:   6,
		MaterialRange:     "H2:I19",
	}
}

// LayoutFromConfig maps the workbook section of the process config onto a Layout.
func LayoutFromConfig(cfg common.WorkbookConfig) Layout {
	return Layout{
		ControlCell:       cfg.ControlCell,
		PartColumn:        cfg.PartColumn,
		FallbackColumn:    cfg.FallbackCol,
		QuantityColumn:    cfg.QuantityCol,
		MaxRowQuantity:    cfg.MaxRowQty,
		ProjectNameCell:   cfg.ProjectNameCell,
		ClientCell:        cfg.ClientCell,
		SiteCell:          cfg.SiteCell,
		ProjectPartColumn: cfg.ProjectPartCol,
		HeightColumn:      cfg.HeightCol,
		WidthColumn:       cfg.WidthCol,
		MaterialColumn:    cfg.MaterialCol,
		ProjectFirstRow:   cfg.ProjectRow,
		MaterialRange:     cfg.MaterialRange,
	}
}

// resolved holds zero-based indexes derived from a Layout.
type resolved struct {
	controlRow, controlCol int
	partCol                int
	fallbackCol            int
	qtyCol                 int
	maxRowQty              int
	infoCells              [3]cellRef
	projPartCol            int
	heightCol              int
	widthCol               int
	materialCol            int
	projectFirstRow        int
	materialFirstRow       int
	materialLastRow        int
	materialCodeCol        int
	materialMassCol        int
}

// cellRef is a zero-based (row, col) pair.
type cellRef struct{ row, col int }

func toCellRef(name string) (cellRef, error) {
	col, row, err := excelize.CellNameToCoordinates(name)
	if err != nil {
		return cellRef{}, fmt.Errorf("cell %q: %w", name, err)
	}
	return cellRef{row: row - 1, col: col - 1}, nil
}

func (l Layout) resolve() (resolved, error) {
	var r resolved
	control, err := toCellRef(l.ControlCell)
	if err != nil {
		return r, fmt.Errorf("control %w", err)
	}
	r.controlRow, r.controlCol = control.row, control.col

	for i, name := range []string{l.ProjectNameCell, l.ClientCell, l.SiteCell} {
		if r.infoCells[i], err = toCellRef(name); err != nil {
			return r, fmt.Errorf("project info %w", err)
		}
	}

	for _, c := range []struct {
		name string
		dst  *int
	}{
		{l.PartColumn, &r.partCol},
		{l.FallbackColumn, &r.fallbackCol},
		{l.QuantityColumn, &r.qtyCol},
		{l.ProjectPartColumn, &r.projPartCol},
		{l.HeightColumn, &r.heightCol},
		{l.WidthColumn, &r.widthCol},
		{l.MaterialColumn, &r.materialCol},
	} {
		n, err := excelize.ColumnNameToNumber(c.name)
		if err != nil {
			return r, fmt.Errorf("column %q: %w", c.name, err)
		}
		*c.dst = n - 1
	}

	if l.MaxRowQuantity < 1 {
		return r, fmt.Errorf("max row quantity must be >= 1, got %d", l.MaxRowQuantity)
	}
	r.maxRowQty = l.MaxRowQuantity

	if l.ProjectFirstRow < 1 {
		return r, fmt.Errorf("project first row must be >= 1, got %d", l.ProjectFirstRow)
	}
	r.projectFirstRow = l.ProjectFirstRow - 1

	start, end, ok := strings.Cut(l.MaterialRange, ":")
	if !ok {
		return r, fmt.Errorf("material range %q: expected A1:B2 form", l.MaterialRange)
	}
	c1, r1, err := excelize.CellNameToCoordinates(start)
	if err != nil {
		return r, fmt.Errorf("material range %q: %w", l.MaterialRange, err)
	}
	c2, r2, err := excelize.CellNameToCoordinates(end)
	if err != nil {
		return r, fmt.Errorf("material range %q: %w", l.MaterialRange, err)
	}
	if c2 != c1+1 || r2 < r1 {
		return r, fmt.Errorf("material range %q: expected two adjacent columns", l.MaterialRange)
	}
	r.materialFirstRow, r.materialLastRow = r1-1, r2-1
	r.materialCodeCol, r.materialMassCol = c1-1, c2-1
	return r, nil
}
