package workbook

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cyramp/cyrscan/constants"
)

// Row is one data row of the CONTROLE sheet that carried a part identifier.
type Row struct {
	// Line is the 1-based sheet row number.
	Line     int
	PartID   string
	Quantity int
	// Fallback is set when the part came from the secondary column.
	Fallback bool
}

// Occurrence is one expected tag in a job's detail view.
type Occurrence struct {
	PartID string `json:"partId"`
	// Seq numbers the synthetic tags expanded from a fallback row; zero otherwise.
	Seq  int `json:"seq,omitempty"`
	Line int `json:"line"`
}

// JobPartSet is the parsed content of a job's CONTROLE sheet. It is immutable once
// built and safe for concurrent use.
type JobPartSet struct {
	jobNumber string
	source    string
	loadedAt  time.Time
	rowCount  int
	rows      []Row
	expected  map[string]int
	total     int
}

func newJobPartSet(jobNumber, source string, rowCount int, rows []Row) *JobPartSet {
	s := &JobPartSet{
		jobNumber: jobNumber,
		source:    source,
		loadedAt:  time.Now().UTC(),
		rowCount:  rowCount,
		rows:      rows,
		expected:  make(map[string]int, len(rows)),
	}
	for _, r := range rows {
		// A part listed on several rows keeps the quantity of its last row.
		s.expected[r.PartID] = r.Quantity
		s.total += r.Quantity
	}
	return s
}

// NewJobPartSet builds a part set from rows that were already extracted.
func NewJobPartSet(jobNumber, source string, rows []Row) *JobPartSet {
	return newJobPartSet(jobNumber, source, len(rows), append([]Row(nil), rows...))
}

func (s *JobPartSet) JobNumber() string   { return s.jobNumber }
func (s *JobPartSet) Source() string      { return s.source }
func (s *JobPartSet) LoadedAt() time.Time { return s.loadedAt }

// RowCount is the number of data rows considered, explicit or inferred.
func (s *JobPartSet) RowCount() int { return s.rowCount }

// TotalQuantity is the sum of row quantities across the job.
func (s *JobPartSet) TotalQuantity() int { return s.total }

// Rows returns a copy of the parsed rows in sheet order.
func (s *JobPartSet) Rows() []Row {
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Expected reports whether partID belongs to the job and its expected quantity.
func (s *JobPartSet) Expected(partID string) (int, bool) {
	q, ok := s.expected[strings.TrimSpace(partID)]
	return q, ok
}

// Contains reports whether partID belongs to the job.
func (s *JobPartSet) Contains(partID string) bool {
	_, ok := s.Expected(partID)
	return ok
}

// PartIDs returns the deduplicated part identifiers, sorted.
func (s *JobPartSet) PartIDs() []string {
	out := make([]string, 0, len(s.expected))
	for id := range s.expected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Occurrences expands the rows into the ordered detail list. Rows from the primary
// column yield one entry. A fallback row yields Quantity entries numbered 1..Quantity;
// numbering restarts on every row, so a part repeated on two fallback rows with
// counts [2,1] gives (X,1),(X,2),(X,1).
func (s *JobPartSet) Occurrences() []Occurrence {
	out := make([]Occurrence, 0, len(s.rows))
	for _, r := range s.rows {
		if !r.Fallback {
			out = append(out, Occurrence{PartID: r.PartID, Line: r.Line})
			continue
		}
		for seq := 1; seq <= r.Quantity; seq++ {
			out = append(out, Occurrence{PartID: r.PartID, Seq: seq, Line: r.Line})
		}
	}
	return out
}

// Parser reads the CONTROLE sheet of a job workbook.
type Parser struct {
	layout Layout
	idx    resolved
}

func NewParser(layout Layout) (*Parser, error) {
	idx, err := layout.resolve()
	if err != nil {
		return nil, fmt.Errorf("workbook layout: %w", err)
	}
	return &Parser{layout: layout, idx: idx}, nil
}

// Parse reads the workbook stream and builds the job's part set.
func (p *Parser) Parse(jobNumber, source string, r io.Reader) (*JobPartSet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w: %w", ErrParse, err)
	}
	defer f.Close()

	rows, err := sheetRows(f, constants.SheetControl)
	if err != nil {
		return nil, err
	}

	count, err := p.rowCount(rows)
	if err != nil {
		return nil, err
	}

	// Rows past the end of the sheet are blank, so an oversized control count stops
	// at the last stored row.
	last := min(count, len(rows)-1)
	var parsed []Row
	for line := 1; line <= last; line++ {
		qty, _, err := parseCount(cellAt(rows, line, p.idx.qtyCol))
		if err != nil {
			return nil, fmt.Errorf("%s row %d quantity: %w", constants.SheetControl, line+1, err)
		}
		if qty > p.idx.maxRowQty {
			return nil, fmt.Errorf("%s row %d quantity %d above %d: %w",
				constants.SheetControl, line+1, qty, p.idx.maxRowQty, ErrParse)
		}
		part := cellAt(rows, line, p.idx.partCol)
		fallback := false
		if part == "" {
			part = cellAt(rows, line, p.idx.fallbackCol)
			fallback = true
		}
		if part == "" {
			continue
		}
		parsed = append(parsed, Row{Line: line + 1, PartID: part, Quantity: qty, Fallback: fallback})
	}

	return newJobPartSet(jobNumber, source, count, parsed), nil
}

// rowCount reads the control cell. Zero means the count is inferred: the quantity
// column is scanned from the first data row until a blank or zero cell, and the rows
// before it are the data rows.
func (p *Parser) rowCount(rows [][]string) (int, error) {
	n, _, err := parseCount(cellAt(rows, p.idx.controlRow, p.idx.controlCol))
	if err != nil {
		return 0, fmt.Errorf("control cell %s: %w", p.layout.ControlCell, err)
	}
	if n > 0 {
		return n, nil
	}

	line := 1
	for ; line < len(rows); line++ {
		q, blank, err := parseCount(cellAt(rows, line, p.idx.qtyCol))
		if err != nil {
			return 0, fmt.Errorf("%s row %d quantity: %w", constants.SheetControl, line+1, err)
		}
		if blank || q == 0 {
			break
		}
	}
	return line - 1, nil
}

func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx == -1 {
		return nil, fmt.Errorf("%q: %w", sheet, ErrSheetNotFound)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %q: %w: %w", sheet, ErrParse, err)
	}
	return rows, nil
}

// cellAt returns the trimmed cell value at zero-based (row, col); missing cells of a
// ragged sheet read as blank.
func cellAt(rows [][]string, row, col int) string {
	if row < 0 || row >= len(rows) || col < 0 || col >= len(rows[row]) {
		return ""
	}
	return strings.TrimSpace(rows[row][col])
}

// parseCount parses a non-negative count cell. Blank cells are zero.
func parseCount(v string) (n int, blank bool, err error) {
	if v == "" {
		return 0, true, nil
	}
	if i, convErr := strconv.Atoi(v); convErr == nil {
		if i < 0 {
			return 0, false, fmt.Errorf("negative count %q: %w", v, ErrParse)
		}
		return i, false, nil
	}
	f, convErr := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if convErr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("not a number %q: %w", v, ErrParse)
	}
	if f < 0 {
		return 0, false, fmt.Errorf("negative count %q: %w", v, ErrParse)
	}
	return int(math.Round(f)), false, nil
}
