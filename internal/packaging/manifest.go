// Package packaging builds pallet packaging manifests from scans and the job's
// PROJET sheet.
package packaging

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cyramp/cyrscan/internal/entity"
	"github.com/cyramp/cyrscan/internal/workbook"
)

// squareInchesPerFoot converts sheet dimensions (inches) to square feet.
const squareInchesPerFoot = 144

// Line is one part row of a manifest.
type Line struct {
	PartID       string  `json:"partId"`
	Height       string  `json:"height"`
	Width        string  `json:"width"`
	MaterialCode string  `json:"materialCode"`
	MassPerArea  float64 `json:"massPerArea"`
	Quantity     int     `json:"quantity"`
	Area         float64 `json:"area"`
	Mass         float64 `json:"mass"`
}

// Manifest is everything written to a packaging workbook.
type Manifest struct {
	JobNumber  string               `json:"jobNumber"`
	PalletName string               `json:"palletName"`
	Project    workbook.ProjectInfo `json:"project"`
	Length     string               `json:"length"`
	Width      string               `json:"width"`
	Height     string               `json:"height"`
	Notes      string               `json:"notes"`
	Final      bool                 `json:"final"`
	CreatedAt  time.Time            `json:"createdAt"`

	Lines []Line `json:"lines"`
	// Missing lists scanned parts absent from the PROJET sheet; they are not part of
	// the totals.
	Missing []string `json:"missing,omitempty"`

	TotalQuantity int     `json:"totalQuantity"`
	TotalMass     float64 `json:"totalMass"`
}

// Area returns the surface of a height × width piece in square feet. Blank
// dimensions give zero.
func Area(height, width string) (float64, error) {
	h, err := parseDimension(height)
	if err != nil {
		return 0, fmt.Errorf("height: %w", err)
	}
	w, err := parseDimension(width)
	if err != nil {
		return 0, fmt.Errorf("width: %w", err)
	}
	return h * w / squareInchesPerFoot, nil
}

func parseDimension(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("%q: %w", v, workbook.ErrParse)
	}
	return f, nil
}

// BuildLines joins the pallet's per-part quantities with the PROJET records, keeping
// the order of quantities. Mass is the material's mass-per-area value times the
// quantity.
func BuildLines(quantities []entity.PartQuantity, sheet *workbook.ProjectSheet) (lines []Line, missing []string, err error) {
	lines = make([]Line, 0, len(quantities))
	for _, q := range quantities {
		rec, ok := sheet.Lookup(q.PartID)
		if !ok {
			missing = append(missing, q.PartID)
			continue
		}
		area, err := Area(rec.Height, rec.Width)
		if err != nil {
			return nil, nil, fmt.Errorf("part %s: %w", q.PartID, err)
		}
		lines = append(lines, Line{
			PartID:       q.PartID,
			Height:       rec.Height,
			Width:        rec.Width,
			MaterialCode: rec.MaterialCode,
			MassPerArea:  rec.MassPerArea,
			Quantity:     q.Quantity,
			Area:         area,
			Mass:         rec.MassPerArea * float64(q.Quantity),
		})
	}
	return lines, missing, nil
}

// Totals sums quantity and mass over lines.
func Totals(lines []Line) (quantity int, mass float64) {
	for _, l := range lines {
		quantity += l.Quantity
		mass += l.Mass
	}
	return quantity, mass
}

// FileName is the manifest file name for a pallet: "{job} {pallet} EMBALLAGE.xlsm",
// with " (FINALE)" before the extension for the last pallet of a job.
func FileName(jobNumber, palletName string, final bool) string {
	suffix := ""
	if final {
		suffix = " (FINALE)"
	}
	return fmt.Sprintf("%s %s EMBALLAGE%s.xlsm", sanitize(jobNumber), sanitize(palletName), suffix)
}

var unsafeName = strings.NewReplacer(
	"/", "-", `\`, "-", ":", "-", "*", "-", "?", "-", `"`, "-", "<", "-", ">", "-", "|", "-",
)

func sanitize(s string) string {
	return unsafeName.Replace(strings.TrimSpace(s))
}
