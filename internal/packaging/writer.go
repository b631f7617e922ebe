package packaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/cyramp/cyrscan/constants"
	"github.com/cyramp/cyrscan/internal/common"
)

// Image is an optional pallet photo embedded in the manifest.
type Image struct {
	Name string
	Data []byte
}

// Cells of the manifest header block and the first table row.
const (
	tableHeaderRow = 10
	pictureCell    = "I1"
	lockFileName   = ".cyrscan-emballage.lock"
)

var tableHeaders = []string{"Pièce", "Hauteur (po)", "Largeur (po)", "Matériau", "Aire (pi²)", "Qté", "Masse"}

// Writer renders manifests as workbooks in an output directory. Writes are
// serialised across processes with a lock file in that directory.
type Writer struct {
	outputDir    string
	templatePath string
	lockRetry    time.Duration
	logger       *slog.Logger
}

func NewWriter(outputDir, templatePath string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{outputDir: outputDir, templatePath: templatePath, lockRetry: 100 * time.Millisecond, logger: logger}
}

// Write renders m and returns the path of the written workbook. An existing manifest
// with the same name is replaced.
func (w *Writer) Write(ctx context.Context, m *Manifest, img *Image) (string, error) {
	start := time.Now()
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	lock := flock.New(filepath.Join(w.outputDir, lockFileName))
	locked, err := lock.TryLockContext(ctx, w.lockRetry)
	if err != nil {
		return "", fmt.Errorf("acquire manifest lock: %w", err)
	}
	if !locked {
		return "", errors.New("acquire manifest lock: not acquired")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			w.logger.Warn("failed to release manifest lock", "error", err)
		}
	}()

	f, err := w.open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := render(f, m); err != nil {
		return "", err
	}
	if img != nil && len(img.Data) > 0 {
		if err := addPicture(f, img); err != nil {
			return "", err
		}
	}

	path := filepath.Join(w.outputDir, FileName(m.JobNumber, m.PalletName, m.Final))
	tmp := filepath.Join(w.outputDir, ".~"+uuid.NewString()+".xlsm")
	if err := f.SaveAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("xlsm write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("publish manifest: %w", err)
	}

	w.logger.Info("packaging.xlsm.ok",
		"job_number", m.JobNumber,
		"pallet", m.PalletName,
		"path", path,
		"rows", len(m.Lines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}

func (w *Writer) open() (*excelize.File, error) {
	if w.templatePath == "" {
		f := excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), constants.SheetManifest); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("name manifest sheet: %w", err)
		}
		return f, nil
	}

	f, err := excelize.OpenFile(w.templatePath)
	if err != nil {
		return nil, fmt.Errorf("open template %s: %w", w.templatePath, err)
	}
	if idx, _ := f.GetSheetIndex(constants.SheetManifest); idx == -1 {
		if _, err := f.NewSheet(constants.SheetManifest); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("add manifest sheet: %w", err)
		}
	}
	return f, nil
}

func render(f *excelize.File, m *Manifest) error {
	const sheet = constants.SheetManifest
	idx, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(idx)

	final := "NON"
	if m.Final {
		final = "OUI"
	}
	header := [][2]any{
		{"Job", m.JobNumber},
		{"Palette", m.PalletName},
		{"Projet", m.Project.Name},
		{"Client", m.Project.Client},
		{"Chantier", m.Project.Site},
		{"Dimensions (L x l x H)", fmt.Sprintf("%s x %s x %s", m.Length, m.Width, m.Height)},
		{"Notes", m.Notes},
		{"Date", m.CreatedAt.Format("2006-01-02")},
		{"Finale", final},
	}
	for i, kv := range header {
		if err := setRow(f, sheet, i+1, kv[0], kv[1]); err != nil {
			return err
		}
	}

	headerCells := make([]any, len(tableHeaders))
	for i, h := range tableHeaders {
		headerCells[i] = h
	}
	if err := setRow(f, sheet, tableHeaderRow, headerCells...); err != nil {
		return err
	}

	row := tableHeaderRow + 1
	for _, l := range m.Lines {
		if err := setRow(f, sheet, row, l.PartID, l.Height, l.Width, l.MaterialCode, l.Area, l.Quantity, l.Mass); err != nil {
			return err
		}
		row++
	}
	if err := setRow(f, sheet, row, "TOTAL", nil, nil, nil, nil, m.TotalQuantity, m.TotalMass); err != nil {
		return err
	}

	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(tableHeaders), tableHeaderRow)
		_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", tableHeaderRow), last, bold)
		_ = f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), bold)
	}

	_ = f.SetColWidth(sheet, "A", "A", 24) // labels, part ids
	_ = f.SetColWidth(sheet, "B", "C", 14) // dimensions
	_ = f.SetColWidth(sheet, "D", "G", 12)
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s: %w", cell, err)
		}
	}
	return nil
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

func addPicture(f *excelize.File, img *Image) error {
	ext, ok := imageExtensions[http.DetectContentType(img.Data)]
	if !ok {
		return common.InvalidInputErrorf("unsupported pallet image %q", img.Name)
	}
	err := f.AddPictureFromBytes(constants.SheetManifest, pictureCell, &excelize.Picture{
		Extension: ext,
		File:      img.Data,
		Format:    &excelize.GraphicOptions{AltText: img.Name, ScaleX: 0.5, ScaleY: 0.5},
	})
	if err != nil {
		return fmt.Errorf("embed pallet image: %w", err)
	}
	return nil
}
