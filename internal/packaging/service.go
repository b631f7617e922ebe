package packaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cyramp/cyrscan/constants"
	"github.com/cyramp/cyrscan/internal/async"
	"github.com/cyramp/cyrscan/internal/common"
	"github.com/cyramp/cyrscan/internal/entity"
	"github.com/cyramp/cyrscan/internal/workbook"
)

// PalletSource reads pallets and their grouped scans.
type PalletSource interface {
	GetPallet(ctx context.Context, id int64) (*entity.Pallet, error)
	PalletPartQuantities(ctx context.Context, id int64) ([]entity.PartQuantity, error)
}

// ProjectSource loads the PROJET sheet of a job workbook. *workbook.Loader
// implements it.
type ProjectSource interface {
	LoadProject(ctx context.Context, jobNumber string) (*workbook.ProjectSheet, error)
}

// Recorder persists generated manifests.
type Recorder interface {
	RecordManifest(ctx context.Context, rec entity.PackagingRecord) (*entity.PackagingRecord, error)
}

// Request asks for the manifest of a pallet.
type Request struct {
	PalletID int64
	Length   string
	Width    string
	Height   string
	Notes    string
	Final    bool
	Image    *Image
	Operator string
}

// Result describes a written manifest.
type Result struct {
	Message    string    `json:"message"`
	FilePath   string    `json:"filePath"`
	JobNumber  string    `json:"jobNumber"`
	PalletName string    `json:"paletteName"`
	Manifest   *Manifest `json:"manifest"`
}

type Service struct {
	pallets    PalletSource
	projects   ProjectSource
	recorder   Recorder
	writer     *Writer
	queue      async.Queue
	exporter   Exporter
	notifier   Notifier
	recipients []string
	logger     *slog.Logger
}

type ServiceOption func(*Service)

func WithExporter(e Exporter) ServiceOption {
	return func(s *Service) {
		if e != nil {
			s.exporter = e
		}
	}
}

func WithNotifier(n Notifier, recipients []string) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
		s.recipients = recipients
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(pallets PalletSource, projects ProjectSource, recorder Recorder, writer *Writer, queue async.Queue, opts ...ServiceOption) *Service {
	s := &Service{
		pallets:  pallets,
		projects: projects,
		recorder: recorder,
		writer:   writer,
		queue:    queue,
		exporter: NoopExporter{},
		notifier: NoopNotifier{},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Generate writes the manifest of a pallet, records it, and queues the export and
// notification. Failures of the queued side effects never reach the caller.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	pallet, err := s.pallets.GetPallet(ctx, req.PalletID)
	if err != nil {
		return nil, err
	}
	quantities, err := s.pallets.PalletPartQuantities(ctx, pallet.ID)
	if err != nil {
		return nil, err
	}
	if len(quantities) == 0 {
		return nil, common.NotFoundError(constants.MsgPackagingNoScans)
	}

	m, err := s.build(ctx, pallet.JobNumber, quantities)
	if err != nil {
		return nil, err
	}
	m.PalletName = pallet.Name
	m.Length, m.Width, m.Height = req.Length, req.Width, req.Height
	m.Notes = req.Notes
	if strings.TrimSpace(m.Notes) == "-" {
		m.Notes = ""
	}
	m.Final = req.Final

	path, err := s.writer.Write(ctx, m, req.Image)
	if err != nil {
		s.logger.Error("packaging.write.failed", "pallet_id", pallet.ID, "error", err)
		return nil, err
	}

	if _, err := s.recorder.RecordManifest(ctx, entity.PackagingRecord{
		PalletID:      pallet.ID,
		JobNumber:     pallet.JobNumber,
		PalletName:    pallet.Name,
		FilePath:      path,
		Final:         m.Final,
		TotalQuantity: m.TotalQuantity,
		TotalMass:     m.TotalMass,
		CreatedBy:     req.Operator,
		CreatedAt:     m.CreatedAt,
	}); err != nil {
		return nil, err
	}

	s.enqueueSideEffects(ctx, m, path)

	return &Result{
		Message:    constants.MsgPackagingCreated,
		FilePath:   path,
		JobNumber:  pallet.JobNumber,
		PalletName: pallet.Name,
		Manifest:   m,
	}, nil
}

// Preview computes manifest lines and totals for arbitrary quantities without writing
// anything.
func (s *Service) Preview(ctx context.Context, jobNumber string, quantities []entity.PartQuantity) (*Manifest, error) {
	return s.build(ctx, jobNumber, quantities)
}

func (s *Service) build(ctx context.Context, jobNumber string, quantities []entity.PartQuantity) (*Manifest, error) {
	sheet, err := s.projects.LoadProject(ctx, jobNumber)
	if err != nil {
		s.logger.Warn("packaging.project.unavailable", "job_number", jobNumber, "error", err)
		return nil, common.NewAppError("WORKBOOK_UNAVAILABLE", constants.MsgFileNotFound, errors.Join(common.ErrValidation, err))
	}

	lines, missing, err := BuildLines(quantities, sheet)
	if err != nil {
		return nil, common.NewAppError("WORKBOOK_INVALID", err.Error(), errors.Join(common.ErrValidation, err))
	}
	if len(missing) > 0 {
		s.logger.Warn("packaging.parts.missing", "job_number", jobNumber, "parts", missing)
	}

	m := &Manifest{
		JobNumber: jobNumber,
		Project:   sheet.Info,
		CreatedAt: time.Now(),
		Lines:     lines,
		Missing:   missing,
	}
	m.TotalQuantity, m.TotalMass = Totals(lines)
	return m, nil
}

func (s *Service) enqueueSideEffects(ctx context.Context, m *Manifest, path string) {
	subject := fmt.Sprintf("Emballage %s %s", m.JobNumber, m.PalletName)
	if m.Final {
		subject += " (FINALE)"
	}
	body := fmt.Sprintf("Palette %s du job %s : %d pièce(s), masse %.2f.", m.PalletName, m.JobNumber, m.TotalQuantity, m.TotalMass)

	task := async.NewTask("packaging.publish", func(ctx context.Context) error {
		attachment := path
		exported, err := s.exporter.Export(ctx, path)
		switch {
		case err != nil:
			s.logger.Warn("packaging.export.failed", "path", path, "error", err)
		case exported != "":
			attachment = exported
		}
		return s.notifier.Notify(ctx, Notification{
			Recipients: s.recipients,
			Subject:    subject,
			Body:       body,
			Attachment: attachment,
		})
	})
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.logger.Warn("packaging.publish.not_queued", "path", path, "error", err)
	}
}
