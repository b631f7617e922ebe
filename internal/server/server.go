// Package server exposes the scanning workflow over HTTP and reports liveness over
// gRPC health.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyramp/cyrscan/internal/entity"
	"github.com/cyramp/cyrscan/internal/packaging"
	"github.com/cyramp/cyrscan/internal/repository"
	"github.com/cyramp/cyrscan/internal/validation"
	"github.com/cyramp/cyrscan/internal/workbook"
)

// WorkbookLister lists the job workbooks visible on the share. *workbook.Locator
// implements it.
type WorkbookLister interface {
	List(ctx context.Context) ([]workbook.Entry, error)
}

// PackagingService generates pallet manifests.
type PackagingService interface {
	Generate(ctx context.Context, req packaging.Request) (*packaging.Result, error)
}

// StoreChecker reports whether the scan store answers.
type StoreChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Pallets   repository.PalletRepository
	Scans     repository.ScanRepository
	Stats     repository.StatsRepository
	Manifests repository.PackagingRepository
	Validator *validation.Validator
	Parts     validation.PartSource
	Workbooks WorkbookLister
	Packaging PackagingService
	Store     StoreChecker
}

type Server struct {
	deps     Deps
	apiToken string
	logger   *slog.Logger
}

type Option func(*Server)

// WithAPIToken enables bearer authentication on /api routes.
func WithAPIToken(token string) Option {
	return func(s *Server) { s.apiToken = token }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(deps Deps, opts ...Option) *Server {
	s := &Server{deps: deps, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed API wrapped in its middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /api/scan", s.handleAddScan)
	mux.HandleFunc("DELETE /api/scan", s.handleDeleteScan)
	mux.HandleFunc("GET /api/deleted-scans", s.handleDeletedScans)

	mux.HandleFunc("GET /api/jobs", s.handleJobs)
	mux.HandleFunc("GET /api/jobs/{job}", s.handleJobDetails)
	mux.HandleFunc("GET /api/jobs/{job}/complete", s.handleCompleteJobDetails)
	mux.HandleFunc("GET /api/parts/{job}/{part}", s.handlePartDetails)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("GET /api/pallets/{job}", s.handleListPallets)
	mux.HandleFunc("POST /api/pallets", s.handleCreatePallet)
	mux.HandleFunc("PUT /api/pallets/{id}", s.handleRenamePallet)
	mux.HandleFunc("DELETE /api/pallets/{id}", s.handleDeletePallet)
	mux.HandleFunc("GET /api/unscanned-pallets", s.handleUnscannedPallets)
	mux.HandleFunc("GET /api/pallet-contents/{id}", s.handlePalletContents)

	mux.HandleFunc("GET /api/validate", s.handleValidate)
	mux.HandleFunc("GET /api/workbooks", s.handleWorkbooks)

	mux.HandleFunc("POST /api/packaging/{palletId}", s.handleGeneratePackaging)
	mux.HandleFunc("GET /api/packaging/{palletId}/manifests", s.handleListManifests)

	var h http.Handler = mux
	h = s.authenticate(h)
	h = s.logRequests(h)
	h = s.withOperator(h)
	h = s.recoverPanics(h)
	h = withRequestID(h)
	return h
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		if err := s.deps.Store.HealthCheck(r.Context(), 2*time.Second); err != nil {
			s.logger.Warn("healthz: store unreachable", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jobDetails is the per-job view combining recorded scans with the workbook.
type jobDetails struct {
	JobNumber     string                       `json:"jobNumber"`
	DatabaseParts []entity.PartScanSummary     `json:"databaseParts"`
	ScanDetails   map[string][]entity.PartScan `json:"scanDetails,omitempty"`
	TotalParts    int                          `json:"totalParts"`
	ExcelParts    []workbook.Occurrence        `json:"excelParts"`
}
