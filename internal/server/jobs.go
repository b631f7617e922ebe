package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cyramp/cyrscan/internal/common"
	"github.com/cyramp/cyrscan/internal/entity"
	"github.com/cyramp/cyrscan/internal/repository"
	"github.com/cyramp/cyrscan/internal/validation"
	"github.com/cyramp/cyrscan/internal/workbook"
)

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Stats.ListJobSummaries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleJobDetails(w http.ResponseWriter, r *http.Request) {
	job := strings.TrimSpace(r.PathValue("job"))
	parts, err := s.deps.Stats.JobPartSummaries(r.Context(), job)
	if err != nil {
		writeError(w, err)
		return
	}
	out := s.withWorkbookParts(r, jobDetails{JobNumber: job, DatabaseParts: parts})
	writeJSON(w, http.StatusOK, out)
}

// handleCompleteJobDetails returns the job view with every scan grouped by part. The
// scanned count of a part is the number of distinct QR sequences recorded for it.
func (s *Server) handleCompleteJobDetails(w http.ResponseWriter, r *http.Request) {
	job := strings.TrimSpace(r.PathValue("job"))
	scans, err := s.deps.Stats.JobScans(r.Context(), job)
	if err != nil {
		writeError(w, err)
		return
	}

	byPart := make(map[string][]entity.PartScan)
	for _, sc := range scans {
		byPart[sc.PartID] = append(byPart[sc.PartID], sc)
	}
	out := s.withWorkbookParts(r, jobDetails{
		JobNumber: job,
		DatabaseParts: repository.SummarizeScans(scans, func(sc entity.PartScan) string {
			return validation.QRSequence(sc.QRCode)
		}),
		ScanDetails: byPart,
	})
	writeJSON(w, http.StatusOK, out)
}

// withWorkbookParts adds the expected tags of the job. An unreadable workbook leaves
// the list empty; the scan history is still worth showing.
func (s *Server) withWorkbookParts(r *http.Request, d jobDetails) jobDetails {
	d.ExcelParts = []workbook.Occurrence{}
	set, err := s.deps.Parts.Get(r.Context(), d.JobNumber)
	if err != nil {
		s.logger.Warn("job details without workbook", "job_number", d.JobNumber, "error", err)
		return d
	}
	d.ExcelParts = set.Occurrences()
	d.TotalParts = len(d.ExcelParts)
	return d
}

func (s *Server) handlePartDetails(w http.ResponseWriter, r *http.Request) {
	scans, err := s.deps.Stats.PartScans(r.Context(), strings.TrimSpace(r.PathValue("job")), strings.TrimSpace(r.PathValue("part")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scans)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Stats.DashboardStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleValidate exposes the validator directly. "qr" selects membership mode, "qty"
// quantity mode. Rejections answer 400 with the full result.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := validation.Request{
		JobNumber: q.Get("job"),
		PartID:    q.Get("part"),
		QRCode:    validation.FormatQRCode(strings.TrimSpace(q.Get("qr"))),
	}
	v := common.NewValidator().
		Field("job", req.JobNumber, common.Required, common.JobNumber).
		Field("part", req.PartID, common.Required)
	if raw := strings.TrimSpace(q.Get("qty")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, common.InvalidInputErrorf("qty invalide: %q", raw))
			return
		}
		req.Quantity = &n
	}
	if err := v.Err(); err != nil {
		writeError(w, err)
		return
	}

	res := s.deps.Validator.Validate(r.Context(), req)
	status := http.StatusOK
	if !res.Valid {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

func (s *Server) handleWorkbooks(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Workbooks.List(r.Context())
	if err != nil {
		writeError(w, common.NewAppError("WORKBOOK_DIR", "répertoire des fichiers Excel inaccessible", err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
