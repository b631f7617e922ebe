package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cyramp/cyrscan/constants"
	"github.com/cyramp/cyrscan/internal/common"
	"github.com/cyramp/cyrscan/internal/entity"
	"github.com/cyramp/cyrscan/internal/repository"
	"github.com/cyramp/cyrscan/internal/validation"
)

type scanRequest struct {
	JobNumber string `json:"jobNumber"`
	PartID    string `json:"partId"`
	QRCode    string `json:"qrCode"`
	PalletID  int64  `json:"palletId"`
}

type deleteScanRequest struct {
	QRCode   string `json:"qrCode"`
	PalletID int64  `json:"palletId"`
}

// handleAddScan validates a scanned tag against the job workbook and records it on
// the selected pallet.
func (s *Server) handleAddScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operator := common.OperatorFromContext(ctx)
	if operator == "" {
		writeError(w, common.NewAppError("UNAUTHORIZED", constants.MsgScanUnauthorized, common.ErrUnauthorized))
		return
	}

	var req scanRequest
	if err := decodeBody(r, scanSchema, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := common.NewValidator().Field("partId", req.PartID, common.Required).Err(); err != nil {
		writeError(w, err)
		return
	}
	if req.PalletID <= 0 {
		writeError(w, common.InvalidInputError(constants.MsgPalletRequired))
		return
	}

	req.JobNumber = strings.TrimSpace(req.JobNumber)
	req.PartID = strings.TrimSpace(req.PartID)
	req.QRCode = validation.FormatQRCode(strings.TrimSpace(req.QRCode))

	res := s.deps.Validator.Validate(ctx, validation.Request{
		JobNumber: req.JobNumber,
		PartID:    req.PartID,
		QRCode:    req.QRCode,
	})
	if !res.Valid {
		writeError(w, common.NewAppError("SCAN_REJECTED", res.Message, common.ErrValidation))
		return
	}

	pallet, err := s.deps.Pallets.GetPallet(ctx, req.PalletID)
	if errors.Is(err, common.ErrNotFound) {
		writeError(w, common.InvalidInputError(constants.MsgPalletNotFound))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if pallet.JobNumber != req.JobNumber {
		writeError(w, common.InvalidInputError(constants.MsgPalletJobMismatch))
		return
	}

	if _, err := s.deps.Scans.AddScan(ctx, entity.ScanRecord{
		JobNumber:        req.JobNumber,
		PartID:           req.PartID,
		QRCode:           req.QRCode,
		PalletID:         pallet.ID,
		TotalQuantityJob: res.TotalQuantityJob,
		ScannedBy:        operator,
	}); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, constants.MsgScanOK)
}

// handleDeleteScan archives a scan and removes it from its pallet.
func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operator := common.OperatorFromContext(ctx)
	if operator == "" {
		writeError(w, common.NewAppError("UNAUTHORIZED", constants.MsgDeleteUnauthorized, common.ErrUnauthorized))
		return
	}

	var req deleteScanRequest
	if err := decodeBody(r, deleteScanSchema, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.deps.Scans.DeleteScan(ctx, strings.TrimSpace(req.QRCode), req.PalletID, operator); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, constants.MsgScanDeleted)
}

func (s *Server) handleDeletedScans(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, err)
		return
	}
	size, err := queryInt(r, "pageSize", 50)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := s.deps.Scans.ListDeletedScans(r.Context(), repository.DeletedScanFilter{
		Page:      page,
		PageSize:  size,
		JobNumber: strings.TrimSpace(r.URL.Query().Get("jobNumber")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
