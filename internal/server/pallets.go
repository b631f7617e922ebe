package server

import (
	"net/http"
	"strings"

	"github.com/cyramp/cyrscan/constants"
	"github.com/cyramp/cyrscan/internal/common"
)

type createPalletRequest struct {
	JobNumber string `json:"jobNumber"`
}

type renamePalletRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListPallets(w http.ResponseWriter, r *http.Request) {
	pallets, err := s.deps.Pallets.ListPallets(r.Context(), strings.TrimSpace(r.PathValue("job")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pallets)
}

func (s *Server) handleCreatePallet(w http.ResponseWriter, r *http.Request) {
	var req createPalletRequest
	if err := decodeBody(r, createPalletSchema, &req); err != nil {
		writeError(w, err)
		return
	}
	job := strings.TrimSpace(req.JobNumber)
	if common.NewValidator().Field("jobNumber", job, common.Required, common.JobNumber).HasErrors() {
		writeError(w, common.InvalidInputError(constants.MsgInvalidJobNumber))
		return
	}

	p, err := s.deps.Pallets.CreatePallet(r.Context(), job)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRenamePallet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req renamePalletRequest
	if err := decodeBody(r, renamePalletSchema, &req); err != nil {
		writeError(w, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := common.NewValidator().Field("name", name, common.Required, common.MaxLength(50)).Err(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Pallets.RenamePallet(r.Context(), id, name); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, constants.MsgPalletUpdated)
}

func (s *Server) handleDeletePallet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.deps.Pallets.DeletePallet(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, constants.MsgPalletDeleted)
}

func (s *Server) handleUnscannedPallets(w http.ResponseWriter, r *http.Request) {
	pallets, err := s.deps.Pallets.ListUnscannedPallets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pallets)
}

func (s *Server) handlePalletContents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := s.deps.Pallets.PalletContents(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
