package server

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/cyramp/cyrscan/internal/common"
	"github.com/cyramp/cyrscan/internal/packaging"
)

const maxPalletImage = 16 << 20

type packagingRequest struct {
	Length string `json:"palLong"`
	Width  string `json:"palLarg"`
	Height string `json:"palHaut"`
	Notes  string `json:"notes"`
	Final  bool   `json:"palFinal"`
}

// handleGeneratePackaging writes the manifest of a pallet. The body is either JSON or
// a multipart form carrying the same fields plus an optional palletImage file.
func (s *Server) handleGeneratePackaging(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "palletId")
	if err != nil {
		writeError(w, err)
		return
	}

	req := packaging.Request{PalletID: id, Operator: common.OperatorFromContext(r.Context())}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		err = readPackagingForm(r, &req)
	} else {
		var body packagingRequest
		err = decodeBody(r, packagingSchema, &body)
		req.Length, req.Width, req.Height = body.Length, body.Width, body.Height
		req.Notes, req.Final = body.Notes, body.Final
	}
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.deps.Packaging.Generate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func readPackagingForm(r *http.Request, req *packaging.Request) error {
	if err := r.ParseMultipartForm(maxPalletImage); err != nil {
		return common.InvalidInputErrorf("formulaire invalide: %v", err)
	}
	req.Length = r.FormValue("palLong")
	req.Width = r.FormValue("palLarg")
	req.Height = r.FormValue("palHaut")
	req.Notes = r.FormValue("notes")
	if v := strings.TrimSpace(r.FormValue("palFinal")); v != "" {
		final, err := strconv.ParseBool(v)
		if err != nil {
			return common.InvalidInputErrorf("palFinal invalide: %q", v)
		}
		req.Final = final
	}

	file, header, err := r.FormFile("palletImage")
	if err == http.ErrMissingFile {
		return nil
	}
	if err != nil {
		return common.InvalidInputErrorf("image invalide: %v", err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxPalletImage))
	if err != nil {
		return common.InvalidInputErrorf("image illisible: %v", err)
	}
	if len(data) > 0 {
		req.Image = &packaging.Image{Name: header.Filename, Data: data}
	}
	return nil
}

func (s *Server) handleListManifests(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "palletId")
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := s.deps.Manifests.ListManifests(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
