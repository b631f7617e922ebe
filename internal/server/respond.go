package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/cyramp/cyrscan/internal/common"
)

const maxJSONBody = 1 << 20

// envelope is the body of every failed request and of the scan acknowledgements.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msg})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, common.HTTPStatus(err), envelope{Message: common.PublicMessage(err)})
}

// decodeBody reads a JSON body, checks it against schema and decodes it into dst.
func decodeBody(r *http.Request, schema *jsonschema.Schema, dst any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return common.InvalidInputErrorf("corps de requête illisible: %v", err)
	}
	if len(data) > maxJSONBody {
		return common.InvalidInputError("corps de requête trop volumineux")
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return common.InvalidInputErrorf("JSON invalide: %v", err)
	}
	if schema != nil {
		if err := schema.Validate(doc); err != nil {
			return common.InvalidInputError(schemaMessage(err))
		}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return common.InvalidInputErrorf("JSON invalide: %v", err)
	}
	return nil
}

// schemaMessage reduces a schema failure to its first leaf cause.
func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.InvalidInputErrorf("%s invalide: %q", name, r.PathValue(name))
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, common.InvalidInputErrorf("%s invalide: %q", name, v)
	}
	return n, nil
}
