package handlers

import (
	"encoding/json"
	"io"
	"net/http"
)

// JSONResponse sends a JSON response with the given status code
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse sends an error in the same {detail, error} envelope a failed
// lookup batch uses
func ErrorResponse(w http.ResponseWriter, statusCode int, detail string, err error) {
	response := map[string]interface{}{
		"detail": detail,
	}
	if err != nil {
		response["error"] = err.Error()
	}
	JSONResponse(w, statusCode, response)
}

// maxBodyBytes bounds request bodies; lookup batches are small
const maxBodyBytes = 1 << 20

// DecodeJSON decodes a size-limited JSON request body
func DecodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}
