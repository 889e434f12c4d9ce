package lookup

import (
	"encoding/json"
	"fmt"
)

// Fixed detail phrases for fatal batch errors
const (
	DetailHTTPRequest      = "Error in HTTP Request"
	DetailUnexpectedStatus = "Unexpected HTTP Status Code Received"
	DetailProviderError    = "There was an error querying Pulsedive"
	DetailInvalidBlocklist = "Invalid Blocklist Configuration"
)

// LookupError is the single error a failed batch reports. Exactly one of
// Err, StatusCode/Body or ProviderError describes the cause.
type LookupError struct {
	Detail        string
	Entity        string
	Err           error
	StatusCode    int
	Body          []byte
	ProviderError string
}

func (e *LookupError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Detail, e.StatusCode)
	case e.ProviderError != "":
		return fmt.Sprintf("%s: %s", e.Detail, e.ProviderError)
	default:
		return e.Detail
	}
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error the way callers of the integration expect:
// {detail, error} or {detail, statusCode, body}.
func (e *LookupError) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"detail": e.Detail,
	}
	if e.Entity != "" {
		out["entity"] = e.Entity
	}
	switch {
	case e.Err != nil:
		out["error"] = e.Err.Error()
	case e.StatusCode != 0:
		out["statusCode"] = e.StatusCode
		if json.Valid(e.Body) {
			out["body"] = json.RawMessage(e.Body)
		} else {
			out["body"] = string(e.Body)
		}
	case e.ProviderError != "":
		out["error"] = e.ProviderError
	}
	return json.Marshal(out)
}
