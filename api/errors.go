package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/veilpay/payroll-node/log"
)

// Error is the API error envelope. Error codes in the 40001-49999 range are
// the caller's fault and map to 4xx statuses; codes 50001-59999 are the
// server's fault and map to 5xx. Codes are stable: never change or reuse an
// existing one, only append.
type Error struct {
	Err        error  `json:"-"`
	Code       int    `json:"code"`
	HTTPstatus int    `json:"-"`
	Data       string `json:"error"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Err)
}

// WithErr returns a copy of the Error carrying the given cause in its
// message.
func (e Error) WithErr(err error) Error {
	e.Err = fmt.Errorf("%w: %v", e.Err, err)
	return e
}

// Write sends the error as a JSON response with its HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	e.Data = e.Err.Error()
	body, err := json.Marshal(e)
	if err != nil {
		log.Warnw("failed to marshal error response", "error", err)
		http.Error(w, e.Err.Error(), e.HTTPstatus)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(body); err != nil {
		log.Warnw("failed to write error response", "error", err)
	}
}

var (
	ErrResourceNotFound = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody    = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedParam   = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrMalformedViewKey = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed view key ID")}
	ErrViewKeyNotFound  = Error{Code: 40005, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("view key not found")}
	ErrInvalidScope     = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid view key scope")}
	ErrViewKeyExpired   = Error{Code: 40007, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("view key expired or revoked")}
	ErrMalformedAddress = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
