package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/tokenkeeper"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

// writeEngineError maps an engine error onto its status and stable body.
func writeEngineError(w http.ResponseWriter, err error) {
	code := tokenkeeper.ErrorCode(err)
	switch code {
	case tokenkeeper.CodeUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="tokenkeeper"`)
	case tokenkeeper.CodeRateLimited:
		if wait := tokenkeeper.RetryAfter(err); wait > 0 {
			w.Header().Set("Retry-After", strconv.FormatInt(int64((wait+time.Second-1)/time.Second), 10))
		}
	}
	writeError(w, statusFor(code), code, tokenkeeper.ErrorMessage(err))
}

func statusFor(code string) int {
	switch code {
	case tokenkeeper.CodeConflict:
		return http.StatusConflict
	case tokenkeeper.CodeUnauthorized:
		return http.StatusUnauthorized
	case tokenkeeper.CodeNotFound:
		return http.StatusNotFound
	case tokenkeeper.CodeInvalidInput:
		return http.StatusBadRequest
	case tokenkeeper.CodeRateLimited:
		return http.StatusTooManyRequests
	case tokenkeeper.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
