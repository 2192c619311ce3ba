package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nisHanRam/Placify-Backend/internal/apperr"
)

const maxBodyBytes = 1 << 20

var errRouteNotFound = apperr.NotFound("Could not find this route.")

// handlerFunc is an HTTP handler that reports failures instead of writing
// them.
type handlerFunc func(w http.ResponseWriter, req *http.Request) error

type startedWriter interface {
	Started() bool
}

// handle adapts fn, translating its error into a response.
func (r *Router) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := fn(w, req); err != nil {
			r.fail(w, req, err)
		}
	}
}

// fail writes err as {"message"} with the status of its kind. Internal causes
// are logged and never shown. Nothing is written once a response has started.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		r.logger.Error("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
	}
	if sw, ok := w.(startedWriter); ok && sw.Started() {
		r.logger.Warn("error after response started", "path", req.URL.Path, "error", err)
		return
	}
	writeError(w, appErr.Status(), appErr.Message)
}

// recoverPanics turns a handler panic into a 500.
func (r *Router) recoverPanics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			r.logger.Error("handler panic", "method", req.Method, "path", req.URL.Path, "panic", rec)
			r.fail(w, req, apperr.Internal(apperr.DefaultMessage, nil))
		}()
		next(w, req)
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) error {
	body := http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &apperr.Error{Kind: apperr.KindValidation, Message: "Request body too large.", Err: err}
		}
		return &apperr.Error{Kind: apperr.KindValidation, Message: msgInvalidInput, Err: err}
	}
	return nil
}
