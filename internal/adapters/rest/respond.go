package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/verflow/internal/apperr"
	"github.com/example/verflow/internal/ctxutil"
	"github.com/example/verflow/internal/ports/primary"
)

// ActorHeader names the acting user for audit entries.
const ActorHeader = "X-Actor-ID"

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string              `json:"error"`
	Kind  apperr.Kind         `json:"kind"`
	Gate  *primary.GateReport `json:"gate,omitempty"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidTransition, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes err with the status of its kind. Storage failures
// are logged and hidden behind a generic message.
func (h *handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	body := errorBody{Error: err.Error(), Kind: kind}

	var blocked *primary.GateBlockedError
	if errors.As(err, &blocked) {
		body.Gate = blocked.Report
	}
	if kind == apperr.KindStorage {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err))
		body.Error = "internal error"
	}
	respondJSON(w, statusFor(kind), body)
}

// decode reads a JSON body. Numbers inside free-form payloads keep their
// literal spelling.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("http.decode", "invalid request body: %v", err)
	}
	return nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("http.param", "%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("http.query", "%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

func requireQuery(r *http.Request, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	for _, name := range names {
		v := r.URL.Query().Get(name)
		if v == "" {
			return nil, apperr.Validation("http.query", "query parameter %s is required", name)
		}
		out[name] = v
	}
	return out, nil
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())))
		})
	}
}

// actorFromHeader puts the X-Actor-ID header on the request context.
func actorFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := r.Header.Get(ActorHeader); actor != "" {
			r = r.WithContext(ctxutil.WithActorID(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

// userOr fills a missing user id from the actor header.
func userOr(r *http.Request, userID string) string {
	return ctxutil.ActorOr(r.Context(), userID)
}
