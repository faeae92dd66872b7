package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// envelope is the `{error:{kind,message,details?}}` response body for every
// non-2xx response the HTTP surface returns.
type envelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind      Kind                   `json:"kind"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorHandler turns an error into the engine's JSON error envelope and logs it.
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle writes the HTTP response for err, logging at a level derived from
// its resulting status code.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	requestID := r.Header.Get("X-Request-ID")

	appErr, ok := As(err)
	if !ok {
		appErr = NewInternal("an internal error occurred").WithCause(err)
		if h.debug {
			appErr.Message = err.Error()
		}
	}

	status := appErr.HTTPStatus()
	body := envelope{Error: errorBody{
		Kind:      appErr.Kind,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: requestID,
	}}

	if h.debug && appErr.StackTrace != "" {
		if body.Error.Details == nil {
			body.Error.Details = make(map[string]interface{})
		}
		body.Error.Details["stack_trace"] = appErr.StackTrace
	}

	h.logError(r, appErr, status)
	h.sendJSON(w, status, body)
}

// HandleStatus sends an error envelope for a bare HTTP status, for paths that
// never constructed an AppError (404 router fallback, method not allowed).
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	body := envelope{Error: errorBody{
		Kind:      kindForStatus(status),
		Message:   message,
		RequestID: r.Header.Get("X-Request-ID"),
	}}

	h.logger.Warn("http error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("message", message),
	)

	h.sendJSON(w, status, body)
}

func (h *ErrorHandler) logError(r *http.Request, err *AppError, status int) {
	fields := []zap.Field{
		zap.String("error_kind", string(err.Kind)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", r.Header.Get("X-Request-ID")),
	}

	if err.Cause != nil {
		fields = append(fields, zap.Error(err.Cause))
	}
	if err.Details != nil {
		fields = append(fields, zap.Any("details", err.Details))
	}

	switch {
	case status >= 500:
		h.logger.Error(err.Message, fields...)
	case status >= 400:
		h.logger.Warn(err.Message, fields...)
	default:
		h.logger.Info(err.Message, fields...)
	}
}

func (h *ErrorHandler) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusGone:
		return KindLeaseExpired
	case http.StatusLocked:
		return KindLeaseConflict
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return KindTimeout
	case http.StatusServiceUnavailable:
		return KindUpstreamUnavailable
	default:
		return KindInternal
	}
}

// Middleware recovers panics in downstream handlers and renders them through
// the same error envelope as a handled error.
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Handle(w, r, NewInternal(fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
