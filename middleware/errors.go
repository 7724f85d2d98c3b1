package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"gestion-optica-api/internal/telemetry"
	"gestion-optica-api/models"
	"gestion-optica-api/utils"

	"github.com/gin-gonic/gin"
)

const (
	genericInternalMessage = "internal server error"
	genericRequestMessage  = "request error"
)

// fallbackBody is written when the normalizer itself fails.
var fallbackBody = []byte(`{"error":"internal server error","code":"INTERNAL_ERROR"}`)

// clientVisibleStatuses are the only statuses whose message survives in production.
var clientVisibleStatuses = map[int]bool{
	http.StatusBadRequest:   true,
	http.StatusUnauthorized: true,
	http.StatusForbidden:    true,
	http.StatusNotFound:     true,
}

var redactedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
}

// NormalizeError maps err to the status and envelope sent to the caller.
func NormalizeError(err error, production bool, method, url string) (int, models.ErrorEnvelope) {
	status := utils.StatusOf(err)
	code := utils.CodeOf(err)
	message := clientMessage(err)

	if production {
		if !clientVisibleStatuses[status] {
			return status, models.ErrorEnvelope{Error: genericInternalMessage, Code: utils.CodeInternal}
		}
		if message == "" {
			message = genericRequestMessage
		}
		if code == "" {
			code = utils.CodeRequestError
		}
		return status, models.ErrorEnvelope{Error: message, Code: code}
	}

	if code == "" {
		code = utils.CodeRequestError
		if status >= http.StatusInternalServerError {
			code = utils.CodeInternal
		}
	}
	if message == "" {
		message = err.Error()
	}
	stack := utils.StackOf(err)
	if stack == "" {
		stack = string(debug.Stack())
	}

	details := map[string]any{}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		for k, v := range appErr.Details {
			details[k] = v
		}
		if appErr.Err != nil {
			details["cause"] = appErr.Err.Error()
		}
	}
	details["url"] = url
	details["method"] = method

	return status, models.ErrorEnvelope{
		Error:   message,
		Code:    code,
		Stack:   stack,
		Details: details,
	}
}

func clientMessage(err error) string {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// ErrorHandler renders the last error recorded on the context. Handlers
// report failures with c.Error and c.Abort and never write error bodies
// themselves.
func ErrorHandler(production bool, log *slog.Logger, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		renderError(c, c.Errors.Last().Err, production, log, metrics)
	}
}

func renderError(c *gin.Context, err error, production bool, log *slog.Logger, metrics *telemetry.Metrics) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Error normalizer failed", "panic", fmt.Sprint(r))
			writeFallback(c)
		}
	}()

	status, envelope := NormalizeError(err, production, c.Request.Method, c.Request.URL.String())

	log.Error("Request failed",
		"error", err.Error(),
		"name", fmt.Sprintf("%T", err),
		"status", status,
		"code", utils.CodeOf(err),
		"stack", utils.StackOf(err),
		"method", c.Request.Method,
		"url", c.Request.URL.String(),
		"headers", loggableHeaders(c.Request.Header),
		"request_id", GetRequestID(c),
	)
	metrics.RecordError(status, envelope.Code)

	body, marshalErr := json.Marshal(envelope)
	if marshalErr != nil {
		log.Error("Error envelope serialization failed", "error", marshalErr.Error())
		writeFallback(c)
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

func writeFallback(c *gin.Context) {
	if c.Writer.Written() {
		return
	}
	c.Data(http.StatusInternalServerError, "application/json; charset=utf-8", fallbackBody)
}

func loggableHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if redactedHeaders[k] {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// Recovery converts handler panics into 500 errors for ErrorHandler. It must
// be registered after ErrorHandler.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		_ = c.Error(utils.Internal("unhandled panic", fmt.Errorf("%v", recovered)))
		c.Abort()
	})
}
