package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/failures"
	"stayregister/internal/app/handlers/exports"
	"stayregister/internal/app/queries"
	"stayregister/internal/app/uow"
	domainapartments "stayregister/internal/domain/apartments"
	domainstays "stayregister/internal/domain/stays"
	"stayregister/internal/infra/capture"
)

const statusClientClosedRequest = 499

// errorResponder maps application errors onto HTTP responses and logs them.
type errorResponder struct {
	Logger *slog.Logger
	Scope  string
}

func (r errorResponder) handleError(c *gin.Context, err error) {
	var (
		verr *domainstays.ValidationError
		ferr *failures.FetchError
		perr *capture.RenderPipelineError
		serr *failures.SaveError
	)
	switch {
	case errors.As(err, &verr):
		r.respond(c, http.StatusBadRequest, err, gin.H{"error": verr.Reason, "field": verr.Field})
	case errors.As(err, &serr):
		status := http.StatusBadGateway
		if serr.Cancelled {
			status = statusClientClosedRequest
		}
		r.respond(c, status, err, gin.H{"error": "the PDF was created but could not be saved", "cancelled": serr.Cancelled})
	case errors.As(err, &perr):
		r.respond(c, http.StatusInternalServerError, err, gin.H{"error": "export failed", "stage": perr.Stage})
	case errors.Is(err, domainstays.ErrNotFound), errors.Is(err, domainapartments.ErrNotFound):
		r.respond(c, http.StatusNotFound, err, gin.H{"error": "not found"})
	case errors.Is(err, domainstays.ErrPermissionDenied):
		r.respond(c, http.StatusForbidden, err, gin.H{"error": "permission denied"})
	case errors.Is(err, domainstays.ErrConflict):
		r.respond(c, http.StatusConflict, err, gin.H{"error": "the stay was changed by someone else, reload and retry"})
	case errors.As(err, &ferr):
		r.respond(c, http.StatusBadGateway, err, gin.H{"error": "could not load stays, retry"})
	case errors.Is(err, uow.ErrUnitOfWorkMissing),
		errors.Is(err, exports.ErrCaptureUnavailable),
		errors.Is(err, commands.ErrHandlerNotFound),
		errors.Is(err, queries.ErrHandlerNotFound),
		errors.Is(err, commands.ErrNilBus),
		errors.Is(err, queries.ErrNilBus):
		r.respond(c, http.StatusServiceUnavailable, err, gin.H{"error": "service unavailable"})
	case errors.Is(err, context.Canceled):
		r.respond(c, statusClientClosedRequest, err, gin.H{"error": "request cancelled"})
	default:
		r.respond(c, http.StatusInternalServerError, err, gin.H{"error": "internal error"})
	}
}

func (r errorResponder) respondWithError(c *gin.Context, status int, err error) {
	r.respond(c, status, err, gin.H{"error": err.Error()})
}

func (r errorResponder) respond(c *gin.Context, status int, err error, body gin.H) {
	if r.Logger != nil {
		fields := []any{"status", status, "error", err, "path", c.FullPath(), "request_id", c.GetString("request_id")}
		if p, ok := currentPrincipal(c); ok {
			fields = append(fields, "owner_id", p.OwnerID)
		}
		msg := r.Scope + " request failed"
		if status >= http.StatusInternalServerError {
			r.Logger.Error(msg, fields...)
		} else {
			r.Logger.Warn(msg, fields...)
		}
	}
	c.AbortWithStatusJSON(status, body)
}
