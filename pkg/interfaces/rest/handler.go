// Package rest serves the ledger over a JSON HTTP API.
package rest

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/application/services/ledger"
	"github.com/vsinha/labledger/pkg/domain/entities"
)

// Handler maps HTTP requests onto the ledger service
type Handler struct {
	svc    *ledger.Service
	logger *zap.Logger
}

func NewHandler(svc *ledger.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

type operatorRequest struct {
	Operator string `json:"operator"`
}

// errorStatus maps a service error onto an HTTP status and a short kind
func errorStatus(err error) (int, string) {
	switch {
	case entities.IsValidation(err):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, entities.ErrConcurrentModification):
		return http.StatusConflict, "concurrent_modification"
	case entities.IsState(err):
		return http.StatusConflict, "state"
	case entities.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// fail writes an error body. Every rejection reports that nothing was applied.
func (h *Handler) fail(c *gin.Context, err error) {
	status, kind := errorStatus(err)
	fields := []zap.Field{
		zap.String("path", c.FullPath()),
		zap.String("kind", kind),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Info("request rejected", fields...)
	}
	c.JSON(status, gin.H{
		"applied": false,
		"kind":    kind,
		"error":   err.Error(),
	})
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.fail(c, entities.Invalid("body", "%v", err))
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"applied": true, "data": data})
}

func applied(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"applied": true, "data": data})
}

// pathID parses the integer path parameter name
func pathID(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, entities.Invalid(name, "must be a positive integer, got %q", c.Param(name))
	}
	return id, nil
}

// bindOptional decodes a JSON body into dst when one was sent
func bindOptional(c *gin.Context, dst interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
