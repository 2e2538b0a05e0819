package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/domain/entities"
)

func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.svc.ListOrders(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, orders)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	order, err := h.svc.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, order)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req dto.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	order, err := h.svc.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	created(c, order)
}

func (h *Handler) DeleteOrder(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.DeleteOrder(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	applied(c, gin.H{"id": id})
}

func (h *Handler) GenerateIssue(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.svc.GenerateIssue(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusCreated
	if result.Refreshed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"applied": true, "data": result})
}

func (h *Handler) FinishOrder(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req operatorRequest
	if err := bindOptional(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}
	result, err := h.svc.FinishOrder(c.Request.Context(), id, req.Operator)
	if err != nil {
		h.fail(c, err)
		return
	}
	applied(c, result)
}

// ListIssues answers ?orderId=<id> or every issue
func (h *Handler) ListIssues(c *gin.Context) {
	var orderID *int
	if raw := c.Query("orderId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(c, entities.Invalid("orderId", "must be an integer, got %q", raw))
			return
		}
		orderID = &id
	}
	issues, err := h.svc.ListIssues(c.Request.Context(), orderID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, issues)
}

func (h *Handler) GetIssue(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	issue, err := h.svc.GetIssue(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, issue)
}

// PostIssue reports a post that skipped lines as partial so callers can tell
// "partially applied" apart from a rejection
func (h *Handler) PostIssue(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req operatorRequest
	if err := bindOptional(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}
	result, err := h.svc.PostIssue(c.Request.Context(), id, req.Operator)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"applied":  true,
		"partial":  result.Partial(),
		"skipped":  result.Skipped,
		"warnings": result.Warnings,
		"data":     result,
	})
}

func (h *Handler) CancelIssue(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req operatorRequest
	if err := bindOptional(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}
	result, err := h.svc.CancelIssue(c.Request.Context(), id, req.Operator)
	if err != nil {
		h.fail(c, err)
		return
	}
	applied(c, result)
}

func (h *Handler) RepairIssues(c *gin.Context) {
	report, err := h.svc.RepairIssues(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	applied(c, report)
}
