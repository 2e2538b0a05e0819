package rest

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/domain/entities"
)

// itemRef reads the :type and :id path parameters
func itemRef(c *gin.Context) (entities.ItemRef, error) {
	t := entities.ItemType(c.Param("type"))
	if !t.Valid() {
		return entities.ItemRef{}, entities.Invalid("type", "unknown item type %q", t)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return entities.ItemRef{}, err
	}
	return entities.ItemRef{Type: t, ID: id}, nil
}

func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.svc.ListItems(c.Request.Context(), entities.ItemType(c.Param("type")))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, items)
}

func (h *Handler) RegisterItem(c *gin.Context) {
	var req dto.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	switch entities.ItemType(c.Param("type")) {
	case entities.RawMaterialItem:
		m, err := h.svc.RegisterRawMaterial(ctx, req)
		if err != nil {
			h.fail(c, err)
			return
		}
		created(c, m)
	case entities.ProductItem:
		p, err := h.svc.RegisterProduct(ctx, req)
		if err != nil {
			h.fail(c, err)
			return
		}
		created(c, p)
	default:
		h.fail(c, entities.Invalid("type", "unknown item type %q", c.Param("type")))
	}
}

func (h *Handler) Balance(c *gin.Context) {
	ref, err := itemRef(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	balance, err := h.svc.Balance(c.Request.Context(), ref)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, balance)
}

func (h *Handler) History(c *gin.Context) {
	ref, err := itemRef(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	history, err := h.svc.History(c.Request.Context(), ref)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, history)
}

func (h *Handler) RecordMovement(c *gin.Context) {
	var req dto.MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	entry, err := h.svc.RecordMovement(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	created(c, entry)
}

// Reconcile reports drift on GET and rewrites cached stock on POST
func (h *Handler) Reconcile(c *gin.Context) {
	report, err := h.svc.Reconcile(c.Request.Context(), c.Request.Method == "POST")
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, report)
}

func (h *Handler) RegisterAlias(c *gin.Context) {
	var req dto.AliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	alias, err := h.svc.RegisterAlias(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	created(c, alias)
}

func (h *Handler) MergeAliases(c *gin.Context) {
	ref, err := itemRef(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	report, err := h.svc.MergeAliases(c.Request.Context(), ref)
	if err != nil {
		h.fail(c, err)
		return
	}
	applied(c, report)
}

func (h *Handler) PlanProduction(c *gin.Context) {
	var req dto.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	plan, err := h.svc.PlanProduction(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, plan)
}

// MaterialUsage answers ?types=a,b
func (h *Handler) MaterialUsage(c *gin.Context) {
	var types []string
	if raw := c.Query("types"); raw != "" {
		types = strings.Split(raw, ",")
	}
	stats, err := h.svc.MaterialUsage(c.Request.Context(), types)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, stats)
}
