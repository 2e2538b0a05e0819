package rest

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/domain/entities"
)

func (h *Handler) ListBOMs(c *gin.Context) {
	boms, err := h.svc.ListBOMs(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, boms)
}

func (h *Handler) GetBOM(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	bom, err := h.svc.GetBOM(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, bom)
}

func (h *Handler) CreateBOM(c *gin.Context) {
	var req dto.BOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	bom, err := h.svc.CreateBOM(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	created(c, bom)
}

func (h *Handler) UpdateBOM(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req dto.BOMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	bom, err := h.svc.UpdateBOM(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	applied(c, bom)
}

func (h *Handler) DeleteBOM(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.DeleteBOM(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	applied(c, gin.H{"id": id})
}

func (h *Handler) ListVersions(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	versions, err := h.svc.ListVersions(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, versions)
}

// GetEffectiveVersion answers ?date=YYYY-MM-DD, defaulting to today
func (h *Handler) GetEffectiveVersion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	asOf := entities.DateOf(time.Now())
	if raw := c.Query("date"); raw != "" {
		if asOf, err = entities.ParseDate(raw); err != nil {
			h.fail(c, entities.Invalid("date", "%v", err))
			return
		}
	}
	v, err := h.svc.GetEffectiveVersion(c.Request.Context(), id, asOf)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, v)
}

func (h *Handler) BOMTree(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	tree, err := h.svc.BOMTree(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, tree)
}

func (h *Handler) GetVersion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	v, err := h.svc.GetVersion(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, v)
}

func (h *Handler) AddVersion(c *gin.Context) {
	var req dto.VersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	v, err := h.svc.AddVersion(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	created(c, v)
}

func (h *Handler) UpdateVersion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req dto.VersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	v, err := h.svc.UpdateVersion(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	applied(c, v)
}

func (h *Handler) DeleteVersion(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.svc.DeleteVersion(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	applied(c, gin.H{"id": id})
}

func (h *Handler) ApproveVersion(c *gin.Context)  { h.review(c, h.svc.ApproveVersion) }
func (h *Handler) RejectVersion(c *gin.Context)   { h.review(c, h.svc.RejectVersion) }
func (h *Handler) ResubmitVersion(c *gin.Context) { h.review(c, h.svc.ResubmitVersion) }

type reviewFunc func(ctx context.Context, id int, req dto.ReviewRequest) (*entities.BOMVersion, error)

func (h *Handler) review(c *gin.Context, fn reviewFunc) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	v, err := fn(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	applied(c, v)
}

type explodeRequest struct {
	TargetQty entities.Quantity `json:"targetQty"`
}

func (h *Handler) Explode(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req explodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	lines, err := h.svc.Explode(c.Request.Context(), id, req.TargetQty)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, lines)
}

// DiffVersions answers ?old=<id>&new=<id>
func (h *Handler) DiffVersions(c *gin.Context) {
	oldID, err1 := strconv.Atoi(c.Query("old"))
	newID, err2 := strconv.Atoi(c.Query("new"))
	if err1 != nil || err2 != nil {
		h.fail(c, entities.Invalid("old,new", "both version ids are required"))
		return
	}
	diff, err := h.svc.DiffVersions(c.Request.Context(), oldID, newID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, diff)
}
