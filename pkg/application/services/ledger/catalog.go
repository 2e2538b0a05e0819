package ledger

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/application/dto"
	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/domain/services"
	"github.com/vsinha/labledger/pkg/infrastructure/events"
)

func (s *Service) CreateBOM(ctx context.Context, req dto.BOMRequest) (*entities.BOM, error) {
	if err := entities.Validate(req); err != nil {
		return nil, err
	}
	bom, err := entities.NewBOM(req.Code, req.Name, req.Type)
	if err != nil {
		return nil, entities.Invalid("name", "%v", err)
	}
	if req.Status != "" {
		bom.Status = req.Status
	}

	err = s.update(ctx, "create_bom", func(t *tx) error {
		bom.ID = t.doc.NextBOMID()
		bom.CreatedAt = t.now
		t.doc.BOMs = append(t.doc.BOMs, bom)
		t.emit(events.BOMCreatedEvent, events.BOMStream(bom.ID), events.BOMChanged{BOMID: bom.ID, Name: bom.Name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bom, nil
}

func (s *Service) UpdateBOM(ctx context.Context, id int, req dto.BOMRequest) (*entities.BOM, error) {
	if err := entities.Validate(req); err != nil {
		return nil, err
	}
	var updated entities.BOM
	err := s.update(ctx, "update_bom", func(t *tx) error {
		bom := t.doc.BOM(id)
		if bom == nil {
			return entities.NotFound("bom", id, entities.ErrBOMNotFound)
		}
		bom.Code = req.Code
		bom.Name = req.Name
		bom.Type = req.Type
		if req.Status != "" {
			bom.Status = req.Status
		}
		bom.LastModified = stamp(t)
		updated = *bom
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteBOM removes a BOM and its versions unless a production order references it
func (s *Service) DeleteBOM(ctx context.Context, id int) error {
	return s.update(ctx, "delete_bom", func(t *tx) error {
		bom := t.doc.BOM(id)
		if bom == nil {
			return entities.NotFound("bom", id, entities.ErrBOMNotFound)
		}
		for _, o := range t.doc.ProductionOrders {
			if o.BOMID == id {
				return &entities.StateError{Entity: "bom", ID: id, From: string(bom.Status), Op: "delete referenced"}
			}
		}
		for _, v := range t.doc.VersionsOf(id) {
			t.doc.RemoveVersion(v.ID)
		}
		t.doc.RemoveBOM(id)
		t.emit(events.BOMDeletedEvent, events.BOMStream(id), events.BOMChanged{BOMID: id, Name: bom.Name})
		return nil
	})
}

func (s *Service) ListBOMs(ctx context.Context) ([]*entities.BOM, error) {
	var boms []*entities.BOM
	err := s.view(ctx, func(doc *entities.Document) error {
		boms = doc.BOMs
		return nil
	})
	return boms, err
}

func (s *Service) GetBOM(ctx context.Context, id int) (*entities.BOM, error) {
	var bom *entities.BOM
	err := s.view(ctx, func(doc *entities.Document) error {
		bom = doc.BOM(id)
		if bom == nil {
			return entities.NotFound("bom", id, entities.ErrBOMNotFound)
		}
		return nil
	})
	return bom, err
}

// AddVersion stores a new version, pending review unless the request approves it
func (s *Service) AddVersion(ctx context.Context, req dto.VersionRequest) (*entities.BOMVersion, error) {
	if err := entities.Validate(req); err != nil {
		return nil, err
	}
	lines := req.BOMLines()
	if err := s.validator.ValidateLines(lines).Err(); err != nil {
		return nil, err
	}

	var created *entities.BOMVersion
	err := s.update(ctx, "add_version", func(t *tx) error {
		if t.doc.BOM(req.BOMID) == nil {
			return entities.NotFound("bom", req.BOMID, entities.ErrBOMNotFound)
		}
		status := req.Status
		if status == "" {
			status = entities.VersionPending
		}
		v := &entities.BOMVersion{
			ID:            t.doc.NextVersionID(),
			BOMID:         req.BOMID,
			Version:       req.Version,
			EffectiveFrom: req.EffectiveFrom,
			YieldBase:     req.YieldBase,
			Lines:         lines,
			Status:        status,
			Description:   req.Description,
			CreatedBy:     req.CreatedBy,
			CreatedAt:     t.now,
		}
		if err := s.checkStructure(t.doc, v); err != nil {
			return err
		}
		t.doc.BOMVersions = append(t.doc.BOMVersions, v)
		t.emit(events.VersionAddedEvent, events.BOMStream(v.BOMID), events.VersionChanged{BOMID: v.BOMID, VersionID: v.ID, Status: v.Status})
		created = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateVersion replaces the content of a version that no posted issue has consumed
func (s *Service) UpdateVersion(ctx context.Context, id int, req dto.VersionRequest) (*entities.BOMVersion, error) {
	if err := entities.Validate(req); err != nil {
		return nil, err
	}
	lines := req.BOMLines()
	if err := s.validator.ValidateLines(lines).Err(); err != nil {
		return nil, err
	}

	var updated entities.BOMVersion
	err := s.update(ctx, "update_version", func(t *tx) error {
		v := t.doc.Version(id)
		if v == nil {
			return entities.NotFound("bom version", id, entities.ErrVersionNotFound)
		}
		if req.BOMID != v.BOMID {
			return entities.Invalid("bomId", "version %d belongs to bom %d", id, v.BOMID)
		}
		if postedAgainst(t.doc, id) {
			return &entities.StateError{Entity: "bom version", ID: id, From: v.Status.String(), Op: "update posted"}
		}

		candidate := *v
		candidate.Version = req.Version
		candidate.EffectiveFrom = req.EffectiveFrom
		candidate.YieldBase = req.YieldBase
		candidate.Lines = lines
		candidate.Description = req.Description
		if err := s.checkStructure(t.doc, &candidate); err != nil {
			return err
		}
		*v = candidate
		updated = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteVersion removes a version unless a production order references it
func (s *Service) DeleteVersion(ctx context.Context, id int) error {
	return s.update(ctx, "delete_version", func(t *tx) error {
		v := t.doc.Version(id)
		if v == nil {
			return entities.NotFound("bom version", id, entities.ErrVersionNotFound)
		}
		for _, o := range t.doc.ProductionOrders {
			if o.BOMVersionID == id {
				return &entities.StateError{Entity: "bom version", ID: id, From: v.Status.String(), Op: "delete referenced"}
			}
		}
		t.doc.RemoveVersion(id)
		t.emit(events.VersionDeletedEvent, events.BOMStream(v.BOMID), events.VersionChanged{BOMID: v.BOMID, VersionID: id, Status: v.Status})
		return nil
	})
}

// ListVersions returns the versions of a BOM ordered by id
func (s *Service) ListVersions(ctx context.Context, bomID int) ([]*entities.BOMVersion, error) {
	var versions []*entities.BOMVersion
	err := s.view(ctx, func(doc *entities.Document) error {
		if doc.BOM(bomID) == nil {
			return entities.NotFound("bom", bomID, entities.ErrBOMNotFound)
		}
		versions = doc.VersionsOf(bomID)
		sort.Slice(versions, func(i, j int) bool { return versions[i].ID < versions[j].ID })
		return nil
	})
	return versions, err
}

func (s *Service) GetVersion(ctx context.Context, id int) (*entities.BOMVersion, error) {
	var v *entities.BOMVersion
	err := s.view(ctx, func(doc *entities.Document) error {
		v = doc.Version(id)
		if v == nil {
			return entities.NotFound("bom version", id, entities.ErrVersionNotFound)
		}
		return nil
	})
	return v, err
}

// GetEffectiveVersion returns the usable version of a BOM in force on asOf
func (s *Service) GetEffectiveVersion(ctx context.Context, bomID int, asOf entities.Date) (*entities.BOMVersion, error) {
	var v *entities.BOMVersion
	err := s.view(ctx, func(doc *entities.Document) error {
		if doc.BOM(bomID) == nil {
			return entities.NotFound("bom", bomID, entities.ErrBOMNotFound)
		}
		v = s.effectiveVersion(doc, bomID, asOf)
		if v == nil {
			return entities.NotFound("bom", bomID, entities.ErrNoUsableBOMVersion)
		}
		return nil
	})
	return v, err
}

func (s *Service) effectiveVersion(doc *entities.Document, bomID int, asOf entities.Date) *entities.BOMVersion {
	v, fallback := services.SelectEffectiveVersion(doc.VersionsOf(bomID), asOf)
	if fallback {
		s.logger.Warn("no version in force on date, using latest usable version",
			zap.Int("bom_id", bomID),
			zap.String("as_of", asOf.String()),
			zap.Int("version_id", v.ID),
		)
	}
	return v
}

func (s *Service) ApproveVersion(ctx context.Context, id int, req dto.ReviewRequest) (*entities.BOMVersion, error) {
	return s.review(ctx, id, entities.VersionApproved, req)
}

func (s *Service) RejectVersion(ctx context.Context, id int, req dto.ReviewRequest) (*entities.BOMVersion, error) {
	return s.review(ctx, id, entities.VersionRejected, req)
}

func (s *Service) ResubmitVersion(ctx context.Context, id int, req dto.ReviewRequest) (*entities.BOMVersion, error) {
	return s.review(ctx, id, entities.VersionPending, req)
}

func (s *Service) review(ctx context.Context, id int, next entities.VersionStatus, req dto.ReviewRequest) (*entities.BOMVersion, error) {
	if err := entities.Validate(req); err != nil {
		return nil, err
	}
	var reviewed entities.BOMVersion
	err := s.update(ctx, "review_version", func(t *tx) error {
		v := t.doc.Version(id)
		if v == nil {
			return entities.NotFound("bom version", id, entities.ErrVersionNotFound)
		}
		if !v.Status.CanTransitionTo(next) {
			return &entities.StateError{Entity: "bom version", ID: id, From: v.Status.String(), Op: "move to " + next.String()}
		}
		v.Status = next
		v.ReviewedBy = req.Reviewer
		v.ReviewNote = req.Note
		v.ReviewedAt = stamp(t)
		reviewed = *v
		t.emit(events.VersionReviewedEvent, events.BOMStream(v.BOMID), events.VersionChanged{BOMID: v.BOMID, VersionID: id, Status: next})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reviewed, nil
}

// postedAgainst reports whether a posted issue consumed version id
func postedAgainst(doc *entities.Document, versionID int) bool {
	for _, i := range doc.MaterialIssues {
		if i.Status != entities.IssuePosted {
			continue
		}
		if o := doc.Order(i.ProductionOrderID); o != nil && o.BOMVersionID == versionID {
			return true
		}
	}
	return false
}

// checkStructure rejects a candidate version whose product lines close a sub-BOM cycle through its own BOM
func (s *Service) checkStructure(doc *entities.Document, candidate *entities.BOMVersion) error {
	graph := make(map[int][]int)
	for _, v := range doc.BOMVersions {
		if v.ID == candidate.ID {
			continue
		}
		graph[v.BOMID] = append(graph[v.BOMID], subBOMIDs(doc, v.Lines)...)
	}
	graph[candidate.BOMID] = append(graph[candidate.BOMID], subBOMIDs(doc, candidate.Lines)...)

	result := s.validator.ValidateStructure(graph)
	for _, cycle := range result.CyclePaths {
		for _, id := range cycle {
			if id == candidate.BOMID {
				return &entities.ValidationError{Field: "lines", Reason: fmt.Sprintf("BOM cycle detected: %v", cycle)}
			}
		}
	}
	return nil
}

func subBOMIDs(doc *entities.Document, lines []entities.BOMLine) []int {
	var ids []int
	for _, l := range lines {
		if sub := subBOM(doc, l); sub != nil {
			ids = append(ids, sub.ID)
		}
	}
	return ids
}

// subBOM finds the BOM producing a product line's item by product name. Lines
// whose item id has no product row are read as naming the BOM id directly.
func subBOM(doc *entities.Document, line entities.BOMLine) *entities.BOM {
	if line.ItemType != entities.ProductItem {
		return nil
	}
	p := doc.Product(line.ItemID)
	name := line.ItemName
	if p != nil {
		name = p.Name
	}
	if b := bomProducing(doc, name); b != nil {
		return b
	}
	if p == nil {
		return doc.BOM(line.ItemID)
	}
	return nil
}

func bomProducing(doc *entities.Document, name string) *entities.BOM {
	key := entities.NormalizeName(name)
	if key == "" {
		return nil
	}
	for _, b := range doc.BOMs {
		if entities.NormalizeName(b.OutputName()) == key || entities.NormalizeName(b.Name) == key {
			return b
		}
	}
	return nil
}
