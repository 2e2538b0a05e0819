// Package ledger exposes the BOM, production and inventory ledger operations.
// Every mutation runs as one locked load-modify-save of the whole document.
package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/domain/repositories"
	"github.com/vsinha/labledger/pkg/domain/services"
	"github.com/vsinha/labledger/pkg/infrastructure/events"
)

// PostPolicy decides what post does with a line whose item cannot be resolved
type PostPolicy string

const (
	// PostTolerant skips unresolvable lines and reports them
	PostTolerant PostPolicy = "tolerant"
	// PostStrict aborts the whole post on the first unresolvable line
	PostStrict PostPolicy = "strict"
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	DocumentKey      string
	PostPolicy       PostPolicy
	DefaultYieldBase entities.Quantity
	ProductStockUnit string
	WaterLikeNames   []string
	Clock            func() time.Time
	Events           events.Publisher
	Logger           *zap.Logger
}

// DefaultWaterLikeNames are raw material names treated as unmetered utilities
var DefaultWaterLikeNames = []string{"水", "自来水", "纯水", "去离子水", "工业用水", "生产用水", "water"}

// Service is the ledger façade consumed by the HTTP and CLI layers
type Service struct {
	repo      repositories.DocumentRepository
	locker    repositories.Locker
	units     *services.UnitConverter
	engine    *services.ExplosionEngine
	validator *services.BOMValidator
	events    events.Publisher
	logger    *zap.Logger
	now       func() time.Time
	key       string
	policy    PostPolicy
	stockUnit string
	waterLike map[string]bool
}

func NewService(
	repo repositories.DocumentRepository,
	locker repositories.Locker,
	units *services.UnitConverter,
	opts Options,
) *Service {
	if units == nil {
		units = services.NewUnitConverter()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.DocumentKey == "" {
		opts.DocumentKey = "default"
	}
	if opts.PostPolicy == "" {
		opts.PostPolicy = PostTolerant
	}
	if opts.ProductStockUnit == "" {
		opts.ProductStockUnit = services.DefaultLineUnit
	}
	if opts.WaterLikeNames == nil {
		opts.WaterLikeNames = DefaultWaterLikeNames
	}

	waterLike := make(map[string]bool, len(opts.WaterLikeNames))
	for _, name := range opts.WaterLikeNames {
		waterLike[entities.NormalizeName(name)] = true
	}

	return &Service{
		repo:      repo,
		locker:    locker,
		units:     units,
		engine:    services.NewExplosionEngine(opts.DefaultYieldBase),
		validator: services.NewBOMValidator(),
		events:    opts.Events,
		logger:    opts.Logger,
		now:       opts.Clock,
		key:       opts.DocumentKey,
		policy:    opts.PostPolicy,
		stockUnit: opts.ProductStockUnit,
		waterLike: waterLike,
	}
}

// Units returns the converter the service uses
func (s *Service) Units() *services.UnitConverter {
	return s.units
}

// tx is the working copy of one mutating operation
type tx struct {
	doc     *entities.Document
	ledger  *services.Ledger
	now     time.Time
	pending []events.Event
}

func (t *tx) emit(eventType, streamID string, data interface{}) {
	t.pending = append(t.pending, events.NewEventAt(eventType, streamID, data, t.now))
}

// record appends e to the ledger and queues a StockRecorded event
func (t *tx) record(e *entities.LedgerEntry) (*entities.LedgerEntry, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now
	}
	stored, err := t.ledger.Append(e)
	if err != nil {
		return nil, err
	}
	t.emit(events.StockRecordedEvent, events.ItemStream(stored.Item), events.StockRecorded{Entry: *stored})
	return stored, nil
}

// update runs fn against a freshly loaded document under the document lock and
// saves the result. Nothing is saved when fn fails.
func (s *Service) update(ctx context.Context, op string, fn func(t *tx) error) error {
	logger := s.logger.With(zap.String("operation", op))

	unlock, err := s.locker.Lock(ctx, s.key)
	if err != nil {
		logger.Error("failed to acquire document lock", zap.Error(err))
		return fmt.Errorf("failed to acquire document lock: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to release document lock", zap.Error(err))
		}
	}()

	doc, err := s.repo.Load(ctx)
	if err != nil {
		logger.Error("failed to load document", zap.Error(err))
		return fmt.Errorf("failed to load document: %w", err)
	}

	now := s.now()
	t := &tx{doc: doc, ledger: services.NewLedger(doc, func() time.Time { return now }), now: now}
	if err := fn(t); err != nil {
		logger.Info("operation rejected, nothing saved", zap.Error(err))
		return err
	}

	if err := s.repo.Save(ctx, doc); err != nil {
		logger.Error("failed to save document", zap.Error(err))
		return fmt.Errorf("failed to save document: %w", err)
	}
	logger.Debug("document saved", zap.Int64("revision", doc.Revision))

	s.publish(t.pending)
	return nil
}

// view runs fn against the last saved document without taking the lock
func (s *Service) view(ctx context.Context, fn func(doc *entities.Document) error) error {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	return fn(doc)
}

func (s *Service) publish(pending []events.Event) {
	if s.events == nil {
		return
	}
	for _, e := range pending {
		if err := s.events.AppendEvent(e.StreamID(), e); err != nil {
			s.logger.Warn("failed to publish event", zap.String("event_type", e.Type()), zap.Error(err))
		}
	}
}

func (s *Service) isWaterLike(name string) bool {
	return s.waterLike[entities.NormalizeName(name)]
}

// convert converts qty and logs the pass-through when no rule exists
func (s *Service) convert(t *tx, qty entities.Quantity, from, to string) (entities.Quantity, bool) {
	converted, ok := s.units.Convert(qty, from, to)
	if !ok {
		s.logger.Warn("no unit conversion rule, quantity passed through unconverted",
			zap.String("qty", qty.String()),
			zap.String("from", from),
			zap.String("to", to),
		)
		t.emit(events.ConversionFailedEvent, "units", events.ConversionFailed{From: from, To: to})
	}
	return converted, ok
}

func stamp(t *tx) *time.Time {
	at := t.now
	return &at
}

// Ping checks that the document can be loaded
func (s *Service) Ping(ctx context.Context) error {
	return s.view(ctx, func(*entities.Document) error { return nil })
}
