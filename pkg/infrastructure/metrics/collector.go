// Package metrics exposes ledger activity as Prometheus metrics fed by domain events.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vsinha/labledger/pkg/infrastructure/events"
)

// Collector handles metrics collection and reporting
type Collector struct {
	registry        *prometheus.Registry
	eventsTotal     *prometheus.CounterVec
	entriesTotal    *prometheus.CounterVec
	movedQuantity   *prometheus.CounterVec
	stockLevel      *prometheus.GaugeVec
	skippedLines    prometheus.Counter
	conversionFails *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labledger_events_total",
				Help: "Domain events published by the ledger",
			},
			[]string{"type"},
		),
		entriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labledger_ledger_entries_total",
				Help: "Ledger entries recorded",
			},
			[]string{"movement", "item_type"},
		),
		movedQuantity: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labledger_moved_quantity_total",
				Help: "Quantity moved by ledger entries, in the item's stock unit",
			},
			[]string{"movement", "unit"},
		),
		stockLevel: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "labledger_stock_level",
				Help: "Stock of an item after its latest ledger entry",
			},
			[]string{"item", "name", "unit"},
		),
		skippedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labledger_issue_lines_skipped_total",
			Help: "Issue lines skipped by tolerant posting",
		}),
		conversionFails: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labledger_unit_conversion_failures_total",
				Help: "Quantities passed through without a conversion rule",
			},
			[]string{"from", "to"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "labledger_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}

	c.registry.MustRegister(
		c.eventsTotal,
		c.entriesTotal,
		c.movedQuantity,
		c.stockLevel,
		c.skippedLines,
		c.conversionFails,
		c.requestDuration,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the registry backing the collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Subscribe registers the collector for every ledger event on store
func (c *Collector) Subscribe(store events.EventStore) error {
	return store.Subscribe(events.AllEventTypes, c)
}

func (c *Collector) CanHandle(eventType string) bool {
	return true
}

// Handle updates the metrics for one domain event
func (c *Collector) Handle(event events.Event) error {
	c.eventsTotal.WithLabelValues(event.Type()).Inc()

	switch data := event.Data().(type) {
	case events.StockRecorded:
		e := data.Entry
		c.entriesTotal.WithLabelValues(string(e.Type), string(e.Item.Type)).Inc()
		qty, _ := e.Quantity.Float64()
		c.movedQuantity.WithLabelValues(string(e.Type), e.Unit).Add(qty)
		stock, _ := e.SnapshotStock.Float64()
		c.stockLevel.WithLabelValues(e.Item.String(), e.ItemName, e.Unit).Set(stock)
	case events.IssuePosted:
		c.skippedLines.Add(float64(data.Skipped))
	case events.ConversionFailed:
		c.conversionFails.WithLabelValues(data.From, data.To).Inc()
	case events.BOMChanged, events.VersionChanged, events.OrderChanged, events.OrderFinished,
		events.IssueGenerated, events.IssueCancelled, events.IssuesRepaired,
		events.StockReconciled, events.AliasesMerged:
	default:
		return fmt.Errorf("unexpected payload %T for %s", data, event.Type())
	}
	return nil
}

// ObserveRequest records one HTTP request
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

var _ events.EventHandler = (*Collector)(nil)
