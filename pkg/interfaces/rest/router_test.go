package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/application/services/ledger"
	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/infrastructure/events"
	"github.com/vsinha/labledger/pkg/infrastructure/lock"
	"github.com/vsinha/labledger/pkg/infrastructure/metrics"
	testhelpers "github.com/vsinha/labledger/pkg/infrastructure/testing"
)

type response struct {
	Applied *bool           `json:"applied"`
	Partial bool            `json:"partial"`
	Kind    string          `json:"kind"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, lab *testhelpers.Lab) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := events.NewInMemoryEventStore(nil, events.WithSynchronousDelivery())
	collector := metrics.NewCollector()
	require.NoError(t, collector.Subscribe(store))

	svc := ledger.NewService(lab.Repository(), lock.NewMutexLocker(), nil, ledger.Options{
		Clock:  testhelpers.Clock,
		Events: store,
	})
	return NewRouter(NewHandler(svc, zap.NewNop()), collector, zap.NewNop())
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestRouter_Healthz(t *testing.T) {
	r := newTestRouter(t, testhelpers.NewLab())

	w, _ := do(t, r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_RequestIDIsEchoed(t *testing.T) {
	r := newTestRouter(t, testhelpers.NewLab())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "trace-42", w.Header().Get("X-Request-ID"))
}

func TestRouter_ErrorMapping(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	draft := lab.DraftIssue(order.ID, testhelpers.IssueLine(lab.Sulfate, 50, "kg"))
	zeroLines := lab.DraftIssue(order.ID, testhelpers.IssueLine(lab.Sulfate, 0, "kg"))
	r := newTestRouter(t, lab.Lab)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{"malformed id", http.MethodGet, "/api/v1/boms/abc", "", http.StatusBadRequest, "validation"},
		{"missing bom", http.MethodGet, "/api/v1/boms/404", "", http.StatusNotFound, "not_found"},
		{"malformed body", http.MethodPost, "/api/v1/orders", "{", http.StatusBadRequest, "validation"},
		{"non-positive quantity", http.MethodPost, "/api/v1/orders", `{"bomId":1,"planQty":"0"}`, http.StatusBadRequest, "validation"},
		{"cancel a draft", http.MethodPost, "/api/v1/issues/" + itoa(draft.ID) + "/cancel", "", http.StatusConflict, "state"},
		{"unknown item type", http.MethodGet, "/api/v1/items/widget/1/balance", "", http.StatusBadRequest, "validation"},
		{"post with only zero lines", http.MethodPost, "/api/v1/issues/" + itoa(zeroLines.ID) + "/post", "", http.StatusBadRequest, "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.kind, resp.Kind)
			require.NotNil(t, resp.Applied)
			assert.False(t, *resp.Applied)
		})
	}
}

func TestRouter_OrderToPostedIssue(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	r := newTestRouter(t, lab.Lab)

	w, resp := do(t, r, http.MethodPost, "/api/v1/orders",
		`{"bomId":`+itoa(lab.BOM.ID)+`,"planQty":"200","unit":"kg"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order entities.ProductionOrder
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	assert.Equal(t, "MO-20240701-0001", order.OrderCode)

	w, _ = do(t, r, http.MethodPost, "/api/v1/orders/"+itoa(order.ID)+"/issue", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = do(t, r, http.MethodGet, "/api/v1/issues?orderId="+itoa(order.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, r, http.MethodPost, "/api/v1/issues/1/post", `{"operator":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, *resp.Applied)
	assert.False(t, resp.Partial)

	w, resp = do(t, r, http.MethodGet, "/api/v1/items/raw_material/"+itoa(lab.Sulfate.ID)+"/balance", "")
	require.Equal(t, http.StatusOK, w.Code)
	var balance struct {
		Stock  entities.Quantity `json:"stock"`
		InSync bool              `json:"inSync"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &balance))
	assert.True(t, balance.Stock.Equal(entities.Qty(900)), "got %s", balance.Stock)
	assert.True(t, balance.InSync)
}

func TestRouter_PartialPost(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	order := lab.Order(lab.BOM.ID, lab.Version.ID, 100, "kg")
	issue := lab.DraftIssue(order.ID,
		testhelpers.IssueLine(lab.Sulfate, 50, "kg"),
		entities.IssueLine{ItemType: entities.RawMaterialItem, ItemID: 99, ItemName: "ghost pigment", RequiredQty: entities.Qty(4), UOM: "kg"},
	)
	r := newTestRouter(t, lab.Lab)

	w, resp := do(t, r, http.MethodPost, "/api/v1/issues/"+itoa(issue.ID)+"/post", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, *resp.Applied)
	assert.True(t, resp.Partial)
}

func TestRouter_Metrics(t *testing.T) {
	lab := testhelpers.BuildAcceleratorLab()
	r := newTestRouter(t, lab.Lab)

	w, _ := do(t, r, http.MethodPost, "/api/v1/movements",
		`{"item":{"itemType":"raw_material","itemId":`+itoa(lab.DEA.ID)+`},"type":"in","quantity":"25","unit":"kg"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = do(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "labledger_ledger_entries_total")
	assert.Contains(t, body, "labledger_http_request_duration_seconds")
	assert.Contains(t, body, `route="/api/v1/movements"`)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
