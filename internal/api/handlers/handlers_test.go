package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanmart/sales-dashboard/internal/dataset"
	"github.com/urbanmart/sales-dashboard/internal/jobs/inmemory"
	"github.com/urbanmart/sales-dashboard/internal/narrative"
	"github.com/urbanmart/sales-dashboard/internal/query"
)

type memSource struct {
	rows []dataset.RawRow
}

func (m memSource) Rows(ctx context.Context) ([]dataset.RawRow, error) { return m.rows, nil }
func (m memSource) Name() string                                       { return "memory" }

func testRow(overrides map[string]string) dataset.RawRow {
	row := dataset.RawRow{
		"date":             "2024-03-04",
		"bill_id":          "B1",
		"transaction_id":   "T1",
		"customer_id":      "C1",
		"product_id":       "P1",
		"product_name":     "Milk 1L",
		"product_category": "Groceries",
		"store_location":   "Downtown",
		"channel":          "In-store",
		"customer_segment": "Regular",
		"payment_method":   "Cash",
		"quantity":         "1",
		"unit_price":       "10",
		"discount_applied": "0",
	}
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

func newTestHandler(t *testing.T, rows ...dataset.RawRow) *DashboardHandler {
	t.Helper()
	if len(rows) == 0 {
		rows = []dataset.RawRow{
			testRow(map[string]string{"transaction_id": "T1", "store_location": "Downtown"}),
			testRow(map[string]string{"transaction_id": "T2", "bill_id": "B2", "customer_id": "C2", "store_location": "Airport", "unit_price": "30"}),
		}
	}
	table, err := dataset.Load(context.Background(), memSource{rows: rows}, nil)
	require.NoError(t, err)

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(4, store)
	t.Cleanup(func() { _ = queue.Close() })

	return NewDashboardHandler(query.NewCache(table), queue, store, narrative.TemplateGenerator{}, 1000, zerolog.Nop())
}

func TestSummaryEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	rec := httptest.NewRecorder()
	h.Summary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Summary  query.Summary `json:"summary"`
		RowCount int           `json:"row_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.RowCount)
	assert.Equal(t, 2, resp.Summary.TransactionCount)
	assert.Equal(t, 2, resp.Summary.UniqueCustomers)
}

func TestSummaryEndpointAppliesFilters(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/summary?stores=Airport", nil)
	rec := httptest.NewRecorder()
	h.Summary(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RowCount int `json:"row_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.RowCount)
}

func TestSummaryEndpointRejectsBadDate(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/summary?start=03/04/2024", nil)
	rec := httptest.NewRecorder()
	h.Summary(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryEndpointRejectsInvertedRange(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/summary?start=2024-06-01&end=2024-01-01", nil)
	rec := httptest.NewRecorder()
	h.Summary(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankingsEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rankings?dim=store&n=1", nil)
	rec := httptest.NewRecorder()
	h.Rankings(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Dimension string             `json:"dimension"`
		Rankings  []query.GroupTotal `json:"rankings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "store", resp.Dimension)
	require.Len(t, resp.Rankings, 1)
	assert.Equal(t, "Airport", resp.Rankings[0].Key)
}

func TestRankingsEndpointRejectsUnknownDimension(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rankings?dim=weather", nil)
	rec := httptest.NewRecorder()
	h.Rankings(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrendEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/trend?period=month", nil)
	rec := httptest.NewRecorder()
	h.Trend(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Period string              `json:"period"`
		Series []query.SeriesPoint `json:"series"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "month", resp.Period)
	require.Len(t, resp.Series, 1)
	assert.Equal(t, "2024-03", resp.Series[0].Period)
}

func TestTrendEndpointRejectsUnknownPeriod(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/trend?period=week", nil)
	rec := httptest.NewRecorder()
	h.Trend(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPivotEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/pivot", nil)
	rec := httptest.NewRecorder()
	h.Pivot(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp query.PivotTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Monday", resp.RowKeys[0])
	assert.Len(t, resp.RowKeys, 7)
}

func TestFiltersEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/filters", nil)
	rec := httptest.NewRecorder()
	h.Filters(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Stores  []string `json:"stores"`
		MinDate string   `json:"min_date"`
		MaxDate string   `json:"max_date"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Airport", "Downtown"}, resp.Stores)
	assert.Equal(t, "2024-03-04", resp.MinDate)
	assert.Equal(t, "2024-03-04", resp.MaxDate)
}

func TestInsightsEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/insights", nil)
	rec := httptest.NewRecorder()
	h.Insights(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Insights  query.Insights `json:"insights"`
		Narrative string         `json:"narrative"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Insights.TopStore.Available)
	assert.Equal(t, "Airport", resp.Insights.TopStore.Key)
	assert.NotEmpty(t, resp.Narrative)
}

func TestRowsEndpointLimit(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/rows?limit=1", nil)
	rec := httptest.NewRecorder()
	h.Rows(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows  []json.RawMessage `json:"rows"`
		Count int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Rows, 1)
	assert.Equal(t, 2, resp.Count, "count reports the full filtered size")
}

func TestCreateAndGetExport(t *testing.T) {
	h := newTestHandler(t)

	body := bytes.NewBufferString(`{"format":"csv"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/exports?stores=Airport", body)
	rec := httptest.NewRecorder()
	h.CreateExport(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var created struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.JobID)
	assert.Equal(t, "pending", created.Status)

	getReq := httptest.NewRequest(http.MethodGet, "/api/exports/"+created.JobID, nil)
	getRec := httptest.NewRecorder()
	h.GetExport(getRec, getReq, created.JobID)

	require.Equal(t, http.StatusOK, getRec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/api/exports", nil)
	listRec := httptest.NewRecorder()
	h.ListExports(listRec, listReq)

	require.Equal(t, http.StatusOK, listRec.Code)
	var listed struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Count)
}

func TestCreateExportRejectsUnknownFormat(t *testing.T) {
	h := newTestHandler(t)

	body := bytes.NewBufferString(`{"format":"pdf"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/exports", body)
	rec := httptest.NewRecorder()
	h.CreateExport(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetExportUnknownJob(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/exports/missing", nil)
	rec := httptest.NewRecorder()
	h.GetExport(rec, req, "missing")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
