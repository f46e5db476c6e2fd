package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/urbanmart/sales-dashboard/internal/api/middleware"
	"github.com/urbanmart/sales-dashboard/internal/domain"
	"github.com/urbanmart/sales-dashboard/internal/jobs"
	"github.com/urbanmart/sales-dashboard/internal/narrative"
	"github.com/urbanmart/sales-dashboard/internal/query"
)

// DashboardHandler serves the analytics endpoints. Every GET endpoint accepts
// the filter criteria as query parameters and recomputes its view from the
// immutable base table (through the criteria-keyed cache).
type DashboardHandler struct {
	cache            *query.Cache
	publisher        jobs.Publisher
	store            jobs.JobStore
	narrator         narrative.Generator
	defaultThreshold decimal.Decimal
	log              zerolog.Logger
}

// NewDashboardHandler creates the handler set for one loaded table.
func NewDashboardHandler(cache *query.Cache, publisher jobs.Publisher, store jobs.JobStore, narrator narrative.Generator, highValueThreshold float64, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		cache:            cache,
		publisher:        publisher,
		store:            store,
		narrator:         narrator,
		defaultThreshold: decimal.NewFromFloat(highValueThreshold),
		log:              log,
	}
}

// parseCriteria builds a query.Criteria from request query parameters.
// Malformed values are reported to the caller as 400s by the caller.
func (h *DashboardHandler) parseCriteria(r *http.Request) (query.Criteria, error) {
	q := r.URL.Query()
	var c query.Criteria

	if s := q.Get("start"); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			return c, fmt.Errorf("invalid start date %q", s)
		}
		c.DateRange.Start = &d
	}
	if s := q.Get("end"); s != "" {
		d, err := civil.ParseDate(s)
		if err != nil {
			return c, fmt.Errorf("invalid end date %q", s)
		}
		c.DateRange.End = &d
	}

	c.StoreLocations = splitList(q.Get("stores"))
	c.Channel = q.Get("channel")
	c.Categories = splitList(q.Get("categories"))
	c.Segments = splitList(q.Get("segments"))
	c.PaymentMethods = splitList(q.Get("payments"))

	for _, bound := range []struct {
		param  string
		target **decimal.Decimal
	}{
		{"min_discount", &c.DiscountRange.Min},
		{"max_discount", &c.DiscountRange.Max},
	} {
		if s := q.Get(bound.param); s != "" {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return c, fmt.Errorf("invalid %s %q", bound.param, s)
			}
			*bound.target = &d
		}
	}
	for _, bound := range []struct {
		param  string
		target **int
	}{
		{"min_qty", &c.QuantityRange.Min},
		{"max_qty", &c.QuantityRange.Max},
	} {
		if s := q.Get(bound.param); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return c, fmt.Errorf("invalid %s %q", bound.param, s)
			}
			*bound.target = &n
		}
	}

	if q.Get("high_value") == "true" {
		c.HighValue.Enabled = true
		c.HighValue.Threshold = h.defaultThreshold
		if s := q.Get("high_value_threshold"); s != "" {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return c, fmt.Errorf("invalid high_value_threshold %q", s)
			}
			c.HighValue.Threshold = d
		}
	}

	return c, nil
}

// filteredRows resolves the criteria and filtered rows for a request, writing
// the error response itself when the request is invalid. The bool reports
// whether the caller should continue.
func (h *DashboardHandler) filteredRows(w http.ResponseWriter, r *http.Request) ([]domain.TransactionLine, query.Criteria, bool) {
	criteria, err := h.parseCriteria(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, criteria, false
	}

	rows, err := h.cache.Filter(criteria)
	if err != nil {
		var cfgErr *query.ConfigurationError
		if errors.As(err, &cfgErr) {
			middleware.WriteError(w, http.StatusBadRequest, cfgErr.Error())
		} else {
			h.log.Error().Err(err).Msg("Failed to filter rows")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to filter rows")
		}
		return nil, criteria, false
	}
	return rows, criteria, true
}

func (h *DashboardHandler) threshold(r *http.Request) decimal.Decimal {
	if s := r.URL.Query().Get("high_value_threshold"); s != "" {
		if d, err := decimal.NewFromString(s); err == nil {
			return d
		}
	}
	return h.defaultThreshold
}

// Summary handles GET /api/summary
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rows, _, ok := h.filteredRows(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summary":   query.Summarize(rows, h.threshold(r)),
		"growth":    query.GrowthSummary(rows),
		"row_count": len(rows),
	})
}

// Rankings handles GET /api/rankings?dim=category&n=5
func (h *DashboardHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	rows, _, ok := h.filteredRows(w, r)
	if !ok {
		return
	}

	dim := r.URL.Query().Get("dim")
	key, err := keyForDimension(dim)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	n := 5
	if s := r.URL.Query().Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid n %q", s))
			return
		}
		n = v
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"dimension": dim,
		"rankings":  query.TopN(rows, key, query.LineRevenue, n),
	})
}

// Trend handles GET /api/trend?period=day|month|quarter
func (h *DashboardHandler) Trend(w http.ResponseWriter, r *http.Request) {
	rows, _, ok := h.filteredRows(w, r)
	if !ok {
		return
	}

	var points []query.SeriesPoint
	period := r.URL.Query().Get("period")
	switch period {
	case "", "day":
		period = "day"
		points = query.DailySeries(rows)
	case "month":
		points = query.MonthlySeries(rows)
	case "quarter":
		points = query.QuarterlySeries(rows)
	default:
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid period %q", period))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"period": period,
		"series": points,
		"growth": query.PeriodOverPeriodGrowth(points),
	})
}

// Pivot handles GET /api/pivot, the day-of-week by store revenue heatmap.
func (h *DashboardHandler) Pivot(w http.ResponseWriter, r *http.Request) {
	rows, _, ok := h.filteredRows(w, r)
	if !ok {
		return
	}

	pivot := query.Pivot(rows, query.ByWeekday, query.ByStore, query.LineRevenue, domain.Weekdays)
	middleware.WriteJSON(w, http.StatusOK, pivot)
}

// Pareto handles GET /api/pareto?dim=product|customer
func (h *DashboardHandler) Pareto(w http.ResponseWriter, r *http.Request) {
	rows, _, ok := h.filteredRows(w, r)
	if !ok {
		return
	}

	dim := r.URL.Query().Get("dim")
	if dim == "" {
		dim = "product"
	}
	key, err := keyForDimension(dim)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"dimension": dim,
		"pareto":    query.CumulativeShare(query.GroupSum(rows, key, query.LineRevenue)),
	})
}

// Insights handles GET /api/insights
func (h *DashboardHandler) Insights(w http.ResponseWriter, r *http.Request) {
	rows, _, ok := h.filteredRows(w, r)
	if !ok {
		return
	}

	insights := query.SelectInsights(rows)
	summary := query.Summarize(rows, h.threshold(r))

	text, err := h.narrator.Narrate(r.Context(), insights, summary)
	if err != nil {
		// The model-backed generator can fail; the templated text cannot.
		h.log.Warn().Err(err).Msg("Narrative generation failed, using template")
		text, _ = narrative.TemplateGenerator{}.Narrate(r.Context(), insights, summary)
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"insights":  insights,
		"narrative": text,
	})
}

// Filters handles GET /api/filters: the distinct values per filterable
// dimension, for populating sidebar controls.
func (h *DashboardHandler) Filters(w http.ResponseWriter, r *http.Request) {
	lines := h.cache.Table().Lines()

	stores := make(map[string]struct{})
	channels := make(map[string]struct{})
	categories := make(map[string]struct{})
	segments := make(map[string]struct{})
	payments := make(map[string]struct{})
	var minDate, maxDate civil.Date

	for i, line := range lines {
		stores[line.StoreLocation] = struct{}{}
		channels[line.Channel] = struct{}{}
		categories[line.ProductCategory] = struct{}{}
		segments[line.CustomerSegment] = struct{}{}
		payments[line.PaymentMethod] = struct{}{}
		if i == 0 || line.Date.Before(minDate) {
			minDate = line.Date
		}
		if i == 0 || line.Date.After(maxDate) {
			maxDate = line.Date
		}
	}

	resp := map[string]interface{}{
		"stores":     sortedValues(stores),
		"channels":   sortedValues(channels),
		"categories": sortedValues(categories),
		"segments":   sortedValues(segments),
		"payments":   sortedValues(payments),
	}
	if len(lines) > 0 {
		resp["min_date"] = minDate.String()
		resp["max_date"] = maxDate.String()
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// Rows handles GET /api/rows?limit=20, a sample of the filtered view.
func (h *DashboardHandler) Rows(w http.ResponseWriter, r *http.Request) {
	rows, _, ok := h.filteredRows(w, r)
	if !ok {
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", s))
			return
		}
		limit = v
	}

	total := len(rows)
	if limit < total {
		rows = rows[:limit]
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rows":  rows,
		"count": total,
	})
}

// CreateExport handles POST /api/exports. Criteria come from query
// parameters, the format from the JSON body.
func (h *DashboardHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.parseCriteria(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := criteria.Validate(); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Format string `json:"format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	format := jobs.Format(req.Format)
	if format == "" {
		format = jobs.FormatCSV
	}
	if !format.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid format %q", req.Format))
		return
	}

	job := &jobs.ExportJob{Format: format, Criteria: criteria}
	if err := h.publisher.PublishExport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("format", string(format)).Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// GetExport handles GET /api/exports/{id}
func (h *DashboardHandler) GetExport(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get export job")
		middleware.WriteError(w, http.StatusNotFound, "Export job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListExports handles GET /api/exports
func (h *DashboardHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := jobs.JobFilter{Status: jobs.JobStatus(q.Get("status"))}

	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			filter.Limit = v
		}
	}
	if s := q.Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			filter.Offset = v
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list export jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list export jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

func keyForDimension(dim string) (query.KeyFunc, error) {
	switch dim {
	case "category":
		return query.ByCategory, nil
	case "store":
		return query.ByStore, nil
	case "product":
		return query.ByProduct, nil
	case "customer":
		return query.ByCustomer, nil
	case "payment":
		return query.ByPayment, nil
	case "segment":
		return query.BySegment, nil
	default:
		return nil, fmt.Errorf("invalid dimension %q", dim)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sortedValues(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
