package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// CallRecordsQuery narrows a call-log listing. StartDate and EndDate are
// required by the backend; everything else is optional.
type CallRecordsQuery struct {
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int

	Disposition  string // e.g. ANSWERED, NO ANSWER
	Direction    string // inbound, outbound, internal
	Source       string
	Destination  string
	HasRecording *bool
	MinDuration  int // seconds
	MaxDuration  int
	SortBy       string
	SortOrder    string
}

func (q CallRecordsQuery) values() url.Values {
	values := url.Values{}
	values.Set("start_date", q.StartDate.Format("2006-01-02"))
	values.Set("end_date", q.EndDate.Format("2006-01-02"))
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Disposition != "" {
		values.Set("disposition", q.Disposition)
	}
	if q.Direction != "" {
		values.Set("direction", q.Direction)
	}
	if q.Source != "" {
		values.Set("src", q.Source)
	}
	if q.Destination != "" {
		values.Set("dst", q.Destination)
	}
	if q.HasRecording != nil {
		values.Set("has_recording", strconv.FormatBool(*q.HasRecording))
	}
	if q.MinDuration > 0 {
		values.Set("min_duration", strconv.Itoa(q.MinDuration))
	}
	if q.MaxDuration > 0 {
		values.Set("max_duration", strconv.Itoa(q.MaxDuration))
	}
	if q.SortBy != "" {
		values.Set("sort_by", q.SortBy)
	}
	if q.SortOrder != "" {
		values.Set("sort_order", q.SortOrder)
	}
	return values
}

// CallRecord is one row of the call log.
type CallRecord struct {
	CallDate     string `json:"calldate"`
	Source       string `json:"src"`
	Destination  string `json:"dst"`
	Direction    string `json:"direction"`
	Disposition  string `json:"disposition"`
	Duration     int    `json:"duration"` // seconds
	BillSeconds  int    `json:"billsec"`
	HasRecording bool   `json:"has_recording"`
}

// CallRecordsPage is a windowed call-log listing.
type CallRecordsPage struct {
	Records []CallRecord `json:"records"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// CallRecords lists call-log rows for the authenticated user's company.
func (c *Client) CallRecords(ctx context.Context, query CallRecordsQuery) (*CallRecordsPage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/call-records", query.values(), nil)
	if err != nil {
		return nil, err
	}

	var page CallRecordsPage
	if err := c.doJSON(c.authed, req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// The analytics endpoints return backend-computed aggregates that the
// dashboard renders verbatim, so they stay raw JSON here rather than
// being retyped field by field.

// Metrics returns aggregate call metrics for a date range.
func (c *Client) Metrics(ctx context.Context, start, end time.Time) (json.RawMessage, error) {
	return c.rawAnalytics(ctx, "/call-records/metrics", start, end)
}

// Dashboard returns the precomputed dashboard payload (volume series,
// direction distribution, top callers).
func (c *Client) Dashboard(ctx context.Context, start, end time.Time) (json.RawMessage, error) {
	return c.rawAnalytics(ctx, "/call-records/dashboard", start, end)
}

// CallerInsights returns per-caller analytics for a date range.
func (c *Client) CallerInsights(ctx context.Context, start, end time.Time) (json.RawMessage, error) {
	return c.rawAnalytics(ctx, "/call-records/caller-insights", start, end)
}

// DirectionAnalysis returns inbound/outbound/internal breakdowns.
func (c *Client) DirectionAnalysis(ctx context.Context, start, end time.Time) (json.RawMessage, error) {
	return c.rawAnalytics(ctx, "/call-records/direction-analysis", start, end)
}

func (c *Client) rawAnalytics(ctx context.Context, path string, start, end time.Time) (json.RawMessage, error) {
	values := url.Values{}
	values.Set("start_date", start.Format("2006-01-02"))
	values.Set("end_date", end.Format("2006-01-02"))

	req, err := c.newRequest(ctx, http.MethodGet, path, values, nil)
	if err != nil {
		return nil, err
	}

	var payload json.RawMessage
	if err := c.doJSON(c.authed, req, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
