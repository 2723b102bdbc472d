package analytics

import (
	"math"
	"sort"
	"time"
)

// DailyStat is one calendar day's aggregate, bucketed in the site timezone.
type DailyStat struct {
	Date           string `json:"date"` // YYYY-MM-DD
	Views          int    `json:"views"`
	UniqueVisitors int    `json:"uniqueVisitors"`
	Events         int    `json:"events"`
}

// TopPage is one page's aggregate within the lookback window.
type TopPage struct {
	Page           string `json:"page"`
	Views          int    `json:"views"`
	UniqueVisitors int    `json:"uniqueVisitors"`
}

// TotalStats summarizes the whole lookback window.
type TotalStats struct {
	TotalViews         int `json:"totalViews"`
	UniqueVisitors     int `json:"uniqueVisitors"`
	AvgViewsPerVisitor int `json:"avgViewsPerVisitor"`
	TotalEvents        int `json:"totalEvents"`
}

const dateLayout = "2006-01-02"

// windowStart returns the beginning of the oldest calendar day in a
// windowDays lookback ending at now, in loc. A 1-day window is "today".
func windowStart(windowDays int, now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return today.AddDate(0, 0, -(windowDays - 1))
}

func validateWindow(windowDays int) error {
	if windowDays <= 0 {
		return &ValidationError{Field: "windowDays", Reason: "must be positive"}
	}
	return nil
}

func inWindow(ts time.Time, start, now time.Time) bool {
	return !ts.Before(start) && !ts.After(now)
}

// ComputeDailyStats buckets page views and events into calendar days.
// The result always has exactly windowDays entries in ascending date order;
// days with no traffic are zero-filled. Records outside the window are
// ignored, not an error.
func ComputeDailyStats(pageViews []PageView, events []Event, windowDays int, now time.Time, loc *time.Location) ([]DailyStat, error) {
	if err := validateWindow(windowDays); err != nil {
		return nil, err
	}

	start := windowStart(windowDays, now, loc)

	type bucket struct {
		views    int
		events   int
		sessions map[string]struct{}
	}
	buckets := make(map[string]*bucket, windowDays)
	get := func(day string) *bucket {
		b, ok := buckets[day]
		if !ok {
			b = &bucket{sessions: make(map[string]struct{})}
			buckets[day] = b
		}
		return b
	}

	for _, pv := range pageViews {
		if !inWindow(pv.Timestamp, start, now) {
			continue
		}
		b := get(pv.Timestamp.In(loc).Format(dateLayout))
		b.views++
		if pv.SessionID != "" {
			b.sessions[pv.SessionID] = struct{}{}
		}
	}
	for _, ev := range events {
		if !inWindow(ev.Timestamp, start, now) {
			continue
		}
		get(ev.Timestamp.In(loc).Format(dateLayout)).events++
	}

	stats := make([]DailyStat, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		day := start.AddDate(0, 0, i).Format(dateLayout)
		st := DailyStat{Date: day}
		if b, ok := buckets[day]; ok {
			st.Views = b.views
			st.Events = b.events
			st.UniqueVisitors = len(b.sessions)
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// ComputeTopPages ranks pages by view count within the window, descending,
// ties broken by page path ascending. limit <= 0 means no truncation.
func ComputeTopPages(pageViews []PageView, windowDays, limit int, now time.Time, loc *time.Location) ([]TopPage, error) {
	if err := validateWindow(windowDays); err != nil {
		return nil, err
	}

	start := windowStart(windowDays, now, loc)

	type bucket struct {
		views    int
		sessions map[string]struct{}
	}
	buckets := make(map[string]*bucket)
	for _, pv := range pageViews {
		if !inWindow(pv.Timestamp, start, now) {
			continue
		}
		b, ok := buckets[pv.Page]
		if !ok {
			b = &bucket{sessions: make(map[string]struct{})}
			buckets[pv.Page] = b
		}
		b.views++
		if pv.SessionID != "" {
			b.sessions[pv.SessionID] = struct{}{}
		}
	}

	pages := make([]TopPage, 0, len(buckets))
	for page, b := range buckets {
		pages = append(pages, TopPage{Page: page, Views: b.views, UniqueVisitors: len(b.sessions)})
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Views != pages[j].Views {
			return pages[i].Views > pages[j].Views
		}
		return pages[i].Page < pages[j].Page
	})

	if limit > 0 && len(pages) > limit {
		pages = pages[:limit]
	}
	return pages, nil
}

// ComputeTotalStats sums the window. AvgViewsPerVisitor is rounded to the
// nearest whole number and is zero when there are no visitors.
func ComputeTotalStats(pageViews []PageView, events []Event, windowDays int, now time.Time, loc *time.Location) (TotalStats, error) {
	if err := validateWindow(windowDays); err != nil {
		return TotalStats{}, err
	}

	start := windowStart(windowDays, now, loc)
	sessions := make(map[string]struct{})
	totals := TotalStats{}

	for _, pv := range pageViews {
		if !inWindow(pv.Timestamp, start, now) {
			continue
		}
		totals.TotalViews++
		if pv.SessionID != "" {
			sessions[pv.SessionID] = struct{}{}
		}
	}
	for _, ev := range events {
		if inWindow(ev.Timestamp, start, now) {
			totals.TotalEvents++
		}
	}

	totals.UniqueVisitors = len(sessions)
	if totals.UniqueVisitors > 0 {
		totals.AvgViewsPerVisitor = int(math.Round(float64(totals.TotalViews) / float64(totals.UniqueVisitors)))
	}
	return totals, nil
}
