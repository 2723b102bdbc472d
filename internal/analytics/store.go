package analytics

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// PageViewsInWindow loads the page views whose timestamps fall inside the
// windowDays lookback ending at now. Window filtering happens after the scan
// so rows carrying a zero timestamp (older builds, corrupted imports) can be
// detected; those are skipped and the skip count is logged rather than
// failing the read.
func PageViewsInWindow(logger *slog.Logger, db *gorm.DB, windowDays int, now time.Time, loc *time.Location) ([]PageView, error) {
	if err := validateWindow(windowDays); err != nil {
		return nil, err
	}

	var rows []PageView
	if err := db.Order("timestamp ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading page views: %w", err)
	}

	start := windowStart(windowDays, now, loc)
	views := make([]PageView, 0, len(rows))
	skipped := 0
	for _, pv := range rows {
		if pv.Timestamp.IsZero() {
			skipped++
			continue
		}
		if inWindow(pv.Timestamp, start, now) {
			views = append(views, pv)
		}
	}
	if skipped > 0 {
		logger.Warn("Skipped page views with invalid timestamps", "count", skipped)
	}
	return views, nil
}

// EventsInWindow loads the events whose timestamps fall inside the windowDays
// lookback ending at now, with the same invalid-timestamp handling as
// PageViewsInWindow.
func EventsInWindow(logger *slog.Logger, db *gorm.DB, windowDays int, now time.Time, loc *time.Location) ([]Event, error) {
	if err := validateWindow(windowDays); err != nil {
		return nil, err
	}

	var rows []Event
	if err := db.Order("timestamp ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}

	start := windowStart(windowDays, now, loc)
	events := make([]Event, 0, len(rows))
	skipped := 0
	for _, ev := range rows {
		if ev.Timestamp.IsZero() {
			skipped++
			continue
		}
		if inWindow(ev.Timestamp, start, now) {
			events = append(events, ev)
		}
	}
	if skipped > 0 {
		logger.Warn("Skipped events with invalid timestamps", "count", skipped)
	}
	return events, nil
}
