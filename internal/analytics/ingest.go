package analytics

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"folio/internal/models"
	"folio/internal/pkg/useragent"
)

// PageViewInput carries a single page-view report from the ingestion surface.
// Country and City are resolved by the caller (edge headers, optional GeoLite
// fallback) before the write.
type PageViewInput struct {
	Page      string
	Referrer  string
	UserAgent string
	SessionID string
	Country   string
	City      string
}

// EventInput carries a single custom-event report from the ingestion surface.
type EventInput struct {
	Type      string
	Page      string
	SessionID string
	Data      map[string]interface{}
}

// RecordPageView persists one page view with a server-side timestamp and
// device/OS derived from the user agent. It returns the store-assigned view
// id the client later uses to patch the duration.
func RecordPageView(logger *slog.Logger, db *gorm.DB, in PageViewInput) (string, error) {
	if in.Page == "" {
		return "", &ValidationError{Field: "page", Reason: "required"}
	}
	if in.SessionID == "" {
		return "", &ValidationError{Field: "sessionId", Reason: "required"}
	}

	ua := useragent.Parse(in.UserAgent)
	country, city := in.Country, in.City
	if country == "" {
		country = UnknownGeo
	}
	if city == "" {
		city = UnknownGeo
	}

	pv := PageView{
		Page:      in.Page,
		Referrer:  in.Referrer,
		UserAgent: in.UserAgent,
		Device:    ua.Device,
		OS:        ua.OS,
		Country:   country,
		City:      city,
		SessionID: in.SessionID,
		Timestamp: time.Now().UTC(),
	}

	err := models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&pv).Error
	})
	if err != nil {
		return "", fmt.Errorf("recording page view: %w", err)
	}

	logger.Debug("Recorded page view", "page", pv.Page, "device", pv.Device, "os", pv.OS)
	return pv.ID, nil
}

// UpdatePageViewDuration overwrites the dwell time of a previously recorded
// view. Repeated patches win by last write. An unknown id yields a
// NotFoundError; callers on the public surface treat that as advisory.
func UpdatePageViewDuration(logger *slog.Logger, db *gorm.DB, viewID string, seconds int) error {
	if viewID == "" {
		return &ValidationError{Field: "viewId", Reason: "required"}
	}
	if seconds < 0 {
		return &ValidationError{Field: "duration", Reason: "must not be negative"}
	}

	return models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		var pv PageView
		if err := tx.Select("id").First(&pv, "id = ?", viewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "page view", ID: viewID}
			}
			return fmt.Errorf("loading page view: %w", err)
		}
		return tx.Model(&PageView{}).
			Where("id = ?", viewID).
			Update("duration", sql.NullInt64{Int64: int64(seconds), Valid: true}).Error
	})
}

// RecordEvent persists one custom event. The attribute map is stored as JSON
// text; a missing map is stored as an empty object so readers never see NULL.
func RecordEvent(logger *slog.Logger, db *gorm.DB, in EventInput) error {
	if in.Type == "" {
		return &ValidationError{Field: "type", Reason: "required"}
	}
	if in.Page == "" {
		return &ValidationError{Field: "page", Reason: "required"}
	}
	if in.SessionID == "" {
		return &ValidationError{Field: "sessionId", Reason: "required"}
	}

	data := []byte("{}")
	if len(in.Data) > 0 {
		encoded, err := json.Marshal(in.Data)
		if err != nil {
			return &ValidationError{Field: "data", Reason: "not serializable"}
		}
		data = encoded
	}

	ev := Event{
		Type:      in.Type,
		Page:      in.Page,
		Data:      models.JSON(data),
		SessionID: in.SessionID,
		Timestamp: time.Now().UTC(),
	}

	err := models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&ev).Error
	})
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}

	logger.Debug("Recorded event", "type", ev.Type, "page", ev.Page)
	return nil
}
