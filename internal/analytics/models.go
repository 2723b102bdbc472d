package analytics

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"folio/internal/models"
)

// Device types derived from the user agent at ingestion time.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
)

// Operating systems derived from the user agent at ingestion time.
const (
	OSWindows = "Windows"
	OSMacOS   = "macOS"
	OSLinux   = "Linux"
	OSAndroid = "Android"
	OSIOS     = "iOS"
	OSUnknown = "Unknown"
)

// UnknownGeo is the placeholder for country/city when no edge geolocation
// headers are present and no GeoLite database is configured.
const UnknownGeo = "Unknown"

// PageView records one browsing context's visit to one logical page.
// The id is store-assigned and opaque; it is the client's only handle for the
// later duration patch, so it must not be a guessable sequence.
type PageView struct {
	ID        string `gorm:"primaryKey;size:36"`
	Page      string `gorm:"index;not null"`
	Referrer  string
	UserAgent string
	Device    string `gorm:"size:16"`
	OS        string `gorm:"size:16"`
	Country   string
	City      string
	SessionID string        `gorm:"index;not null"`
	Duration  sql.NullInt64 // dwell seconds, absent until the client reports
	Timestamp time.Time     `gorm:"index;not null"`
	CreatedAt time.Time
}

// BeforeCreate assigns the opaque record id.
func (pv *PageView) BeforeCreate(_ *gorm.DB) error {
	if pv.ID == "" {
		pv.ID = uuid.NewString()
	}
	return nil
}

// Event records one named interaction with an open attribute map.
// Events are write-once: there is no update or delete path from the
// ingestion surface.
type Event struct {
	ID        string `gorm:"primaryKey;size:36"`
	Type      string `gorm:"index;not null"`
	Page      string `gorm:"index;not null"`
	Data      models.JSON
	SessionID string    `gorm:"index;not null"`
	Timestamp time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

// BeforeCreate assigns the opaque record id.
func (e *Event) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
