// Package content holds the portfolio's published material: articles and
// projects. The analytics side only consumes it through the view counters.
package content

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"folio/internal/models"
)

type Article struct {
	ID        uint   `gorm:"primaryKey"`
	Slug      string `gorm:"uniqueIndex;not null"`
	Title     string `gorm:"not null"`
	Locale    string `gorm:"size:8;default:en"`
	Summary   string
	Views     int `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Project struct {
	ID        uint   `gorm:"primaryKey"`
	Slug      string `gorm:"uniqueIndex;not null"`
	Title     string `gorm:"not null"`
	Summary   string
	Tags      string `gorm:"index"` // comma-separated
	Year      int
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListArticles returns all articles, newest first.
func ListArticles(db *gorm.DB) ([]Article, error) {
	var articles []Article
	if err := db.Order("created_at DESC").Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	return articles, nil
}

// ListProjects returns all projects, most recent year first.
func ListProjects(db *gorm.DB) ([]Project, error) {
	var projects []Project
	if err := db.Order("year DESC, slug ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// TopArticlesByViews returns the most-read articles, view count descending,
// ties by slug ascending. limit <= 0 means all.
func TopArticlesByViews(db *gorm.DB, limit int) ([]Article, error) {
	var articles []Article
	q := db.Order("views DESC, slug ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("loading top articles: %w", err)
	}
	return articles, nil
}

// IncrementArticleViews bumps an article's read counter. Unknown slugs are a
// no-op: the counter is best-effort and must never fail a page render.
func IncrementArticleViews(logger *slog.Logger, db *gorm.DB, slug string) {
	err := models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&Article{}).
			Where("slug = ?", slug).
			UpdateColumn("views", gorm.Expr("views + 1")).Error
	})
	if err != nil {
		logger.Warn("Failed to increment article views", "slug", slug, "error", err)
	}
}
