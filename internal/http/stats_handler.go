package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"folio/internal/analytics"
	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/extstats"
	"folio/internal/pkg/async"
)

const topPagesLimit = 10

var titleCaser = cases.Title(language.English)

type topPageView struct {
	Page           string `json:"page"`
	Label          string `json:"label"`
	Views          int    `json:"views"`
	UniqueVisitors int    `json:"uniqueVisitors"`
}

// pageLabel turns a path into a human dashboard label: the last segment,
// dashes replaced, title-cased. "/" stays "Home".
func pageLabel(page string) string {
	trimmed := strings.Trim(page, "/")
	if trimmed == "" {
		return "Home"
	}
	segments := strings.Split(trimmed, "/")
	last := strings.ReplaceAll(segments[len(segments)-1], "-", " ")
	return titleCaser.String(last)
}

// parseWindowDays resolves the ?days query parameter against the configured
// default and ceiling.
func parseWindowDays(raw string, cfg *config.Config) (int, error) {
	if raw == "" {
		return cfg.DefaultWindowDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0, &analytics.ValidationError{Field: "days", Reason: "must be a positive number"}
	}
	if days > cfg.MaxWindowDays {
		return 0, &analytics.ValidationError{Field: "days", Reason: "window too large"}
	}
	return days, nil
}

// StatsIndexAction handles GET /admin/api/stats?days=N. The aggregations,
// the top-articles list and the optional external summary run concurrently;
// any branch failing degrades that branch to a zero state with a diagnostic
// instead of failing the dashboard.
func StatsIndexAction(ctx *cartridge.Context) error {
	cfg := config.GetConfig()

	days, err := parseWindowDays(ctx.Ctx.Query("days"), cfg)
	if err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	db := ctx.DBManager.GetConnection()
	logger := ctx.Logger
	now := time.Now().UTC()
	loc := cfg.SiteLocation()

	var diagnostics []string

	pageViews, err := analytics.PageViewsInWindow(logger, db, days, now, loc)
	if err != nil {
		logger.Error("Failed to load page views", slog.Any("error", err))
		diagnostics = append(diagnostics, "page views unavailable")
	}
	events, err := analytics.EventsInWindow(logger, db, days, now, loc)
	if err != nil {
		logger.Error("Failed to load events", slog.Any("error", err))
		diagnostics = append(diagnostics, "events unavailable")
	}

	provider := extstats.NewProvider(cfg, logger)
	reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool := async.NewPool(4)
	results := pool.Execute(reqCtx, []async.Task{
		{Name: "daily", Execute: func() (interface{}, error) {
			return analytics.ComputeDailyStats(pageViews, events, days, now, loc)
		}},
		{Name: "topPages", Execute: func() (interface{}, error) {
			return analytics.ComputeTopPages(pageViews, days, topPagesLimit, now, loc)
		}},
		{Name: "totals", Execute: func() (interface{}, error) {
			return analytics.ComputeTotalStats(pageViews, events, days, now, loc)
		}},
		{Name: "topArticles", Execute: func() (interface{}, error) {
			return content.TopArticlesByViews(db, topPagesLimit)
		}},
		{Name: "extSummary", Execute: func() (interface{}, error) {
			summary, err := provider.GetSummary(reqCtx, days)
			return summary, err
		}},
	})

	daily := []analytics.DailyStat{}
	if res, ok := results["daily"]; ok && res.Err == nil {
		daily = res.Data.([]analytics.DailyStat)
	} else {
		diagnostics = append(diagnostics, "daily stats unavailable")
	}

	topPages := []topPageView{}
	if res, ok := results["topPages"]; ok && res.Err == nil {
		for _, page := range res.Data.([]analytics.TopPage) {
			topPages = append(topPages, topPageView{
				Page:           page.Page,
				Label:          pageLabel(page.Page),
				Views:          page.Views,
				UniqueVisitors: page.UniqueVisitors,
			})
		}
	} else {
		diagnostics = append(diagnostics, "top pages unavailable")
	}

	totals := analytics.TotalStats{}
	if res, ok := results["totals"]; ok && res.Err == nil {
		totals = res.Data.(analytics.TotalStats)
	} else {
		diagnostics = append(diagnostics, "totals unavailable")
	}

	topArticles := []content.Article{}
	if res, ok := results["topArticles"]; ok && res.Err == nil {
		topArticles = res.Data.([]content.Article)
	} else {
		diagnostics = append(diagnostics, "top articles unavailable")
	}

	var extSummary *extstats.Summary
	if res, ok := results["extSummary"]; ok && res.Err == nil && res.Data != nil {
		extSummary = res.Data.(*extstats.Summary)
	}

	return ctx.JSON(fiber.Map{
		"success":     true,
		"windowDays":  days,
		"dailyStats":  daily,
		"topPages":    topPages,
		"totals":      totals,
		"topArticles": topArticles,
		"external": fiber.Map{
			"configured": provider.IsConfigured(),
			"summary":    extSummary,
		},
		"diagnostics": diagnostics,
	})
}
