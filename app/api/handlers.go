package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/screening-comb/app/notify"
	"github.com/lysyi3m/screening-comb/app/scheduler"
	"github.com/lysyi3m/screening-comb/app/venue"
)

const defaultFeedLimit = 50

func NewHandler(catalog *venue.Catalog, recent *notify.Recent, generator GeneratorInterface,
	reports ReportSource, trigger Trigger, version string) *Handler {
	return &Handler{
		catalog:   catalog,
		recent:    recent,
		generator: generator,
		reports:   reports,
		trigger:   trigger,
		feedLimit: defaultFeedLimit,
		version:   version,
	}
}

func (h *Handler) GetNewEventsFeed(c *gin.Context) {
	limit := h.feedLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.Status(http.StatusBadRequest)
			return
		}
		limit = min(n, notify.DefaultRecentCapacity)
	}

	entries := h.recent.Entries(limit)

	rss, err := h.generator.Run(entries)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(entries)))
	if len(entries) > 0 {
		c.Header("X-Last-Updated", entries[0].NotifiedAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.catalog.GetConfigCount(),
		"enabled_vendors":       len(h.catalog.GetEnabledConfigs()),
	}

	if report := h.reports.LastReport(); report != nil {
		health["last_run_at"] = report.FinishedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"last_run":        h.reports.LastReport(),
		"recent_notified": h.recent.Len(),
	})
}

func (h *Handler) APIListVenues(c *gin.Context) {
	configs := h.catalog.GetConfigs()

	vendors := make([]map[string]interface{}, 0, len(configs))
	for _, cfg := range configs {
		vendors = append(vendors, map[string]interface{}{
			"vendor":       cfg.Vendor,
			"brand":        cfg.Brand,
			"enabled":      cfg.Settings.Enabled,
			"poll_all":     cfg.PollAll,
			"horizon_days": cfg.Settings.HorizonDays,
			"weekdays":     cfg.Settings.Weekdays,
			"venues":       cfg.BoundVenues(),
			"keywords":     len(cfg.Keywords),
			"event_codes":  len(cfg.EventCodes),
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"vendors": vendors,
		"total":   len(vendors),
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	if err := h.trigger.Trigger(); err != nil {
		if errors.Is(err, scheduler.ErrRunPending) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Run already pending",
				"message": "A run is already queued; try again once it starts",
			})
			return
		}

		slog.Error("Error triggering run", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to trigger run",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Run queued",
	})
}
