package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/post-scheduler/internal/domain"
)

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ScanReporter exposes the latest publish sweep.
type ScanReporter interface {
	Last(ctx context.Context) (*domain.ScanStatus, error)
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    Pinger
	redis       Pinger
	scans       ScanReporter
	channels    func() int
}

// NewHealthHandler returns a new handler instance. scans and channels may be nil.
func NewHealthHandler(serviceName, version string, postgres, redis Pinger, scans ScanReporter, channels func() int) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		postgres:    postgres,
		redis:       redis,
		scans:       scans,
		channels:    channels,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if err := ping(ctx, h.postgres); err != nil {
		depStatus["postgres"] = err.Error()
		ready = false
	} else {
		depStatus["postgres"] = "ok"
	}

	// The scan status lives in redis, so an outage there degrades reporting only.
	if err := ping(ctx, h.redis); err != nil {
		depStatus["redis"] = err.Error()
	} else {
		depStatus["redis"] = "ok"
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": depStatus,
			},
		})
	}

	body := fiber.Map{
		"status":       "ready",
		"dependencies": depStatus,
	}
	if h.channels != nil {
		body["live_channels"] = h.channels()
	}
	if h.scans != nil {
		if last, err := h.scans.Last(ctx); err == nil && last != nil {
			body["last_scan"] = fiber.Map{
				"tick_id":     last.TickID,
				"last_run_at": last.LastRunAt,
				"published":   last.Published,
				"error":       last.Error,
			}
		}
	}
	return c.JSON(body)
}

func ping(ctx context.Context, p Pinger) error {
	if p == nil {
		return nil
	}
	return p.Ping(ctx)
}
