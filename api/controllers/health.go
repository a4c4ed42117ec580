package controllers

import (
	"context"
	"net/http"

	"github.com/Marlon-Urena/userAccountService/api/responses"
	"github.com/Marlon-Urena/userAccountService/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	env  string
	logg *logger.Logger

	dependencies map[string]pinger
}

func NewHealthController(env string, logg *logger.Logger) *HealthController {
	return &HealthController{
		env:          env,
		logg:         logg,
		dependencies: map[string]pinger{},
	}
}

// Register adds a named dependency to the readiness probe. Nil pingers
// are skipped so optional dependencies can be wired conditionally.
func (c *HealthController) Register(name string, dep pinger) {
	if dep == nil {
		return
	}
	c.dependencies[name] = dep
}

func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]string{
		"status": "ok",
		"env":    c.env,
	})
}

func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	statuses := map[string]string{}
	healthy := true

	for name, dep := range c.dependencies {
		if err := dep.Ping(r.Context()); err != nil {
			healthy = false
			statuses[name] = "unreachable"
			if c.logg != nil {
				ctx := c.logg.WithField(r.Context(), "dependency", name)
				c.logg.Error(ctx, "readiness check failed", err)
			}
			continue
		}
		statuses[name] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	responses.WriteSuccessStatus(w, status, map[string]any{
		"healthy":      healthy,
		"dependencies": statuses,
	})
}
