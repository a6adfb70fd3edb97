// Package httpapi exposes the evaluation pipeline and the progression ledger
// over HTTP.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/voxa/internal/logging"
)

// Deps are the collaborators the router serves.
type Deps struct {
	Evaluator Evaluator
	Ledger    LedgerReader
	Profiles  ProfileStore
	DB        Pinger
	Logger    *logging.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(d.Logger))

	health := NewHealthHandler(d.DB)
	sessions := NewSessionHandler(d.Evaluator)
	progress := NewProgressHandler(d.Ledger)
	profiles := NewProfileHandler(d.Profiles)

	r.GET("/healthz", health.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/feedback", sessions.Preview)

		users := v1.Group("/users/:userID")
		users.POST("/sessions", sessions.Submit)
		users.GET("/status", progress.Status)
		users.GET("/history", progress.History)
		users.GET("/progression", progress.Progression)
		users.GET("/profile", profiles.Get)
		users.PUT("/profile", profiles.Update)
	}

	return r
}
