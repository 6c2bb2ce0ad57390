package api

import (
	"github.com/gin-gonic/gin"

	"github.com/cwbudde/tabeq/engine/session"
)

// NewRouter builds the gin engine with all control plane routes mounted.
func NewRouter(mgr *session.Manager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	ctrl := NewSessionController(mgr)

	r.GET("/healthz", ctrl.Healthz)
	r.POST("/reconcile", ctrl.Reconcile)

	r.GET("/sessions", ctrl.ListSessions)
	r.POST("/sessions/:id", ctrl.StartSession)
	r.DELETE("/sessions/:id", ctrl.StopSession)
	r.GET("/sessions/:id/status", ctrl.Status)
	r.PUT("/sessions/:id/gain", ctrl.SetGain)
	r.GET("/sessions/:id/gain", ctrl.GetGain)
	r.PATCH("/sessions/:id/bands", ctrl.UpdateBands)
	r.GET("/sessions/:id/bands", ctrl.GetBands)
	r.GET("/sessions/:id/spectrum", ctrl.Spectrum)

	return r
}
