package api

import (
	"github.com/gin-gonic/gin"

	"github.com/cwbudde/tabeq/engine"
	"github.com/cwbudde/tabeq/engine/session"
	"github.com/cwbudde/tabeq/eq"
)

// SessionController handles the session routes over the control plane
// manager.
type SessionController struct {
	mgr *session.Manager
}

// NewSessionController creates a controller over the manager.
func NewSessionController(mgr *session.Manager) *SessionController {
	return &SessionController{mgr: mgr}
}

func sourceID(c *gin.Context) engine.SourceID {
	return engine.SourceID(c.Param("id"))
}

// Healthz is the liveness probe.
func (ctrl *SessionController) Healthz(c *gin.Context) {
	respondOK(c, gin.H{"alive": ctrl.mgr.Ping()})
}

// ListSessions returns the ids of all active sessions.
func (ctrl *SessionController) ListSessions(c *gin.Context) {
	respondOK(c, gin.H{"sessions": ctrl.mgr.ListActiveSessions()})
}

// StartSession starts equalizing the source. Starting a live or
// in-flight session acknowledges with a flag instead of failing.
func (ctrl *SessionController) StartSession(c *gin.Context) {
	res, err := ctrl.mgr.StartSession(c.Request.Context(), sourceID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	payload := gin.H{}
	if res.AlreadyActive {
		payload["alreadyActive"] = true
	}
	if res.AlreadyStarting {
		payload["alreadyStarting"] = true
	}

	respondOK(c, payload)
}

// StopSession tears the session down.
func (ctrl *SessionController) StopSession(c *gin.Context) {
	if err := ctrl.mgr.StopSession(c.Request.Context(), sourceID(c)); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{})
}

// Status reports the session's lifecycle state.
func (ctrl *SessionController) Status(c *gin.Context) {
	status, ok := ctrl.mgr.QueryStatus(sourceID(c))
	if !ok {
		respondOK(c, gin.H{"exists": false})
		return
	}

	respondOK(c, gin.H{"exists": true, "status": status.String()})
}

// SetGain writes the session's master gain.
func (ctrl *SessionController) SetGain(c *gin.Context) {
	// Pointer binding: zero (mute) is a legal value, only absence is an
	// error.
	var req struct {
		Value *float64 `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := ctrl.mgr.SetMasterGain(sourceID(c), *req.Value); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{})
}

// GetGain reads the session's master gain; 1.0 when no session exists.
func (ctrl *SessionController) GetGain(c *gin.Context) {
	respondOK(c, gin.H{"value": ctrl.mgr.GetMasterGain(sourceID(c))})
}

// UpdateBands merges a sparse band parameter update, keyed by band index.
func (ctrl *SessionController) UpdateBands(c *gin.Context) {
	var req struct {
		GainByIndex map[int]float64 `json:"gainByIndex"`
		FreqByIndex map[int]float64 `json:"freqByIndex"`
		QByIndex    map[int]float64 `json:"qByIndex"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	update := eq.Update{
		GainDB: req.GainByIndex,
		FreqHz: req.FreqByIndex,
		Q:      req.QByIndex,
	}

	if err := ctrl.mgr.UpdateBands(c.Request.Context(), sourceID(c), update); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{})
}

type bandView struct {
	Index  int     `json:"index"`
	FreqHz float64 `json:"freqHz"`
	GainDB float64 `json:"gainDb"`
	Q      float64 `json:"q"`
}

// GetBands returns all 13 bands' parameters.
func (ctrl *SessionController) GetBands(c *gin.Context) {
	bank, err := ctrl.mgr.Bands(sourceID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]bandView, eq.BandCount)
	for i, b := range bank.Bands() {
		views[i] = bandView{Index: i, FreqHz: b.FreqHz, GainDB: b.GainDB, Q: b.BaseQ}
	}

	respondOK(c, gin.H{"bands": views})
}

// Spectrum returns the current spectrum snapshot. Bins arrive base64
// encoded (the JSON encoding of a byte slice).
func (ctrl *SessionController) Spectrum(c *gin.Context) {
	spec, err := ctrl.mgr.Spectrum(sourceID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"bins": spec.Bins, "binCount": spec.BinCount})
}

// Reconcile triggers a global registry-vs-host repair pass.
func (ctrl *SessionController) Reconcile(c *gin.Context) {
	if err := ctrl.mgr.Reconcile(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{})
}
