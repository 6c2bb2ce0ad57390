package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/tabeq/dsp/core"
	"github.com/cwbudde/tabeq/engine/capture"
	"github.com/cwbudde/tabeq/engine/host"
	"github.com/cwbudde/tabeq/engine/session"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	coreOpts := []core.ProcessorOption{
		core.WithSampleRate(48000),
		core.WithBlockSize(256),
	}
	grantor := capture.NewSynthGrantor(coreOpts, capture.WithRealtime())

	mgr := session.NewManager(func() (session.AudioHost, error) {
		return host.New(grantor, coreOpts), nil
	}, grantor)
	t.Cleanup(func() { _ = mgr.Close() })

	return NewRouter(mgr)
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed),
		"body: %s", w.Body.String())

	return w, parsed
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["alive"])
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	// Start.
	w, body := doJSON(t, r, http.MethodPost, "/sessions/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])
	assert.NotContains(t, body, "alreadyActive")

	// Second start acknowledges.
	w, body = doJSON(t, r, http.MethodPost, "/sessions/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["alreadyActive"])

	// Status.
	w, body = doJSON(t, r, http.MethodGet, "/sessions/7/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, "active", body["status"])

	// Listed.
	w, body = doJSON(t, r, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"7"}, body["sessions"])

	// Stop.
	w, body = doJSON(t, r, http.MethodDelete, "/sessions/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])

	// Gone.
	w, body = doJSON(t, r, http.MethodGet, "/sessions/7/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["exists"])
}

func TestStopUnknownIs404(t *testing.T) {
	r := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodDelete, "/sessions/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["ok"])
}

func TestGainRoutes(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/sessions/2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Default without a write.
	w, body := doJSON(t, r, http.MethodGet, "/sessions/2/gain", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["value"])

	// Write, including the zero (mute) value.
	w, _ = doJSON(t, r, http.MethodPut, "/sessions/2/gain", map[string]any{"value": 0})
	require.Equal(t, http.StatusOK, w.Code)

	w, body = doJSON(t, r, http.MethodGet, "/sessions/2/gain", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, body["value"])

	// Missing value is a bad request.
	w, _ = doJSON(t, r, http.MethodPut, "/sessions/2/gain", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown session is 404.
	w, _ = doJSON(t, r, http.MethodPut, "/sessions/none/gain", map[string]any{"value": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBandRoutes(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/sessions/3", nil)
	require.Equal(t, http.StatusOK, w.Code)

	patch := map[string]any{
		"gainByIndex": map[string]float64{"5": 12, "8": -40},
		"freqByIndex": map[string]float64{"5": 1000},
	}
	w, _ = doJSON(t, r, http.MethodPatch, "/sessions/3/bands", patch)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, r, http.MethodGet, "/sessions/3/bands", nil)
	require.Equal(t, http.StatusOK, w.Code)

	bands, ok := body["bands"].([]any)
	require.True(t, ok)
	require.Len(t, bands, 13)

	b5 := bands[5].(map[string]any)
	assert.Equal(t, 12.0, b5["gainDb"])
	assert.Equal(t, 1000.0, b5["freqHz"])

	// Out-of-range write arrives clamped.
	b8 := bands[8].(map[string]any)
	assert.Equal(t, -30.0, b8["gainDb"])

	// Untouched band keeps defaults.
	b6 := bands[6].(map[string]any)
	assert.Equal(t, 1280.0, b6["freqHz"])
	assert.Equal(t, 0.0, b6["gainDb"])
}

func TestSpectrumRoute(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/sessions/4", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, r, http.MethodGet, "/sessions/4/spectrum", nil)
	require.Equal(t, http.StatusOK, w.Code)

	binCount, ok := body["binCount"].(float64)
	require.True(t, ok)
	assert.Greater(t, binCount, 0.0)

	// []byte marshals as a base64 string.
	_, ok = body["bins"].(string)
	assert.True(t, ok)

	w, _ = doJSON(t, r, http.MethodGet, "/sessions/none/spectrum", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReconcileRoute(t *testing.T) {
	r := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodPost, "/reconcile", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])
}

func TestBandPatchKeepsShelfQ(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/sessions/7", nil)
	require.Equal(t, http.StatusOK, w.Code)

	patch := map[string]any{
		"gainByIndex": map[string]float64{"2": 5},
		"freqByIndex": map[string]float64{"2": 120},
	}
	w, _ = doJSON(t, r, http.MethodPatch, "/sessions/7/bands", patch)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := doJSON(t, r, http.MethodGet, "/sessions/7/bands", nil)
	require.Equal(t, http.StatusOK, w.Code)

	bands := body["bands"].([]any)
	b2 := bands[2].(map[string]any)
	assert.Equal(t, 5.0, b2["gainDb"])
	assert.Equal(t, 120.0, b2["freqHz"])
	// The low shelf's base Q stays at its default; gain never couples
	// into shelf width.
	assert.Equal(t, 0.75, b2["q"])
}
