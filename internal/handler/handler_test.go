package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/FirasLatrech/Whispr/internal/captcha"
	"github.com/FirasLatrech/Whispr/internal/config"
	"github.com/FirasLatrech/Whispr/internal/domain"
	"github.com/FirasLatrech/Whispr/internal/gate"
	"github.com/FirasLatrech/Whispr/internal/hub"
	"github.com/FirasLatrech/Whispr/internal/room"
	"github.com/FirasLatrech/Whispr/internal/service"
	"github.com/FirasLatrech/Whispr/internal/throttle"
)

func newWSHandler(t *testing.T) (*WSHandler, *gate.Gate) {
	t.Helper()

	ledger, err := room.NewLedger()
	require.NoError(t, err)

	h := hub.NewHub()
	go h.Run()

	g := gate.New()
	svc := service.NewRelayService(h, ledger, throttle.New(), g, captcha.NewStore(), false)

	return NewWSHandler(h, svc, g, config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 1024,
	}), g
}

func TestHandleWebSocketRefusesOverConnectionCap(t *testing.T) {
	wsh, g := newWSHandler(t)

	for i := 0; i < domain.MaxConnectionsPerIP; i++ {
		require.True(t, g.Acquire("203.0.113.7"))
	}

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()

	wsh.HandleWebSocket(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	// The refused attempt must not consume a slot.
	require.Equal(t, domain.MaxConnectionsPerIP, g.Count("203.0.113.7"))
}

func TestHandleWebSocketFailedUpgradeReleasesSlot(t *testing.T) {
	wsh, g := newWSHandler(t)

	// A plain GET without the upgrade headers fails the handshake.
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.8")
	rec := httptest.NewRecorder()

	wsh.HandleWebSocket(rec, req)

	require.Equal(t, 0, g.Count("203.0.113.8"))
}

func TestHandleCaptchaIssuesChallenge(t *testing.T) {
	h := NewHTTPHandler(captcha.NewStore())

	req := httptest.NewRequest(http.MethodGet, "/api/captcha", nil)
	rec := httptest.NewRecorder()

	h.HandleCaptcha(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var challenge captcha.Challenge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &challenge))
	require.NotEmpty(t, challenge.ID)
	require.NotEmpty(t, challenge.Image)
}

func TestHandleCaptchaRejectsNonGet(t *testing.T) {
	h := NewHTTPHandler(captcha.NewStore())

	req := httptest.NewRequest(http.MethodPost, "/api/captcha", nil)
	rec := httptest.NewRecorder()

	h.HandleCaptcha(rec, req)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
