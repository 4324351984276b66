package handler

import (
	"encoding/json"
	"net/http"

	"github.com/FirasLatrech/Whispr/internal/captcha"
	"github.com/FirasLatrech/Whispr/internal/log"
)

// HTTPHandler serves the side HTTP surface next to the websocket
// endpoint, currently the captcha challenge used by the join flow.
type HTTPHandler struct {
	captcha *captcha.Store
}

func NewHTTPHandler(cs *captcha.Store) *HTTPHandler {
	return &HTTPHandler{captcha: cs}
}

// HandleCaptcha issues a fresh challenge: {id, image}.
func (h *HTTPHandler) HandleCaptcha(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	challenge, err := h.captcha.Create()
	if err != nil {
		l := log.Ctx(r.Context())
		l.Error().Err(err).Msg("failed to create captcha challenge")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(challenge)
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/captcha", h.HandleCaptcha)
}
