package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Handler wires the credential-store JSON endpoints. Business failures are
// reported as HTTP 200 with success=false; only storage faults produce a 500.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/cadastro", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/verificar-sessao", h.handleVerifySession)
	r.Post("/logout", h.handleLogout)
	r.Get("/stats", h.handleStats)
	r.Get("/status", h.handleStatus)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		h.internalError(w, err)
		return
	}
	result, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password, r.RemoteAddr)
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		h.internalError(w, err)
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password, r.RemoteAddr)
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleVerifySession(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeBody(r, &req); err != nil {
		h.internalError(w, err)
		return
	}
	result, err := h.service.VerifySession(r.Context(), req.Token)
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeBody(r, &req); err != nil {
		h.internalError(w, err)
		return
	}
	result, err := h.service.Logout(r.Context(), req.Token, r.RemoteAddr)
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "online",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// decodeBody parses a JSON request body. An empty body decodes to the zero
// request; some front-end flows post without one.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.logger.Error("request failed", slog.Any("error", err))
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"message": "Erro interno do servidor",
		"error":   err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
