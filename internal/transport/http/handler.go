package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/security"
	"github.com/cwrk-planet/chat-service/internal/service"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	authSvc *service.AuthService
	dirSvc  *service.DirectoryService
	msgSvc  *service.MessageService

	cookieName string
}

func NewHandler(auth *service.AuthService, dir *service.DirectoryService, msg *service.MessageService, cookieName string) *Handler {
	return &Handler{
		authSvc:    auth,
		dirSvc:     dir,
		msgSvc:     msg,
		cookieName: cookieName,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	u, err := h.authSvc.Register(r.Context(), req.Username, req.Password, req.Avatar)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: "username taken"})
		case errors.Is(err, domain.ErrEmptyInput), errors.Is(err, security.ErrPasswordTooShort):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			slog.Error("handler.Register:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, UserResponse{ID: int64(u.ID), Username: u.Username, Avatar: u.Avatar})
}

// POST /auth/login — ставит cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	u, token, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		slog.Error("handler.Login:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.authSvc.SessionTTL()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, UserResponse{ID: int64(u.ID), Username: u.Username, Avatar: u.Avatar})
}

// POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if ck, err := r.Cookie(h.cookieName); err == nil {
		if err := h.authSvc.Logout(r.Context(), ck.Value); err != nil {
			slog.Debug("handler.Logout:", slog.Any("err", err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// GET /rooms — список по имени; пустой справочник порождает lobby.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	user := httpmw.UserFromCtx(r.Context())
	rooms, err := h.dirSvc.EnsureNonEmpty(r.Context(), user.Username)
	if err != nil {
		slog.Error("handler.ListRooms:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal"})
		return
	}

	resp := RoomsListResponse{Items: make([]RoomItem, 0, len(rooms))}
	for _, rm := range rooms {
		resp.Items = append(resp.Items, RoomItem{
			Name:      rm.Name,
			CreatedBy: rm.CreatedBy,
			CreatedAt: rm.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /rooms/{name}/chat?after=&limit=
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "name")
	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, next, err := h.msgSvc.HistoryPage(r.Context(), room, after, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetChatHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal"})
		return
	}

	resp := ChatHistoryResponse{Items: make([]ChatMessageItem, 0, len(items)), NextCursor: next}
	for _, m := range items {
		seen := m.SeenBy
		if seen == nil {
			seen = []string{}
		}
		resp.Items = append(resp.Items, ChatMessageItem{
			ID:        m.ID,
			Room:      m.Room,
			Author:    m.Author,
			Avatar:    m.Avatar,
			Text:      m.Text,
			CreatedAt: m.CreatedAt.Truncate(time.Millisecond),
			SeenBy:    seen,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
