package http

import (
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *Handler, session httpmw.SessionOpener, wsServer *ws.Server, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WS endpoint: аутентификация по cookie внутри HandleWS
	r.Get("/ws", wsServer.HandleWS)

	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/register", h.Register)
		ar.Post("/login", h.Login)
		ar.Post("/logout", h.Logout)
	})

	// REST-чтение требует валидной сессии
	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware(session, h.cookieName))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/rooms", func(rm chi.Router) {
			rm.Get("/", h.ListRooms)
			rm.Get("/{name}/chat", h.GetChatHistory)
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
