package router

import (
	"net/http"

	whiteboardHandler "satupapan/internal/whiteboard"
	"satupapan/internal/whiteboard/service"
	"satupapan/middleware"
	"satupapan/socket"

	"github.com/gorilla/mux"
)

// Setup wires the websocket endpoint and the whiteboard REST API behind JWT auth and CORS.
func Setup(svc *service.WhiteboardService, hub *socket.Hub, jwtSecret, allowOrigins string) http.Handler {
	r := mux.NewRouter()
	auth := middleware.AuthMiddleware(jwtSecret)

	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r, middleware.IdentityFrom(r.Context()))
	})
	r.Handle("/ws", auth(wsHandler)).Methods(http.MethodGet)

	h := whiteboardHandler.NewWhiteboardHandler(svc)
	api := r.PathPrefix("/api/whiteboards").Subrouter()
	api.Use(auth)
	api.HandleFunc("", h.CreateWhiteboard).Methods(http.MethodPost)
	api.HandleFunc("", h.ListWhiteboards).Methods(http.MethodGet)
	api.HandleFunc("/{id}", h.RenameWhiteboard).Methods(http.MethodPatch)
	api.HandleFunc("/{id}", h.DeleteWhiteboard).Methods(http.MethodDelete)
	api.HandleFunc("/{id}/shapes", h.LoadShapes).Methods(http.MethodGet)
	api.HandleFunc("/{id}/shapes", h.SaveShapes).Methods(http.MethodPut)
	api.HandleFunc("/{id}/collaborators", h.AddCollaborator).Methods(http.MethodPost)
	api.HandleFunc("/{id}/presence", h.Presence).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return middleware.CORSMiddleware(allowOrigins)(r)
}
