package matchpool

import (
	"github.com/gorilla/mux"

	"github.com/tpg-connect/connect-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/discovery").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/pools/generate", handler.GeneratePool).Methods("POST")
	api.HandleFunc("/matches/next", handler.GetNextMatches).Methods("GET")
	api.HandleFunc("/matches/status", handler.GetStatus).Methods("GET")
	api.HandleFunc("/matches/countdown", handler.GetCountdown).Methods("GET")
	api.HandleFunc("/pools/history", handler.GetHistory).Methods("GET")
}
