package actions

import (
	"github.com/gorilla/mux"

	"github.com/tpg-connect/connect-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/actions").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/batch", handler.SubmitBatch).Methods("POST")
	api.HandleFunc("/sync", handler.Sync).Methods("POST")
}
