package safety

import (
	"github.com/gorilla/mux"

	"github.com/tpg-connect/connect-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/safety").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Direct blocks
	api.HandleFunc("/blocks", handler.BlockUser).Methods("POST")
	api.HandleFunc("/blocks", handler.GetBlockedUsers).Methods("GET")
	api.HandleFunc("/blocks/{userId}", handler.UnblockUser).Methods("DELETE")

	// Reports
	api.HandleFunc("/reports", handler.ReportUser).Methods("POST")

	// Pattern rules
	api.HandleFunc("/rules", handler.GetRules).Methods("GET")
	api.HandleFunc("/rules", handler.CreateRule).Methods("POST")
	api.HandleFunc("/rules/{id}", handler.UpdateRule).Methods("PUT")
	api.HandleFunc("/rules/{id}", handler.DeleteRule).Methods("DELETE")
}
