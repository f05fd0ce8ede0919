package actions

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tpg-connect/connect-backend/internal/common/utils"
)

type Handler struct {
	processor  Processor
	reconciler Reconciler
}

func NewHandler(processor Processor, reconciler Reconciler) *Handler {
	return &Handler{processor: processor, reconciler: reconciler}
}

func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var batch BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if batch.Size() == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Batch contains no actions")
		return
	}
	if err := utils.ValidateStruct(batch); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.processor.SubmitBatch(r.Context(), userID, &batch)
	if err != nil {
		if errors.Is(err, ErrBatchTooLarge) {
			utils.RespondWithError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to process batch")
		return
	}

	utils.RespondWithData(w, http.StatusOK, resp)
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.reconciler.Sync(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, ErrBatchTooLarge) {
			utils.RespondWithError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to sync")
		return
	}

	utils.RespondWithData(w, http.StatusOK, resp)
}
