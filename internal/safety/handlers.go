package safety

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tpg-connect/connect-backend/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) BlockUser(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var dto BlockUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.BlockUser(r.Context(), userID, dto.TargetUserID, dto.Reason); err != nil {
		if errors.Is(err, ErrCannotBlockSelf) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to block user")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "User blocked")
}

func (h *Handler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	targetUserID := mux.Vars(r)["userId"]

	if err := h.service.UnblockUser(r.Context(), userID, targetUserID); err != nil {
		if errors.Is(err, ErrNotBlocked) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to unblock user")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "User unblocked")
}

func (h *Handler) GetBlockedUsers(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	blocks, err := h.service.GetBlockedUsers(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get blocked users")
		return
	}

	utils.RespondWithData(w, http.StatusOK, blocks)
}

func (h *Handler) ReportUser(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var dto ReportUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.ReportUser(r.Context(), userID, dto.TargetUserID, dto.Reason, dto.Details)
	if err != nil {
		switch {
		case errors.Is(err, ErrCannotReportSelf):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrAlreadyReported):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to report user")
		}
		return
	}

	utils.RespondWithData(w, http.StatusCreated, report)
}

func (h *Handler) GetRules(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	rules, err := h.service.GetRules(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get safety rules")
		return
	}

	utils.RespondWithData(w, http.StatusOK, rules)
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var dto BlockRuleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.service.CreateRule(r.Context(), userID, ruleFromDTO(&dto))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create safety rule")
		return
	}

	utils.RespondWithData(w, http.StatusCreated, rule)
}

func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	ruleID := mux.Vars(r)["id"]

	var dto BlockRuleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule := ruleFromDTO(&dto)
	rule.ID = ruleID

	updated, err := h.service.UpdateRule(r.Context(), userID, rule)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update safety rule")
		return
	}

	utils.RespondWithData(w, http.StatusOK, updated)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	ruleID := mux.Vars(r)["id"]

	if err := h.service.DeleteRule(r.Context(), userID, ruleID); err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete safety rule")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Safety rule deleted")
}

func ruleFromDTO(dto *BlockRuleDTO) *BlockRule {
	return &BlockRule{
		RuleType:      dto.RuleType,
		Pattern:       dto.Pattern,
		CaseSensitive: dto.CaseSensitive,
		Enabled:       dto.Enabled,
		Description:   dto.Description,
	}
}
