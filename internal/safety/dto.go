// internal/safety/dto.go
package safety

// DTOs for API requests/responses

type BlockUserDTO struct {
	TargetUserID string `json:"target_user_id" validate:"required"`
	Reason       string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type ReportUserDTO struct {
	TargetUserID string `json:"target_user_id" validate:"required"`
	Reason       string `json:"reason" validate:"required,oneof=INAPPROPRIATE_CONTENT HARASSMENT FAKE_PROFILE SPAM UNDERAGE OTHER"`
	Details      string `json:"details,omitempty" validate:"omitempty,max=500"`
}

type BlockRuleDTO struct {
	RuleType      string `json:"rule_type" validate:"required,oneof=NAME LOCATION EMAIL KEYWORD COMPANY UNIVERSITY"`
	Pattern       string `json:"pattern" validate:"required,min=2,max=100"`
	CaseSensitive bool   `json:"case_sensitive"`
	Enabled       bool   `json:"enabled"`
	Description   string `json:"description,omitempty" validate:"omitempty,max=200"`
}
