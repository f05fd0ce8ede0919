// internal/safety/service.go

package safety

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tpg-connect/connect-backend/internal/directory"
)

var (
	ErrCannotBlockSelf    = errors.New("cannot block yourself")
	ErrCannotReportSelf   = errors.New("cannot report yourself")
	ErrNotBlocked         = errors.New("user is not blocked")
	ErrRuleNotFound       = errors.New("safety rule not found")
	ErrAlreadyReported    = errors.New("user already reported today")
	ErrInvalidRuleType    = errors.New("invalid rule type")
	ErrEmptyRulePattern   = errors.New("rule pattern cannot be empty")
)

// reportReviewThreshold is the number of reports within reportReviewWindow
// after which a user is flagged for moderation review.
const (
	reportReviewThreshold = 5
	reportReviewWindow    = 7 * 24 * time.Hour
)

type Service interface {
	// Direct blocks
	BlockUser(ctx context.Context, userID, targetUserID, reason string) error
	UnblockUser(ctx context.Context, userID, targetUserID string) error
	GetBlockedUsers(ctx context.Context, userID string) ([]*BlockedUser, error)

	// Reports
	ReportUser(ctx context.Context, reporterID, targetUserID, reason, details string) (*UserReport, error)

	// Pattern rules
	CreateRule(ctx context.Context, userID string, rule *BlockRule) (*BlockRule, error)
	UpdateRule(ctx context.Context, userID string, rule *BlockRule) (*BlockRule, error)
	DeleteRule(ctx context.Context, userID, ruleID string) error
	GetRules(ctx context.Context, userID string) ([]*BlockRule, error)

	// Filtering (consulted at pool generation AND at match creation)
	GetBlockSet(ctx context.Context, userID string) (*BlockSet, error)
	IsExcluded(ctx context.Context, blockSet *BlockSet, candidate *directory.ProfileSummary) bool
	IsBlockedEitherWay(ctx context.Context, user1ID, user2ID string) (bool, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) BlockUser(ctx context.Context, userID, targetUserID, reason string) error {
	if userID == targetUserID {
		return ErrCannotBlockSelf
	}

	block := &BlockedUser{
		ID:            uuid.NewString(),
		UserID:        userID,
		BlockedUserID: targetUserID,
		Reason:        reason,
	}

	if err := s.repo.UpsertBlock(ctx, block); err != nil {
		return err
	}

	RecordBlock()
	return nil
}

func (s *service) UnblockUser(ctx context.Context, userID, targetUserID string) error {
	removed, err := s.repo.RemoveBlock(ctx, userID, targetUserID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotBlocked
	}
	return nil
}

func (s *service) GetBlockedUsers(ctx context.Context, userID string) ([]*BlockedUser, error) {
	return s.repo.GetActiveBlocks(ctx, userID)
}

func (s *service) ReportUser(ctx context.Context, reporterID, targetUserID, reason, details string) (*UserReport, error) {
	if reporterID == targetUserID {
		return nil, ErrCannotReportSelf
	}

	// One report per target per day
	todayCount, err := s.repo.CountReportsToday(ctx, reporterID, targetUserID)
	if err != nil {
		return nil, err
	}
	if todayCount > 0 {
		return nil, ErrAlreadyReported
	}

	report := &UserReport{
		ID:         uuid.NewString(),
		ReporterID: reporterID,
		ReportedID: targetUserID,
		Reason:     reason,
		Details:    details,
	}

	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	RecordReport(reason)

	// Heavily reported users get flagged for moderation
	recentCount, err := s.repo.CountRecentReports(ctx, targetUserID, time.Now().Add(-reportReviewWindow))
	if err == nil && recentCount >= reportReviewThreshold {
		RecordReviewFlag()
	}

	return report, nil
}

func (s *service) CreateRule(ctx context.Context, userID string, rule *BlockRule) (*BlockRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	rule.ID = uuid.NewString()
	rule.UserID = userID

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

func (s *service) UpdateRule(ctx context.Context, userID string, rule *BlockRule) (*BlockRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	rule.UserID = userID

	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

func (s *service) DeleteRule(ctx context.Context, userID, ruleID string) error {
	deleted, err := s.repo.DeleteRule(ctx, userID, ruleID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrRuleNotFound
	}
	return nil
}

func (s *service) GetRules(ctx context.Context, userID string) ([]*BlockRule, error) {
	return s.repo.GetRules(ctx, userID)
}

func (s *service) GetBlockSet(ctx context.Context, userID string) (*BlockSet, error) {
	blockedIDs, err := s.repo.GetBlockedIDsBothDirections(ctx, userID)
	if err != nil {
		return nil, err
	}

	rules, err := s.repo.GetEnabledRules(ctx, userID)
	if err != nil {
		return nil, err
	}

	direct := make(map[string]struct{}, len(blockedIDs))
	for _, id := range blockedIDs {
		direct[id] = struct{}{}
	}

	return &BlockSet{DirectBlockIDs: direct, Rules: rules}, nil
}

// IsExcluded reports whether the candidate is excluded for the block set's
// owner, either by a direct block or by a matching pattern rule.
func (s *service) IsExcluded(ctx context.Context, blockSet *BlockSet, candidate *directory.ProfileSummary) bool {
	if blockSet.Contains(candidate.UserID) {
		return true
	}

	for _, rule := range blockSet.Rules {
		if RuleMatches(rule, candidate) {
			// Match counts are advisory, failures here never block filtering
			_ = s.repo.IncrementRuleMatchCount(ctx, rule.ID)
			return true
		}
	}

	return false
}

func (s *service) IsBlockedEitherWay(ctx context.Context, user1ID, user2ID string) (bool, error) {
	return s.repo.IsBlockedEitherWay(ctx, user1ID, user2ID)
}

// RuleMatches reports whether a single rule matches the candidate profile.
// Disabled rules never match.
func RuleMatches(rule *BlockRule, candidate *directory.ProfileSummary) bool {
	if !rule.Enabled {
		return false
	}

	var fields []string
	switch rule.RuleType {
	case RuleTypeName:
		fields = []string{candidate.Name}
	case RuleTypeLocation:
		fields = []string{candidate.Location}
	case RuleTypeEmail:
		fields = []string{candidate.Email}
	case RuleTypeCompany:
		fields = []string{candidate.Company}
	case RuleTypeUniversity:
		fields = []string{candidate.University}
	case RuleTypeKeyword:
		fields = append([]string{candidate.Bio}, candidate.Interests...)
	default:
		return false
	}

	pattern := rule.Pattern
	for _, field := range fields {
		if field == "" {
			continue
		}
		if rule.CaseSensitive {
			if strings.Contains(field, pattern) {
				return true
			}
		} else {
			if strings.Contains(strings.ToLower(field), strings.ToLower(pattern)) {
				return true
			}
		}
	}

	return false
}

func validateRule(rule *BlockRule) error {
	switch rule.RuleType {
	case RuleTypeName, RuleTypeLocation, RuleTypeEmail, RuleTypeKeyword, RuleTypeCompany, RuleTypeUniversity:
	default:
		return ErrInvalidRuleType
	}

	if strings.TrimSpace(rule.Pattern) == "" {
		return ErrEmptyRulePattern
	}

	return nil
}
