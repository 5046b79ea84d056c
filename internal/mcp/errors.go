package mcp

import (
	"errors"
	"fmt"

	"github.com/ganot/forge-registry/internal/domain/project"
	"github.com/ganot/forge-registry/internal/identity"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors become
// INTERNAL without leaking their text.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var leaderErr *project.LeaderActiveError
	if errors.As(err, &leaderErr) {
		return &APIError{
			Code:    "LEADER_ACTIVE",
			Message: leaderErr.Error(),
			Details: map[string]any{
				"days_inactive": leaderErr.DaysInactive,
				"required_days": leaderErr.RequiredDays,
			},
			RecoveryHint: "Ask the current leader to transfer leadership",
		}
	}
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Check the ID with list_projects"}
	case errors.Is(err, project.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Fix the arguments and retry"}
	case errors.Is(err, project.ErrAlreadyClaimed):
		return &APIError{Code: "ALREADY_CLAIMED", Message: "work is claimed by another account", RecoveryHint: "Pick another project or wait for release"}
	case errors.Is(err, project.ErrNotClaimHolder):
		return &APIError{Code: "NOT_CLAIM_HOLDER", Message: "work claim held by another account"}
	case errors.Is(err, project.ErrNotLeader):
		return &APIError{Code: "NOT_LEADER", Message: "only the project leader can do this"}
	case errors.Is(err, project.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: "registry modified concurrently", RecoveryHint: "retry the request"}
	case errors.Is(err, identity.ErrUnauthenticated):
		return &APIError{Code: "UNAUTHORIZED", Message: "credential rejected", RecoveryHint: "Sign in again"}
	default:
		return &APIError{Code: "INTERNAL", Message: "internal error"}
	}
}
