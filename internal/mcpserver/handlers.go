package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/middleware"
)

const maxResultsLimit = 100

// RecommendationsParams defines parameters for get_recommendations
type RecommendationsParams struct {
	UserID            string `json:"user_id" jsonschema:"the account whose medical history is evaluated"`
	IncludeConflicted bool   `json:"include_conflicted,omitempty" jsonschema:"also return products that conflict with the user's conditions"`
	MaxResults        int    `json:"max_results,omitempty" jsonschema:"maximum number of products returned, capped at 100; omit for the default"`
}

// UserParams defines parameters for tools that only need a user
type UserParams struct {
	UserID string `json:"user_id" jsonschema:"the account whose medical history is evaluated"`
}

// ProductSafetyParams defines parameters for check_product_safety
type ProductSafetyParams struct {
	UserID    string `json:"user_id" jsonschema:"the account whose medical history is evaluated"`
	ProductID int    `json:"product_id" jsonschema:"catalog product identifier"`
}

// ConflictsParams defines parameters for get_conflicting_medications
type ConflictsParams struct {
	UserID     string `json:"user_id" jsonschema:"the account whose medical history is evaluated"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of products returned, capped at 100; omit for the default"`
}

// NormalizeParams carries a free-text medical history
type NormalizeParams struct {
	DisplayName                  string `json:"display_name,omitempty"`
	PromptReason                 string `json:"prompt_reason,omitempty"`
	HasChronicConditions         string `json:"has_chronic_conditions,omitempty"`
	TakesMedicationsOrTreatments string `json:"takes_medications_or_treatments,omitempty"`
	CurrentSymptoms              string `json:"current_symptoms,omitempty"`
}

func (s *Server) handleGetRecommendations(ctx context.Context, _ *mcp.CallToolRequest, params RecommendationsParams) (*mcp.CallToolResult, any, error) {
	if err := validateUser(params.UserID); err != nil {
		return s.errorResult("get_recommendations", err), nil, nil
	}

	out, err := s.safety.GetRecommendations(ctx, params.UserID, params.IncludeConflicted, clampMaxResults(params.MaxResults))
	if err != nil {
		return s.errorResult("get_recommendations", err), nil, nil
	}
	return s.jsonResult(out.Payload())
}

func (s *Server) handleGetSafetySummary(ctx context.Context, _ *mcp.CallToolRequest, params UserParams) (*mcp.CallToolResult, any, error) {
	if err := validateUser(params.UserID); err != nil {
		return s.errorResult("get_safety_summary", err), nil, nil
	}

	out, err := s.safety.GetSafetySummary(ctx, params.UserID)
	if err != nil {
		return s.errorResult("get_safety_summary", err), nil, nil
	}
	return s.jsonResult(out.Payload())
}

func (s *Server) handleCheckProductSafety(ctx context.Context, _ *mcp.CallToolRequest, params ProductSafetyParams) (*mcp.CallToolResult, any, error) {
	if err := validateUser(params.UserID); err != nil {
		return s.errorResult("check_product_safety", err), nil, nil
	}
	if params.ProductID <= 0 {
		err := domain.NewValidationError("product_id", "must be a positive integer", params.ProductID)
		return s.errorResult("check_product_safety", err), nil, nil
	}

	out, err := s.safety.CheckProductSafety(ctx, params.UserID, params.ProductID)
	if err != nil {
		return s.errorResult("check_product_safety", err), nil, nil
	}
	return s.jsonResult(out)
}

func (s *Server) handleGetConflictingMedications(ctx context.Context, _ *mcp.CallToolRequest, params ConflictsParams) (*mcp.CallToolResult, any, error) {
	if err := validateUser(params.UserID); err != nil {
		return s.errorResult("get_conflicting_medications", err), nil, nil
	}

	out, err := s.safety.GetConflictingMedications(ctx, params.UserID, clampMaxResults(params.MaxResults))
	if err != nil {
		return s.errorResult("get_conflicting_medications", err), nil, nil
	}
	return s.jsonResult(out.Payload())
}

func (s *Server) handleCheckProfileCompletion(ctx context.Context, _ *mcp.CallToolRequest, params UserParams) (*mcp.CallToolResult, any, error) {
	if err := validateUser(params.UserID); err != nil {
		return s.errorResult("check_profile_completion", err), nil, nil
	}

	out, err := s.safety.CheckProfileCompletion(ctx, params.UserID)
	if err != nil {
		return s.errorResult("check_profile_completion", err), nil, nil
	}
	return s.jsonResult(out)
}

func (s *Server) handleNormalizeProfile(_ context.Context, _ *mcp.CallToolRequest, params NormalizeParams) (*mcp.CallToolResult, any, error) {
	view := s.safety.NormalizeProfile(&domain.MedicalProfile{
		DisplayName:                  params.DisplayName,
		PromptReason:                 params.PromptReason,
		HasChronicConditions:         params.HasChronicConditions,
		TakesMedicationsOrTreatments: params.TakesMedicationsOrTreatments,
		CurrentSymptoms:              params.CurrentSymptoms,
	})
	return s.jsonResult(view)
}

func validateUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.NewValidationError("user_id", "is required", userID)
	}
	return nil
}

// clampMaxResults maps a non-positive limit to 0, the engine default, and
// caps the rest at maxResultsLimit.
func clampMaxResults(n int) int {
	if n <= 0 {
		return 0
	}
	return min(n, maxResultsLimit)
}

// jsonResult renders payload as indented JSON text and also hands it back
// as structured output.
func (s *Server) jsonResult(payload interface{}) (*mcp.CallToolResult, any, error) {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}, payload, nil
}

// errorResult maps facade errors onto a tool-level error. Internal failures
// are logged and reported with a generic message only.
func (s *Server) errorResult(tool string, err error) *mcp.CallToolResult {
	var validationErr *domain.ValidationError
	var message string
	switch {
	case errors.As(err, &validationErr):
		message = fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Message)
	case errors.Is(err, domain.ErrUserNotFound):
		message = "User not found"
	case errors.Is(err, domain.ErrProductNotFound):
		message = "Product not found"
	default:
		s.logger.WithError(err).WithField("tool", tool).Error("Tool execution failed")
		message = middleware.InternalErrorMessage
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}
