// Package mcpserver exposes the medication safety operations as MCP tools
// over stdio, for local assistants that speak the Model Context Protocol.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/pharmassist-medsafety/internal/domain"
)

// Version is reported to MCP clients during initialization.
const Version = "v1.0.0"

// SafetyAPI is the part of the safety facade reachable through MCP tools.
type SafetyAPI interface {
	GetRecommendations(ctx context.Context, userID string, includeConflicted bool, maxResults int) (*domain.Outcome[domain.RecommendationResponse], error)
	GetSafetySummary(ctx context.Context, userID string) (*domain.Outcome[domain.SafetySummaryResponse], error)
	CheckProductSafety(ctx context.Context, userID string, productID int) (*domain.MedicationRecommendation, error)
	GetConflictingMedications(ctx context.Context, userID string, maxResults int) (*domain.Outcome[domain.ConflictingMedicationsResponse], error)
	CheckProfileCompletion(ctx context.Context, userID string) (*domain.ProfileCompletion, error)
	NormalizeProfile(profile *domain.MedicalProfile) *domain.MedicalProfileView
}

// Server wraps an mcp.Server with the registered safety tools.
type Server struct {
	safety    SafetyAPI
	mcpServer *mcp.Server
	logger    *logrus.Logger
	tools     []string
}

// NewServer creates the MCP server and registers every tool.
func NewServer(safety SafetyAPI, logger *logrus.Logger) *Server {
	s := &Server{
		safety: safety,
		logger: logger,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    "pharmassist-medsafety",
			Version: Version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	addTool(s, "get_recommendations",
		"Rank catalog products for a user by medication safety and effectiveness against their chronic conditions.",
		s.handleGetRecommendations)
	addTool(s, "get_safety_summary",
		"Summarize how many catalog products are safe or conflicting for a user, with the top safe pick.",
		s.handleGetSafetySummary)
	addTool(s, "check_product_safety",
		"Evaluate a single catalog product against a user's chronic conditions.",
		s.handleCheckProductSafety)
	addTool(s, "get_conflicting_medications",
		"List the catalog products that conflict with a user's chronic conditions.",
		s.handleGetConflictingMedications)
	addTool(s, "check_profile_completion",
		"Report whether a user's medical history is complete enough for recommendations.",
		s.handleCheckProfileCompletion)
	addTool(s, "normalize_profile",
		"Detect canonical chronic condition tags in free-text medical history without reading any store.",
		s.handleNormalizeProfile)

	s.logger.WithField("tool_count", len(s.tools)).Info("Registered MCP tools")
}

func addTool[In any](s *Server, name, description string, handler mcp.ToolHandlerFor[In, any]) {
	mcp.AddTool(s.mcpServer, &mcp.Tool{Name: name, Description: description}, handler)
	s.tools = append(s.tools, name)
	s.logger.WithField("tool_name", name).Debug("Registered MCP tool")
}

// Tools returns the registered tool names in registration order.
func (s *Server) Tools() []string {
	out := make([]string, len(s.tools))
	copy(out, s.tools)
	return out
}

// Start serves MCP over stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting PharmAssist MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
