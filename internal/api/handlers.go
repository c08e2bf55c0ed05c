package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pharmassist-medsafety/internal/audit"
	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/middleware"
)

const maxResultsCeiling = 100

func (s *Server) handleGetRecommendations(c *gin.Context) {
	s.serveRecommendations(c, s.safety.GetRecommendations)
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.serveRecommendations(c, s.safety.RefreshRecommendations)
}

type recommendationsFunc func(ctx context.Context, userID string, includeConflicted bool, maxResults int) (*domain.Outcome[domain.RecommendationResponse], error)

func (s *Server) serveRecommendations(c *gin.Context, fetch recommendationsFunc) {
	includeConflicted, err := boolQuery(c, "includeConflicted")
	if err != nil {
		s.respondError(c, err)
		return
	}
	maxResults := maxResultsQuery(c)

	out, err := fetch(c.Request.Context(), s.userID(c), includeConflicted, maxResults)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if out.IsComplete() {
		resp := *out.Result
		resp.Recommendations = s.withPictureURLs(resp.Recommendations)
		c.JSON(http.StatusOK, &resp)
		return
	}
	c.JSON(http.StatusOK, out.Payload())
}

func (s *Server) handleGetSafetySummary(c *gin.Context) {
	out, err := s.safety.GetSafetySummary(c.Request.Context(), s.userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if out.IsComplete() {
		resp := *out.Result
		if resp.TopRecommendation != nil {
			top := s.withPictureURL(*resp.TopRecommendation)
			resp.TopRecommendation = &top
		}
		c.JSON(http.StatusOK, &resp)
		return
	}
	c.JSON(http.StatusOK, out.Payload())
}

func (s *Server) handleCheckProductSafety(c *gin.Context) {
	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil || productID <= 0 {
		s.respondError(c, domain.NewValidationError("productId", "productId must be a positive integer", c.Param("productId")))
		return
	}

	rec, err := s.safety.CheckProductSafety(c.Request.Context(), s.userID(c), productID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	out := s.withPictureURL(*rec)
	c.JSON(http.StatusOK, &out)
}

func (s *Server) handleGetConflicts(c *gin.Context) {
	maxResults := maxResultsQuery(c)

	out, err := s.safety.GetConflictingMedications(c.Request.Context(), s.userID(c), maxResults)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if out.IsComplete() {
		resp := *out.Result
		resp.ConflictingMedications = s.withPictureURLs(resp.ConflictingMedications)
		c.JSON(http.StatusOK, &resp)
		return
	}
	c.JSON(http.StatusOK, out.Payload())
}

func (s *Server) handleGetProfile(c *gin.Context) {
	view, err := s.safety.GetMedicalProfile(c.Request.Context(), s.userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleProfileCompletion(c *gin.Context) {
	completion, err := s.safety.CheckProfileCompletion(c.Request.Context(), s.userID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, completion)
}

// handleHistory lists the caller's own evaluation audit entries.
func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		middleware.Abort(c, http.StatusNotFound, domain.CodeInvalidInput, "Evaluation history is not enabled")
		return
	}
	limit, err := intQuery(c, "limit", 1, 500)
	if err != nil {
		s.respondError(c, err)
		return
	}

	entries, err := s.history.History(c.Request.Context(), s.userID(c), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

func (s *Server) userID(c *gin.Context) string {
	return middleware.UserIDFromContext(c.Request.Context())
}

// withPictureURL resolves a stored picture path against the public API base.
func (s *Server) withPictureURL(rec domain.MedicationRecommendation) domain.MedicationRecommendation {
	rec.ProductPictureURL = ResolvePictureURL(s.pictureBase, rec.ProductPictureURL)
	return rec
}

func (s *Server) withPictureURLs(recs []domain.MedicationRecommendation) []domain.MedicationRecommendation {
	out := make([]domain.MedicationRecommendation, len(recs))
	for i := range recs {
		out[i] = s.withPictureURL(recs[i])
	}
	return out
}

// ResolvePictureURL prefixes a relative picture path with base. Empty paths
// stay empty and absolute URLs are returned unchanged.
func ResolvePictureURL(base, picture string) string {
	if picture == "" || base == "" {
		return picture
	}
	if strings.HasPrefix(picture, "http://") || strings.HasPrefix(picture, "https://") {
		return picture
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(picture, "/")
}

func boolQuery(c *gin.Context, name string) (bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.NewValidationError(name, name+" must be true or false", raw)
	}
	return v, nil
}

// maxResultsQuery reads the optional result limit. Anything that is not a
// positive integer yields 0, which the engine replaces with its default;
// larger values are clamped to maxResultsCeiling.
func maxResultsQuery(c *gin.Context) int {
	v, err := strconv.Atoi(c.Query("maxResults"))
	if err != nil || v <= 0 {
		return 0
	}
	return min(v, maxResultsCeiling)
}

// intQuery parses an optional integer parameter. Absent means 0, which the
// engine replaces with its default.
func intQuery(c *gin.Context, name string, lo, hi int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, domain.NewValidationError(name,
			name+" must be an integer between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi), raw)
	}
	return v, nil
}
