package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	covenantdomain "github.com/smallbiznis/covena/internal/covenant/domain"
	resultdomain "github.com/smallbiznis/covena/internal/testresult/domain"
)

func (s *Server) companyIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError("id", "invalid_company", "invalid company id"))
		return 0, false
	}
	return id, true
}

// EvaluateCompany runs an on-demand compliance pass for one company and
// returns the results it produced.
func (s *Server) EvaluateCompany(c *gin.Context) {
	companyID, ok := s.companyIDParam(c)
	if !ok {
		return
	}

	started := s.clock.Now()
	if err := s.scheduler.EvaluateCompany(c.Request.Context(), companyID); err != nil {
		AbortWithError(c, err)
		return
	}

	results, err := s.resultRepo.ListByCompany(c.Request.Context(), s.db, companyID, started)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"results": results,
		"score":   s.engineSvc.ComplianceScore(results),
	}})
}

func (s *Server) ListTestResults(c *gin.Context) {
	companyID, ok := s.companyIDParam(c)
	if !ok {
		return
	}

	var query struct {
		Since string `form:"since"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	since, err := parseOptionalTime(query.Since, false)
	if err != nil {
		AbortWithError(c, newValidationError("since", "invalid_since", "invalid since"))
		return
	}
	var from time.Time
	if since != nil {
		from = *since
	}

	results, err := s.resultRepo.ListByCompany(c.Request.Context(), s.db, companyID, from)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}

// GetComplianceScore scores the company's current standing: the most
// recent result of each active covenant.
func (s *Server) GetComplianceScore(c *gin.Context) {
	companyID, ok := s.companyIDParam(c)
	if !ok {
		return
	}

	configs, err := s.covenantSvc.List(c.Request.Context(), covenantdomain.ListCovenantConfigRequest{
		CompanyID:  companyID.String(),
		PageSize:   250,
		ActiveOnly: true,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	configIDs := make([]snowflake.ID, 0, len(configs.Configs))
	for _, cfg := range configs.Configs {
		configIDs = append(configIDs, cfg.ID)
	}

	latest, err := s.resultRepo.LatestPerConfig(c.Request.Context(), s.db, configIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	results := make([]resultdomain.CovenantTestResult, 0, len(latest))
	for _, result := range latest {
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"company_id": companyID.String(),
		"score":      s.engineSvc.ComplianceScore(results),
		"covenants":  len(configIDs),
		"tested":     len(results),
	}})
}
