package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/covena/internal/audit/domain"
	"gorm.io/datatypes"
)

func auditRecord(companyID snowflake.ID, action, entityType, entityID string, metadata datatypes.JSONMap) auditdomain.RecordRequest {
	return auditdomain.RecordRequest{
		CompanyID:  companyID,
		Actor:      "api",
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
	}
}

func (s *Server) ListAuditEntries(c *gin.Context) {
	var query struct {
		CompanyID string `form:"company_id"`
		Action    string `form:"action"`
		Limit     int    `form:"limit,default=50"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var companyID snowflake.ID
	if trimmed := strings.TrimSpace(query.CompanyID); trimmed != "" {
		parsed, err := snowflake.ParseString(trimmed)
		if err != nil {
			AbortWithError(c, newValidationError("company_id", "invalid_company", "invalid company id"))
			return
		}
		companyID = parsed
	}

	entries, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListRequest{
		CompanyID: companyID,
		Action:    strings.TrimSpace(query.Action),
		Limit:     query.Limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
