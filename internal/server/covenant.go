package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	covenantdomain "github.com/smallbiznis/covena/internal/covenant/domain"
	"github.com/smallbiznis/covena/pkg/db/pagination"
	"gorm.io/datatypes"
)

type covenantConfigRequest struct {
	CompanyID      string   `json:"company_id"`
	Name           string   `json:"name"`
	CovenantType   string   `json:"covenant_type"`
	IsActive       *bool    `json:"is_active"`
	ThresholdValue *float64 `json:"threshold_value"`
	MinimumValue   *float64 `json:"minimum_value"`
	MaximumValue   *float64 `json:"maximum_value"`
	Requirements   []string `json:"requirements"`
	Restrictions   []string `json:"restrictions"`
	BasketLimit    *float64 `json:"basket_limit"`
}

func (s *Server) CreateCovenantConfig(c *gin.Context) {
	var req covenantConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.covenantSvc.Create(c.Request.Context(), covenantdomain.CreateCovenantConfigRequest{
		CompanyID:      strings.TrimSpace(req.CompanyID),
		Name:           strings.TrimSpace(req.Name),
		CovenantType:   covenantdomain.CovenantType(strings.TrimSpace(req.CovenantType)),
		IsActive:       req.IsActive,
		ThresholdValue: req.ThresholdValue,
		MinimumValue:   req.MinimumValue,
		MaximumValue:   req.MaximumValue,
		Requirements:   req.Requirements,
		Restrictions:   req.Restrictions,
		BasketLimit:    req.BasketLimit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditRecord(resp.CompanyID, "covenant.create", "covenant_config", resp.ID.String(), datatypes.JSONMap{
		"name":          resp.Name,
		"covenant_type": string(resp.CovenantType),
	}))

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCovenantConfigRequest struct {
	Name           *string  `json:"name"`
	IsActive       *bool    `json:"is_active"`
	ThresholdValue *float64 `json:"threshold_value"`
	MinimumValue   *float64 `json:"minimum_value"`
	MaximumValue   *float64 `json:"maximum_value"`
	Requirements   *[]string `json:"requirements"`
	Restrictions   *[]string `json:"restrictions"`
	BasketLimit    *float64 `json:"basket_limit"`
}

func (s *Server) UpdateCovenantConfig(c *gin.Context) {
	var req updateCovenantConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.covenantSvc.Update(c.Request.Context(), covenantdomain.UpdateCovenantConfigRequest{
		ID:             strings.TrimSpace(c.Param("id")),
		Name:           req.Name,
		IsActive:       req.IsActive,
		ThresholdValue: req.ThresholdValue,
		MinimumValue:   req.MinimumValue,
		MaximumValue:   req.MaximumValue,
		Requirements:   req.Requirements,
		Restrictions:   req.Restrictions,
		BasketLimit:    req.BasketLimit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditRecord(resp.CompanyID, "covenant.update", "covenant_config", resp.ID.String(), nil))

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCovenantConfigByID(c *gin.Context) {
	resp, err := s.covenantSvc.GetByID(c.Request.Context(), covenantdomain.GetCovenantConfigRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCovenantConfigs(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CompanyID  string `form:"company_id"`
		ActiveOnly string `form:"active_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	activeOnly, err := parseOptionalBool(query.ActiveOnly)
	if err != nil {
		AbortWithError(c, newValidationError("active_only", "invalid_active_only", "invalid active_only"))
		return
	}

	resp, err := s.covenantSvc.List(c.Request.Context(), covenantdomain.ListCovenantConfigRequest{
		CompanyID:  strings.TrimSpace(query.CompanyID),
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		ActiveOnly: activeOnly != nil && *activeOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ValidateCovenantConfig checks a config without persisting it.
func (s *Server) ValidateCovenantConfig(c *gin.Context) {
	var req covenantConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var companyID snowflake.ID
	if trimmed := strings.TrimSpace(req.CompanyID); trimmed != "" {
		companyID, _ = snowflake.ParseString(trimmed)
	}

	result := s.covenantSvc.Validate(c.Request.Context(), covenantdomain.CovenantConfig{
		CompanyID:      companyID,
		Name:           strings.TrimSpace(req.Name),
		CovenantType:   covenantdomain.CovenantType(strings.TrimSpace(req.CovenantType)),
		ThresholdValue: req.ThresholdValue,
		MinimumValue:   req.MinimumValue,
		MaximumValue:   req.MaximumValue,
		Requirements:   datatypes.JSONSlice[string](req.Requirements),
		Restrictions:   datatypes.JSONSlice[string](req.Restrictions),
		BasketLimit:    req.BasketLimit,
	})

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func isCovenantValidationError(err error) bool {
	switch err {
	case covenantdomain.ErrInvalidCompany,
		covenantdomain.ErrInvalidName,
		covenantdomain.ErrInvalidID,
		covenantdomain.ErrInvalidConfig,
		covenantdomain.ErrUnknownType,
		covenantdomain.ErrConfigImmutable:
		return true
	default:
		return false
	}
}
