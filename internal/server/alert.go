package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	alertdomain "github.com/smallbiznis/covena/internal/alert/domain"
	"github.com/smallbiznis/covena/pkg/db/pagination"
	"gorm.io/datatypes"
)

func (s *Server) ListAlerts(c *gin.Context) {
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

	resp, err := s.alertSvc.List(c.Request.Context(), alertdomain.ListAlertRequest{
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

type acknowledgeAlertRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) AcknowledgeAlert(c *gin.Context) {
	var req acknowledgeAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.alertSvc.Acknowledge(c.Request.Context(), alertdomain.AcknowledgeRequest{
		AlertID: strings.TrimSpace(c.Param("id")),
		UserID:  strings.TrimSpace(req.UserID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditRecord(resp.CompanyID, "alert.acknowledge", "alert", resp.ID, datatypes.JSONMap{
		"user_id": req.UserID,
	}))

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResolveAlert(c *gin.Context) {
	resp, err := s.alertSvc.Resolve(c.Request.Context(), alertdomain.ResolveRequest{
		AlertID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditRecord(resp.CompanyID, "alert.resolve", "alert", resp.ID, nil))

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAlertStats(c *gin.Context) {
	var query struct {
		CompanyID string `form:"company_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.alertSvc.Stats(c.Request.Context(), alertdomain.StatsRequest{
		CompanyID: strings.TrimSpace(query.CompanyID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type upsertAlertConfigRequest struct {
	CompanyID            string   `json:"company_id"`
	IsActive             *bool    `json:"is_active"`
	AlertOnBreach        *bool    `json:"alert_on_breach"`
	AlertOnApproaching   *bool    `json:"alert_on_approaching"`
	AlertOnTrending      *bool    `json:"alert_on_trending"`
	ApproachingThreshold *float64 `json:"approaching_threshold"`
	TrendPeriod          *int     `json:"trend_period"`
	TrendThreshold       *float64 `json:"trend_threshold"`
	EmailEnabled         *bool    `json:"email_enabled"`
	InAppEnabled         *bool    `json:"in_app_enabled"`
	NotifyUsers          []string `json:"notify_users"`
}

func (s *Server) UpsertAlertConfig(c *gin.Context) {
	var req upsertAlertConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.alertSvc.UpsertConfig(c.Request.Context(), alertdomain.UpsertAlertConfigRequest{
		CovenantConfigID:     strings.TrimSpace(c.Param("id")),
		CompanyID:            strings.TrimSpace(req.CompanyID),
		IsActive:             req.IsActive,
		AlertOnBreach:        req.AlertOnBreach,
		AlertOnApproaching:   req.AlertOnApproaching,
		AlertOnTrending:      req.AlertOnTrending,
		ApproachingThreshold: req.ApproachingThreshold,
		TrendPeriod:          req.TrendPeriod,
		TrendThreshold:       req.TrendThreshold,
		EmailEnabled:         req.EmailEnabled,
		InAppEnabled:         req.InAppEnabled,
		NotifyUsers:          req.NotifyUsers,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditRecord(resp.CompanyID, "alert_config.upsert", "alert_config", resp.ID.String(), nil))

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAlertConfig(c *gin.Context) {
	resp, err := s.alertSvc.ConfigFor(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isAlertValidationError(err error) bool {
	switch err {
	case alertdomain.ErrInvalidCompany,
		alertdomain.ErrInvalidID,
		alertdomain.ErrInvalidUser:
		return true
	default:
		return false
	}
}
