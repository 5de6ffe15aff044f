package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	companydomain "github.com/smallbiznis/covena/internal/company/domain"
	"github.com/smallbiznis/covena/pkg/db/pagination"
	"gorm.io/datatypes"
)

type createCompanyRequest struct {
	Name         string `json:"name"`
	Sector       string `json:"sector"`
	ContactEmail string `json:"contact_email"`
}

func (s *Server) CreateCompany(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.companySvc.Create(c.Request.Context(), companydomain.CreateCompanyRequest{
		Name:         strings.TrimSpace(req.Name),
		Sector:       strings.TrimSpace(req.Sector),
		ContactEmail: strings.TrimSpace(req.ContactEmail),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditRecord(resp.ID, "company.create", "company", resp.ID.String(), datatypes.JSONMap{
		"name": resp.Name,
	}))

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCompanies(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Name   string `form:"name"`
		Sector string `form:"sector"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.companySvc.List(c.Request.Context(), companydomain.ListCompanyRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Name:      strings.TrimSpace(query.Name),
		Sector:    strings.TrimSpace(query.Sector),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCompanyByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.companySvc.GetByID(c.Request.Context(), companydomain.GetCompanyRequest{
		ID: id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isCompanyValidationError(err error) bool {
	switch err {
	case companydomain.ErrInvalidName,
		companydomain.ErrInvalidEmail,
		companydomain.ErrInvalidID:
		return true
	default:
		return false
	}
}
