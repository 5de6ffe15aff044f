package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ratiodomain "github.com/smallbiznis/covena/internal/ratio/domain"
	"gorm.io/datatypes"
)

func (s *Server) IngestRatioSnapshot(c *gin.Context) {
	var snapshot ratiodomain.RatioSnapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ratioSvc.Ingest(c.Request.Context(), ratiodomain.IngestSnapshotRequest{
		CompanyID: strings.TrimSpace(c.Param("id")),
		AsOfDate:  snapshot.AsOfDate,
		Snapshot:  snapshot,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditSvc.Record(c.Request.Context(), auditRecord(resp.CompanyID, "ratio.ingest", "ratio_snapshot", resp.ID.String(), datatypes.JSONMap{
		"as_of_date": resp.AsOfDate,
	}))

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetLatestRatioSnapshot(c *gin.Context) {
	resp, err := s.ratioSvc.Latest(c.Request.Context(), ratiodomain.LatestSnapshotRequest{
		CompanyID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isRatioValidationError(err error) bool {
	switch err {
	case ratiodomain.ErrInvalidCompany,
		ratiodomain.ErrInvalidAsOf:
		return true
	default:
		return false
	}
}
