package domain

import (
	"context"
	"errors"
	"time"
)

type IngestSnapshotRequest struct {
	CompanyID string
	AsOfDate  time.Time
	Snapshot  RatioSnapshot
}

type LatestSnapshotRequest struct {
	CompanyID string
}

type Service interface {
	Ingest(context.Context, IngestSnapshotRequest) (RatioSnapshot, error)
	Latest(context.Context, LatestSnapshotRequest) (RatioSnapshot, error)
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidAsOf    = errors.New("invalid_as_of_date")
	ErrNotFound       = errors.New("snapshot_not_found")
)
