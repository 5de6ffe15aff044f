package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/covena/pkg/db/pagination"
)

type CreateCompanyRequest struct {
	Name         string
	Sector       string
	ContactEmail string
}

type GetCompanyRequest struct {
	ID string
}

type ListCompanyRequest struct {
	PageToken string
	PageSize  int32
	Name      string
	Sector    string
}

type ListCompanyFilter struct {
	Name   string
	Sector string
}

type ListCompanyResponse struct {
	pagination.PageInfo
	Companies []Company `json:"companies"`
}

type Service interface {
	Create(context.Context, CreateCompanyRequest) (Company, error)
	GetByID(context.Context, GetCompanyRequest) (Company, error)
	List(context.Context, ListCompanyRequest) (ListCompanyResponse, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("not_found")
)
