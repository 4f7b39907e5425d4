package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/tradieapp/pkg/db/pagination"
)

type ListClientRequest struct {
	PageToken string
	PageSize  int
	Name      string
	Email     string
}

type ListClientFilter struct {
	Name  string
	Email string
}

type ListClientResponse struct {
	pagination.PageInfo
	Clients []Client `json:"clients"`
}

type CreateClientRequest struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// UpdateClientRequest is a sparse patch; nil fields are left unchanged.
type UpdateClientRequest struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	List(context.Context, ListClientRequest) (ListClientResponse, error)
	GetByID(context.Context, string) (Client, error)
	Update(context.Context, string, UpdateClientRequest) (Client, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrNotFound            = errors.New("not_found")
)
