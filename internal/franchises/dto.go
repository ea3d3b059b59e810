package franchises

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
)

// AdminDTO is a franchise administrator.
type AdminDTO struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// StoreDTO omits revenue unless the caller may view franchise details.
type StoreDTO struct {
	ID           uint64           `json:"id"`
	Name         string           `json:"name"`
	TotalRevenue *decimal.Decimal `json:"totalRevenue,omitempty"`
}

// FranchiseDTO omits admins unless the caller may view franchise details.
type FranchiseDTO struct {
	ID     uint64     `json:"id"`
	Name   string     `json:"name"`
	Admins []AdminDTO `json:"admins,omitempty"`
	Stores []StoreDTO `json:"stores"`
}

// ListFranchisesResponse is one page of franchises.
type ListFranchisesResponse struct {
	Franchises []FranchiseDTO `json:"franchises"`
	More       bool           `json:"more"`
}

// AdminRef names a franchise admin by email in create requests.
type AdminRef struct {
	Email string `json:"email" validate:"required,email"`
}

// CreateFranchiseRequest is the body of POST /api/franchise.
type CreateFranchiseRequest struct {
	Name   string     `json:"name" validate:"required"`
	Admins []AdminRef `json:"admins" validate:"dive"`
}

// CreateStoreRequest is the body of POST /api/franchise/{franchiseId}/store.
type CreateStoreRequest struct {
	Name string `json:"name" validate:"required"`
}

func toDTO(f models.Franchise, admins []models.User, detailed bool) FranchiseDTO {
	dto := FranchiseDTO{
		ID:     f.ID,
		Name:   f.Name,
		Stores: make([]StoreDTO, 0, len(f.Stores)),
	}
	for _, s := range f.Stores {
		store := StoreDTO{ID: s.ID, Name: s.Name}
		if detailed {
			revenue := s.TotalRevenue
			store.TotalRevenue = &revenue
		}
		dto.Stores = append(dto.Stores, store)
	}
	if detailed {
		dto.Admins = make([]AdminDTO, 0, len(admins))
		for _, a := range admins {
			dto.Admins = append(dto.Admins, AdminDTO{ID: a.ID, Name: a.Name, Email: a.Email})
		}
	}
	return dto
}

func storeToDTO(s models.Store) StoreDTO {
	revenue := s.TotalRevenue
	return StoreDTO{ID: s.ID, Name: s.Name, TotalRevenue: &revenue}
}
