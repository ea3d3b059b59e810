package franchises

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/pizzeria-backend/internal/access"
	"github.com/angelmondragon/pizzeria-backend/internal/users"
	"github.com/angelmondragon/pizzeria-backend/pkg/db"
	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/angelmondragon/pizzeria-backend/pkg/logger"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox"
	"github.com/angelmondragon/pizzeria-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
)

const (
	unknownFranchiseMessage = "unknown franchise"
	unknownStoreMessage     = "unknown store"
)

// Service manages franchises and their stores.
type Service interface {
	List(ctx context.Context, caller *access.Caller, params pagination.Params) (*ListFranchisesResponse, error)
	ListForUser(ctx context.Context, actor *access.Caller, userID uint64) ([]FranchiseDTO, error)
	Create(ctx context.Context, actor *access.Caller, req CreateFranchiseRequest) (*FranchiseDTO, error)
	Delete(ctx context.Context, actor *access.Caller, franchiseID uint64) error
	CreateStore(ctx context.Context, actor *access.Caller, franchiseID uint64, req CreateStoreRequest) (*StoreDTO, error)
	DeleteStore(ctx context.Context, actor *access.Caller, franchiseID, storeID uint64) error
}

// ServiceParams bundles the franchise service dependencies.
type ServiceParams struct {
	DB     *db.Client
	Outbox outbox.Emitter
	Logger *logger.Logger
}

type service struct {
	db     *db.Client
	outbox outbox.Emitter
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{db: params.DB, outbox: params.Outbox, logg: params.Logger}, nil
}

// List is public. Admins and a franchise's own admins additionally see its
// admin list and store revenue.
func (s *service) List(ctx context.Context, caller *access.Caller, params pagination.Params) (*ListFranchisesResponse, error) {
	rows, more, err := NewRepository(s.db.DB()).List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list franchises")
	}

	out, err := s.present(ctx, caller, rows)
	if err != nil {
		return nil, err
	}
	return &ListFranchisesResponse{Franchises: out, More: more}, nil
}

func (s *service) ListForUser(ctx context.Context, actor *access.Caller, userID uint64) ([]FranchiseDTO, error) {
	if err := access.Check(actor, access.ActionListUserFranchises, access.Resource{OwnerID: userID}); err != nil {
		return nil, err
	}

	ids, err := users.NewRepository(s.db.DB()).ScopesForUser(ctx, userID, enums.RoleFranchisee)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list user franchises")
	}
	rows, err := NewRepository(s.db.DB()).ListByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load franchises")
	}
	return s.present(ctx, actor, rows)
}

func (s *service) present(ctx context.Context, caller *access.Caller, rows []models.Franchise) ([]FranchiseDTO, error) {
	detailedIDs := make([]uint64, 0, len(rows))
	for _, f := range rows {
		if canViewDetails(caller, f.ID) {
			detailedIDs = append(detailedIDs, f.ID)
		}
	}
	admins, err := users.NewRepository(s.db.DB()).UsersByScope(ctx, enums.RoleFranchisee, detailedIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load franchise admins")
	}

	out := make([]FranchiseDTO, 0, len(rows))
	for _, f := range rows {
		out = append(out, toDTO(f, admins[f.ID], canViewDetails(caller, f.ID)))
	}
	return out, nil
}

func canViewDetails(caller *access.Caller, franchiseID uint64) bool {
	return access.Decide(caller, access.ActionViewFranchiseDetails, access.Resource{FranchiseID: franchiseID}).Allowed
}

// Create persists the franchise and grants every named admin the franchisee
// role for it. An unknown admin email aborts without writing anything.
func (s *service) Create(ctx context.Context, actor *access.Caller, req CreateFranchiseRequest) (*FranchiseDTO, error) {
	if err := access.Check(actor, access.ActionCreateFranchise, access.Resource{}); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "franchise name is required")
	}

	var created *FranchiseDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		repo := NewRepository(tx)

		admins := make([]models.User, 0, len(req.Admins))
		seen := map[uint64]bool{}
		for _, ref := range req.Admins {
			email := strings.ToLower(strings.TrimSpace(ref.Email))
			user, err := userRepo.FindByEmail(ctx, email)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown user for franchise admin %s provided", email))
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup franchise admin")
			}
			if seen[user.ID] {
				continue
			}
			seen[user.ID] = true
			admins = append(admins, *user)
		}

		franchise := &models.Franchise{Name: name}
		if err := repo.Create(ctx, franchise); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "franchise name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create franchise")
		}

		adminIDs := make([]uint64, 0, len(admins))
		for _, admin := range admins {
			if err := userRepo.AddGrant(ctx, admin.ID, enums.RoleFranchisee, franchise.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "grant franchisee role")
			}
			adminIDs = append(adminIDs, admin.ID)
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventFranchiseCreated,
			AggregateType: enums.AggregateFranchise,
			AggregateID:   franchise.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.PrimaryRole())},
			Data:          payloads.FranchiseCreatedEvent{FranchiseID: franchise.ID, Name: franchise.Name, AdminIDs: adminIDs},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit franchise created")
		}

		dto := toDTO(*franchise, admins, true)
		created = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "franchise_id", created.ID), "franchise created")
	return created, nil
}

// Delete removes the franchise, its stores and every franchisee grant scoped to it.
func (s *service) Delete(ctx context.Context, actor *access.Caller, franchiseID uint64) error {
	if err := access.Check(actor, access.ActionDeleteFranchise, access.Resource{FranchiseID: franchiseID}); err != nil {
		return err
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := users.NewRepository(tx).DeleteGrantsByScope(ctx, enums.RoleFranchisee, franchiseID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete franchisee grants")
		}
		found, err := NewRepository(tx).Delete(ctx, franchiseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete franchise")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, unknownFranchiseMessage)
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventFranchiseDeleted,
			AggregateType: enums.AggregateFranchise,
			AggregateID:   franchiseID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.PrimaryRole())},
			Data:          payloads.FranchiseDeletedEvent{FranchiseID: franchiseID},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit franchise deleted")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithField(ctx, "franchise_id", franchiseID), "franchise deleted")
	return nil
}

func (s *service) CreateStore(ctx context.Context, actor *access.Caller, franchiseID uint64, req CreateStoreRequest) (*StoreDTO, error) {
	if err := access.Check(actor, access.ActionCreateStore, access.Resource{FranchiseID: franchiseID}); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}

	var created models.Store
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if _, err := repo.FindByID(ctx, franchiseID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, unknownFranchiseMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load franchise")
		}
		created = models.Store{FranchiseID: franchiseID, Name: name}
		if err := repo.CreateStore(ctx, &created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"franchise_id": franchiseID, "store_id": created.ID}), "store created")
	dto := storeToDTO(created)
	return &dto, nil
}

func (s *service) DeleteStore(ctx context.Context, actor *access.Caller, franchiseID, storeID uint64) error {
	if err := access.Check(actor, access.ActionDeleteStore, access.Resource{FranchiseID: franchiseID}); err != nil {
		return err
	}

	found, err := NewRepository(s.db.DB()).DeleteStore(ctx, franchiseID, storeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete store")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, unknownStoreMessage)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"franchise_id": franchiseID, "store_id": storeID}), "store deleted")
	return nil
}
