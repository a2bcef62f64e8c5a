package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/foodville/marketplace-api/internal/access"
	"github.com/foodville/marketplace-api/internal/dto"
	"github.com/foodville/marketplace-api/internal/model"
	"github.com/foodville/marketplace-api/internal/repository"
)

type CategoryService struct {
	categoryRepo repository.CategoryRepository
	storeRepo    repository.StoreRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository, storeRepo repository.StoreRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo, storeRepo: storeRepo}
}

// callerStore returns the store owned by p, or ErrStoreNotFound.
func callerStore(ctx context.Context, stores repository.StoreRepository, p access.Principal) (*model.Store, error) {
	store, err := stores.GetByUserID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}
	return store, nil
}

// List returns the caller's categories. Staff see every store's.
func (s *CategoryService) List(ctx context.Context, p access.Principal) ([]dto.CategoryResponse, error) {
	if err := access.Authorize(p, access.ResourceCategory, access.ActionList); err != nil {
		return nil, err
	}

	storeID := uuid.Nil
	if !p.Staff {
		store, err := s.storeRepo.GetByUserID(ctx, p.UserID)
		if err != nil {
			return nil, fmt.Errorf("get store: %w", err)
		}
		if store == nil {
			return []dto.CategoryResponse{}, nil
		}
		storeID = store.ID
	}

	categories, err := s.categoryRepo.List(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	resp := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		resp = append(resp, toCategoryResponse(&categories[i]))
	}
	return resp, nil
}

// owned loads a category and checks that p owns its store. Categories of
// other stores are reported as missing.
func (s *CategoryService) owned(ctx context.Context, p access.Principal, id uuid.UUID, act access.Action) (*model.Category, error) {
	if err := access.Authorize(p, access.ResourceCategory, act); err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	if p.Staff {
		return category, nil
	}
	store, err := s.storeRepo.GetByID(ctx, category.StoreID)
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	if store == nil || access.AuthorizeObject(p, access.ResourceCategory, act, store.UserID) != nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

func (s *CategoryService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*dto.CategoryResponse, error) {
	category, err := s.owned(ctx, p, id, access.ActionRetrieve)
	if err != nil {
		return nil, err
	}
	resp := toCategoryResponse(category)
	return &resp, nil
}

func (s *CategoryService) Create(ctx context.Context, p access.Principal, req dto.CategoryRequest) (*dto.CategoryResponse, error) {
	if err := access.Authorize(p, access.ResourceCategory, access.ActionCreate); err != nil {
		return nil, err
	}
	store, err := callerStore(ctx, s.storeRepo, p)
	if err != nil {
		return nil, err
	}

	category := &model.Category{StoreID: store.ID, Name: req.Name}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", fromConstraint(err))
	}
	resp := toCategoryResponse(category)
	return &resp, nil
}

func (s *CategoryService) Update(ctx context.Context, p access.Principal, id uuid.UUID, req dto.CategoryRequest) (*dto.CategoryResponse, error) {
	category, err := s.owned(ctx, p, id, access.ActionUpdate)
	if err != nil {
		return nil, err
	}
	category.Name = req.Name
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("update category: %w", fromConstraint(err))
	}
	resp := toCategoryResponse(category)
	return &resp, nil
}

// Delete removes the category together with its products.
func (s *CategoryService) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	if _, err := s.owned(ctx, p, id, access.ActionDelete); err != nil {
		return err
	}
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func toCategoryResponse(c *model.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:        c.ID,
		StoreID:   c.StoreID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
