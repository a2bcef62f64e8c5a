package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/foodville/marketplace-api/internal/access"
	"github.com/foodville/marketplace-api/internal/asset"
	"github.com/foodville/marketplace-api/internal/dto"
	"github.com/foodville/marketplace-api/internal/export"
	"github.com/foodville/marketplace-api/internal/model"
	"github.com/foodville/marketplace-api/internal/repository"
)

const productImageDir = "store/product"

type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	storeRepo    repository.StoreRepository
	media        asset.Storage
	redisClient  *redis.Client
	cacheTTL     time.Duration
	log          *slog.Logger
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	storeRepo repository.StoreRepository,
	media asset.Storage,
	redisClient *redis.Client,
	cacheTTL time.Duration,
	log *slog.Logger,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		storeRepo:    storeRepo,
		media:        media,
		redisClient:  redisClient,
		cacheTTL:     cacheTTL,
		log:          log,
	}
}

func productCacheKey(id uuid.UUID) string { return "product:" + id.String() }

// categoryOf checks that categoryID names one of store's categories.
func (s *ProductService) categoryOf(ctx context.Context, store *model.Store, categoryID uuid.UUID) (*model.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if category == nil || category.StoreID != store.ID {
		return nil, NewValidationError("category", "Invalid category.")
	}
	return category, nil
}

func validatePrice(errs fieldErrors, product *model.Product) {
	if !product.Price.IsPositive() {
		errs.add("price", "Ensure this value is greater than 0.")
	}
}

func (s *ProductService) Create(ctx context.Context, p access.Principal, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if err := access.Authorize(p, access.ResourceProduct, access.ActionCreate); err != nil {
		return nil, err
	}
	store, err := callerStore(ctx, s.storeRepo, p)
	if err != nil {
		return nil, err
	}
	category, err := s.categoryOf(ctx, store, req.CategoryID)
	if err != nil {
		return nil, err
	}

	product := &model.Product{
		StoreID:      store.ID,
		CategoryID:   category.ID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		IsAvailable:  true,
		CategoryName: category.Name,
		StoreName:    store.Name,
	}
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}
	errs := fieldErrors{}
	validatePrice(errs, product)
	if err := errs.err(); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", fromConstraint(err))
	}
	resp := s.toResponse(product)
	return &resp, nil
}

func (s *ProductService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*dto.ProductResponse, error) {
	if err := access.Authorize(p, access.ResourceProduct, access.ActionRetrieve); err != nil {
		return nil, err
	}
	key := productCacheKey(id)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, key).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	resp := s.toResponse(product)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			if err := s.redisClient.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
				s.log.Warn("write product cache", "product_id", id, "error", err)
			}
		}
	}
	return &resp, nil
}

func (s *ProductService) List(ctx context.Context, p access.Principal, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	if err := access.Authorize(p, access.ResourceProduct, access.ActionList); err != nil {
		return nil, err
	}
	filter := repository.ProductFilter{
		Search: req.Search,
		Sort:   req.Sort,
		Order:  req.Order,
		Limit:  req.Limit,
		Offset: (req.Page - 1) * req.Limit,
	}
	if req.StoreID != "" {
		filter.StoreID = uuid.MustParse(req.StoreID)
	}
	if req.CategoryID != "" {
		filter.CategoryID = uuid.MustParse(req.CategoryID)
	}

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return &dto.ProductListResponse{Products: s.toResponses(products), Total: total, Page: req.Page, Limit: req.Limit}, nil
}

func (s *ProductService) storeProducts(ctx context.Context, p access.Principal, act access.Action) ([]model.Product, error) {
	if err := access.Authorize(p, access.ResourceProduct, act); err != nil {
		return nil, err
	}
	store, err := callerStore(ctx, s.storeRepo, p)
	if err != nil {
		return nil, err
	}
	products, _, err := s.productRepo.List(ctx, repository.ProductFilter{StoreID: store.ID, Sort: "name", Order: "asc"})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Mine lists every product of the caller's store.
func (s *ProductService) Mine(ctx context.Context, p access.Principal) ([]dto.ProductResponse, error) {
	products, err := s.storeProducts(ctx, p, access.ActionMyProducts)
	if err != nil {
		return nil, err
	}
	return s.toResponses(products), nil
}

// Export writes the caller's catalog to w as an xlsx workbook.
func (s *ProductService) Export(ctx context.Context, p access.Principal, w io.Writer) error {
	products, err := s.storeProducts(ctx, p, access.ActionExport)
	if err != nil {
		return err
	}
	if err := export.WriteProducts(w, products); err != nil {
		return fmt.Errorf("export products: %w", err)
	}
	return nil
}

// owned loads a product and checks p may perform act on it.
func (s *ProductService) owned(ctx context.Context, p access.Principal, id uuid.UUID, act access.Action) (*model.Product, *model.Store, error) {
	if err := access.Authorize(p, access.ResourceProduct, act); err != nil {
		return nil, nil, err
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, nil, ErrProductNotFound
	}
	store, err := s.storeRepo.GetByID(ctx, product.StoreID)
	if err != nil {
		return nil, nil, fmt.Errorf("get store: %w", err)
	}
	if store == nil {
		return nil, nil, ErrProductNotFound
	}
	if err := access.AuthorizeObject(p, access.ResourceProduct, act, store.UserID); err != nil {
		return nil, nil, err
	}
	return product, store, nil
}

func (s *ProductService) Update(ctx context.Context, p access.Principal, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, store, err := s.owned(ctx, p, id, access.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil {
		category, err := s.categoryOf(ctx, store, *req.CategoryID)
		if err != nil {
			return nil, err
		}
		product.CategoryID = category.ID
		product.CategoryName = category.Name
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.IsAvailable != nil {
		product.IsAvailable = *req.IsAvailable
	}
	errs := fieldErrors{}
	validatePrice(errs, product)
	if err := errs.err(); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", fromConstraint(err))
	}

	s.invalidateCache(ctx, id)
	resp := s.toResponse(product)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	product, _, err := s.owned(ctx, p, id, access.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateCache(ctx, id)

	if err := s.media.Delete(ctx, product.Image); err != nil {
		s.log.Warn("delete product image", "product_id", id, "image", product.Image, "error", err)
	}
	return nil
}

func (s *ProductService) SetImage(ctx context.Context, p access.Principal, id uuid.UUID, upload Upload) (*dto.ProductResponse, error) {
	product, _, err := s.owned(ctx, p, id, access.ActionUpdate)
	if err != nil {
		return nil, err
	}

	path, err := saveImage(ctx, s.media, productImageDir, upload)
	if err != nil {
		return nil, err
	}
	if err := s.productRepo.UpdateImage(ctx, id, path); err != nil {
		_ = s.media.Delete(ctx, path)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product image: %w", err)
	}
	s.invalidateCache(ctx, id)

	if err := s.media.Delete(ctx, product.Image); err != nil {
		s.log.Warn("delete previous product image", "product_id", id, "image", product.Image, "error", err)
	}
	product.Image = path
	resp := s.toResponse(product)
	return &resp, nil
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, productCacheKey(id)).Err(); err != nil {
		s.log.Warn("invalidate product cache", "product_id", id, "error", err)
	}
}

func (s *ProductService) toResponses(products []model.Product) []dto.ProductResponse {
	resp := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		resp = append(resp, s.toResponse(&products[i]))
	}
	return resp
}

func (s *ProductService) toResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:           p.ID,
		StoreID:      p.StoreID,
		StoreName:    p.StoreName,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Image:        s.media.URL(p.Image),
		IsAvailable:  p.IsAvailable,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
