package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/foodville/marketplace-api/internal/access"
	"github.com/foodville/marketplace-api/internal/asset"
	"github.com/foodville/marketplace-api/internal/dto"
	"github.com/foodville/marketplace-api/internal/metrics"
	"github.com/foodville/marketplace-api/internal/model"
	"github.com/foodville/marketplace-api/internal/repository"
)

const maxCartQuantity = 99

var errQuantityTooLarge = NewValidationError("quantity", "Ensure this value is less than or equal to 99.")

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	tx          repository.Transactor
	media       asset.Storage
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, tx repository.Transactor, media asset.Storage) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, tx: tx, media: media}
}

func (s *CartService) cartOf(ctx context.Context, p access.Principal) (*model.Cart, error) {
	cart, err := s.cartRepo.GetByUserID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}
	return cart, nil
}

// GetCart summarises the caller's cart. Store is nil for an empty cart.
func (s *CartService) GetCart(ctx context.Context, p access.Principal) (*dto.CartResponse, error) {
	if err := access.Authorize(p, access.ResourceCart, access.ActionRetrieve); err != nil {
		return nil, err
	}
	cart, err := s.cartOf(ctx, p)
	if err != nil {
		return nil, err
	}
	items, err := s.cartRepo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}

	resp := &dto.CartResponse{ID: cart.ID, Subtotal: decimal.Zero, Items: s.toItemResponses(items)}
	for _, item := range items {
		resp.ItemCount += item.Quantity
		resp.Subtotal = resp.Subtotal.Add(lineTotal(item))
	}
	if len(items) > 0 {
		resp.Store = &dto.CartStoreResponse{ID: items[0].Product.StoreID, Name: items[0].Product.StoreName}
	}
	return resp, nil
}

func (s *CartService) ListItems(ctx context.Context, p access.Principal) ([]dto.CartItemResponse, error) {
	if err := access.Authorize(p, access.ResourceCartItem, access.ActionList); err != nil {
		return nil, err
	}
	cart, err := s.cartOf(ctx, p)
	if err != nil {
		return nil, err
	}
	items, err := s.cartRepo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	return s.toItemResponses(items), nil
}

// ownItem loads an item from the caller's own cart. Items in other carts are
// reported as missing.
func (s *CartService) ownItem(ctx context.Context, p access.Principal, id uuid.UUID, act access.Action) (*model.CartItem, error) {
	if err := access.Authorize(p, access.ResourceCartItem, act); err != nil {
		return nil, err
	}
	item, err := s.cartRepo.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	if item == nil || item.UserID != p.UserID {
		return nil, ErrCartItemNotFound
	}
	return item, nil
}

func (s *CartService) GetItem(ctx context.Context, p access.Principal, id uuid.UUID) (*dto.CartItemResponse, error) {
	item, err := s.ownItem(ctx, p, id, access.ActionRetrieve)
	if err != nil {
		return nil, err
	}
	resp := s.toItemResponse(*item)
	return &resp, nil
}

// AddItem puts quantity of a product into the caller's cart. A cart holds
// products of one store only: adding from another store empties it first.
// Adding a product already in the cart increases its quantity. The cart row
// is locked for the whole operation.
func (s *CartService) AddItem(ctx context.Context, p access.Principal, req dto.AddCartItemRequest) (*dto.CartItemResponse, error) {
	if err := access.Authorize(p, access.ResourceCartItem, access.ActionCreate); err != nil {
		return nil, err
	}
	if req.Quantity < 1 {
		return nil, NewValidationError("quantity", "Ensure this value is greater than or equal to 1.")
	}
	if req.Quantity > maxCartQuantity {
		return nil, errQuantityTooLarge
	}

	var added *model.CartItem
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		cart, err := s.cartRepo.LockByUserID(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		if cart == nil {
			return ErrCartNotFound
		}

		product, err := s.productRepo.GetByID(ctx, req.ProductID)
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return NewValidationError("product", "Invalid product.")
		}
		if !product.IsAvailable {
			return NewValidationError("product", "This product is not available.")
		}

		items, err := s.cartRepo.ListItems(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("get cart items: %w", err)
		}
		if len(items) > 0 && items[0].Product.StoreID != product.StoreID {
			if err := s.cartRepo.Clear(ctx, cart.ID); err != nil {
				return err
			}
			items = nil
		}
		for _, item := range items {
			if item.ProductID == product.ID && item.Quantity+req.Quantity > maxCartQuantity {
				return errQuantityTooLarge
			}
		}

		item := &model.CartItem{CartID: cart.ID, UserID: p.UserID, ProductID: product.ID, Quantity: req.Quantity}
		if err := s.cartRepo.UpsertItem(ctx, item); err != nil {
			return err
		}
		item.Product = model.CartProduct{
			Name:        product.Name,
			Price:       product.Price,
			Image:       product.Image,
			IsAvailable: product.IsAvailable,
			StoreID:     product.StoreID,
			StoreName:   product.StoreName,
		}
		added = item
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", fromConstraint(err))
	}

	metrics.RecordCartItemAdded()
	resp := s.toItemResponse(*added)
	return &resp, nil
}

func (s *CartService) UpdateItem(ctx context.Context, p access.Principal, id uuid.UUID, req dto.UpdateCartItemRequest) (*dto.CartItemResponse, error) {
	item, err := s.ownItem(ctx, p, id, access.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if req.Quantity < 1 {
		return nil, NewValidationError("quantity", "Ensure this value is greater than or equal to 1.")
	}
	if req.Quantity > maxCartQuantity {
		return nil, errQuantityTooLarge
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, id, req.Quantity); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", fromConstraint(err))
	}
	item.Quantity = req.Quantity
	resp := s.toItemResponse(*item)
	return &resp, nil
}

func (s *CartService) DeleteItem(ctx context.Context, p access.Principal, id uuid.UUID) error {
	if _, err := s.ownItem(ctx, p, id, access.ActionDelete); err != nil {
		return err
	}
	if err := s.cartRepo.DeleteItem(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func lineTotal(item model.CartItem) decimal.Decimal {
	return item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func (s *CartService) toItemResponses(items []model.CartItem) []dto.CartItemResponse {
	resp := make([]dto.CartItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toItemResponse(item))
	}
	return resp
}

func (s *CartService) toItemResponse(item model.CartItem) dto.CartItemResponse {
	return dto.CartItemResponse{
		ID:          item.ID,
		ProductID:   item.ProductID,
		Name:        item.Product.Name,
		Image:       s.media.URL(item.Product.Image),
		StoreID:     item.Product.StoreID,
		StoreName:   item.Product.StoreName,
		Price:       item.Product.Price,
		Quantity:    item.Quantity,
		LineTotal:   lineTotal(item),
		IsAvailable: item.Product.IsAvailable,
	}
}
