package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodville/marketplace-api/internal/access"
	"github.com/foodville/marketplace-api/internal/asset"
	"github.com/foodville/marketplace-api/internal/dto"
	"github.com/foodville/marketplace-api/internal/model"
	"github.com/foodville/marketplace-api/internal/repository"
)

const storeImageDir = "store/store/images"

// StoreHook observes store lifecycle changes. StoreCreated and StoreDeleted
// run inside the store's transaction and an error aborts the change.
// StoreCommitted runs once the change is committed.
type StoreHook interface {
	StoreCreated(ctx context.Context, store *model.Store) error
	StoreDeleted(ctx context.Context, store *model.Store) error
	StoreCommitted(ctx context.Context, store *model.Store)
}

// Upload is an image file sent by a client.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

var maxDeliveryFee = decimal.RequireFromString("999.99")

type StoreService struct {
	storeRepo repository.StoreRepository
	tx        repository.Transactor
	hook      StoreHook
	media     asset.Storage
	now       Clock
	log       *slog.Logger
}

func NewStoreService(storeRepo repository.StoreRepository, tx repository.Transactor, hook StoreHook, media asset.Storage, now Clock, log *slog.Logger) *StoreService {
	return &StoreService{storeRepo: storeRepo, tx: tx, hook: hook, media: media, now: now, log: log}
}

func validateMobileNumber(errs fieldErrors, number string) {
	for _, r := range number {
		if r < '0' || r > '9' {
			errs.add("mobile_number", "Phone number must contain only digits.")
			return
		}
	}
	if len(number) != 11 {
		errs.add("mobile_number", "Phone number must be exactly 11 digits.")
	}
}

func validateDeliveryFee(errs fieldErrors, fee decimal.Decimal) {
	switch {
	case fee.IsNegative():
		errs.add("delivery_fee", "Ensure this value is greater than or equal to 0.")
	case fee.GreaterThan(maxDeliveryFee):
		errs.add("delivery_fee", "Ensure that there are no more than 5 digits in total.")
	case !fee.Equal(fee.Truncate(2)):
		errs.add("delivery_fee", "Ensure that there are no more than 2 decimal places.")
	}
}

const timeFormatMessage = "Time has wrong format. Use one of these formats instead: hh:mm[:ss]."

// parseTime reads an hh:mm[:ss] field, recording a field error when raw is
// missing or malformed.
func parseTime(errs fieldErrors, field string, raw *string) (model.TimeOfDay, bool) {
	if raw == nil {
		errs.add(field, "This field is required.")
		return 0, false
	}
	t, err := model.ParseTimeOfDay(*raw)
	if err != nil {
		errs.add(field, timeFormatMessage)
		return 0, false
	}
	return t, true
}

func validateHours(errs fieldErrors, opening, closing model.TimeOfDay) {
	if opening == closing {
		errs.add("operating_hours", "Opening time and closing time cannot be the same.")
	}
}

// Create registers the caller's store and makes them a Store Owner.
func (s *StoreService) Create(ctx context.Context, p access.Principal, req dto.CreateStoreRequest) (*dto.StoreResponse, error) {
	if err := access.Authorize(p, access.ResourceStore, access.ActionCreate); err != nil {
		return nil, err
	}

	errs := fieldErrors{}
	validateMobileNumber(errs, req.MobileNumber)
	validateDeliveryFee(errs, req.DeliveryFee)
	opening, openingOK := parseTime(errs, "opening_time", req.OpeningTime)
	closing, closingOK := parseTime(errs, "closing_time", req.ClosingTime)
	if openingOK && closingOK {
		validateHours(errs, opening, closing)
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	store := &model.Store{
		UserID:       p.UserID,
		Name:         req.Name,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		DeliveryFee:  req.DeliveryFee,
		Description:  req.Description,
		OpeningTime:  opening,
		ClosingTime:  closing,
		Address:      model.Address{City: req.Address.City, Province: req.Address.Province},
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.storeRepo.Create(ctx, store); err != nil {
			return err
		}
		return s.hook.StoreCreated(ctx, store)
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", fromConstraint(err))
	}
	s.hook.StoreCommitted(ctx, store)

	created, err := s.storeRepo.GetByID(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("reload store: %w", err)
	}
	if created == nil {
		created = store
	}
	resp := s.toResponse(created)
	return &resp, nil
}

// visible reports whether p may see store through list and retrieve: staff
// see everything, everyone else sees other people's live stores that have
// products.
func visible(p access.Principal, store *model.Store) bool {
	if p.Staff {
		return true
	}
	if !store.IsLive || store.ProductCount == 0 {
		return false
	}
	return !p.Authenticated() || store.UserID != p.UserID
}

func (s *StoreService) List(ctx context.Context, p access.Principal) ([]dto.StoreResponse, error) {
	if err := access.Authorize(p, access.ResourceStore, access.ActionList); err != nil {
		return nil, err
	}
	filter := repository.StoreFilter{}
	if !p.Staff {
		filter.LiveOnly = true
		filter.WithProducts = true
		filter.ExcludeOwnerID = p.UserID
	}
	stores, err := s.storeRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}

	resp := make([]dto.StoreResponse, 0, len(stores))
	for i := range stores {
		resp = append(resp, s.toResponse(&stores[i]))
	}
	return resp, nil
}

func (s *StoreService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*dto.StoreResponse, error) {
	if err := access.Authorize(p, access.ResourceStore, access.ActionRetrieve); err != nil {
		return nil, err
	}
	store, err := s.storeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	if store == nil || !visible(p, store) {
		return nil, ErrStoreNotFound
	}
	resp := s.toResponse(store)
	return &resp, nil
}

func (s *StoreService) MyStore(ctx context.Context, p access.Principal) (*dto.StoreResponse, error) {
	if err := access.Authorize(p, access.ResourceStore, access.ActionMyStore); err != nil {
		return nil, err
	}
	store, err := s.storeRepo.GetByUserID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}
	resp := s.toResponse(store)
	return &resp, nil
}

// ownedStore loads a store and checks p may perform act on it.
func (s *StoreService) ownedStore(ctx context.Context, p access.Principal, id uuid.UUID, act access.Action) (*model.Store, error) {
	if err := access.Authorize(p, access.ResourceStore, act); err != nil {
		return nil, err
	}
	store, err := s.storeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}
	if err := access.AuthorizeObject(p, access.ResourceStore, act, store.UserID); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *StoreService) Update(ctx context.Context, p access.Principal, id uuid.UUID, req dto.UpdateStoreRequest) (*dto.StoreResponse, error) {
	store, err := s.ownedStore(ctx, p, id, access.ActionUpdate)
	if err != nil {
		return nil, err
	}

	errs := fieldErrors{}
	if req.Name != nil {
		store.Name = *req.Name
	}
	if req.Email != nil {
		store.Email = *req.Email
	}
	if req.MobileNumber != nil {
		validateMobileNumber(errs, *req.MobileNumber)
		store.MobileNumber = *req.MobileNumber
	}
	if req.DeliveryFee != nil {
		validateDeliveryFee(errs, *req.DeliveryFee)
		store.DeliveryFee = *req.DeliveryFee
	}
	if req.Description != nil {
		store.Description = *req.Description
	}
	hoursOK := true
	if req.OpeningTime != nil {
		t, ok := parseTime(errs, "opening_time", req.OpeningTime)
		store.OpeningTime, hoursOK = t, ok
	}
	if req.ClosingTime != nil {
		t, ok := parseTime(errs, "closing_time", req.ClosingTime)
		store.ClosingTime, hoursOK = t, hoursOK && ok
	}
	if (req.OpeningTime != nil || req.ClosingTime != nil) && hoursOK {
		validateHours(errs, store.OpeningTime, store.ClosingTime)
	}
	if req.Address != nil {
		store.Address.City = req.Address.City
		store.Address.Province = req.Address.Province
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if req.IsLive != nil {
			if *req.IsLive {
				count, err := s.storeRepo.CountProducts(ctx, store.ID)
				if err != nil {
					return err
				}
				if count == 0 {
					return NewValidationError("is_live", "A store must have at least one product before going live.")
				}
			}
			store.IsLive = *req.IsLive
		}
		return s.storeRepo.Update(ctx, store)
	})
	if err != nil {
		return nil, fmt.Errorf("update store: %w", fromConstraint(err))
	}

	resp := s.toResponse(store)
	return &resp, nil
}

// Delete removes the store and revokes the owner's Store Owner role in the
// same transaction. The image is removed afterwards on a best-effort basis.
func (s *StoreService) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	if _, err := s.ownedStore(ctx, p, id, access.ActionDelete); err != nil {
		return err
	}

	var deleted *model.Store
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		store, err := s.storeRepo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if store == nil {
			return ErrStoreNotFound
		}
		deleted = store
		return s.hook.StoreDeleted(ctx, store)
	})
	if err != nil {
		return fmt.Errorf("delete store: %w", fromConstraint(err))
	}
	s.hook.StoreCommitted(ctx, deleted)

	if err := s.media.Delete(ctx, deleted.Image); err != nil {
		s.log.Warn("delete store image", "store_id", id, "image", deleted.Image, "error", err)
	}
	return nil
}

// SetImage replaces the store image. The previous file is removed unless it
// is the shared placeholder.
func (s *StoreService) SetImage(ctx context.Context, p access.Principal, id uuid.UUID, upload Upload) (*dto.StoreResponse, error) {
	store, err := s.ownedStore(ctx, p, id, access.ActionUpdate)
	if err != nil {
		return nil, err
	}

	path, err := saveImage(ctx, s.media, storeImageDir, upload)
	if err != nil {
		return nil, err
	}
	if err := s.storeRepo.UpdateImage(ctx, store.ID, path); err != nil {
		_ = s.media.Delete(ctx, path)
		return nil, fmt.Errorf("update store image: %w", err)
	}

	if err := s.media.Delete(ctx, store.Image); err != nil {
		s.log.Warn("delete previous store image", "store_id", id, "image", store.Image, "error", err)
	}
	store.Image = path
	resp := s.toResponse(store)
	return &resp, nil
}

func (s *StoreService) toResponse(store *model.Store) dto.StoreResponse {
	return dto.StoreResponse{
		ID:           store.ID,
		OwnerID:      store.UserID,
		OwnerName:    store.OwnerName,
		Name:         store.Name,
		DisplayName:  store.DisplayName(),
		Email:        store.Email,
		Image:        s.media.URL(store.Image),
		MobileNumber: store.MobileNumber,
		DeliveryFee:  store.DeliveryFee,
		Description:  store.Description,
		OpeningTime:  store.OpeningTime,
		ClosingTime:  store.ClosingTime,
		IsOpen:       store.IsOpenAt(s.now()),
		IsLive:       store.IsLive,
		Rating:       store.Rating,
		ProductCount: store.ProductCount,
		Address:      dto.AddressResponse{City: store.Address.City, Province: store.Address.Province},
		CreatedAt:    store.CreatedAt,
		UpdatedAt:    store.UpdatedAt,
	}
}
