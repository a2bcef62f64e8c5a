package service

import (
	"context"
	"fmt"

	"github.com/foodville/marketplace-api/internal/access"
	"github.com/foodville/marketplace-api/internal/dto"
	"github.com/foodville/marketplace-api/internal/model"
	"github.com/foodville/marketplace-api/internal/repository"
)

type FeedbackService struct {
	feedbackRepo repository.FeedbackRepository
	orderRepo    repository.OrderRepository
	storeRepo    repository.StoreRepository
}

func NewFeedbackService(feedbackRepo repository.FeedbackRepository, orderRepo repository.OrderRepository, storeRepo repository.StoreRepository) *FeedbackService {
	return &FeedbackService{feedbackRepo: feedbackRepo, orderRepo: orderRepo, storeRepo: storeRepo}
}

// Create records the caller's rating of one of their completed orders.
func (s *FeedbackService) Create(ctx context.Context, p access.Principal, req dto.CreateFeedbackRequest) (*dto.FeedbackResponse, error) {
	if err := access.Authorize(p, access.ResourceFeedback, access.ActionCreate); err != nil {
		return nil, err
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, NewValidationError("rating", "Rating must be between 1 and 5.")
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.CustomerID != p.UserID {
		return nil, NewValidationError("order", "Invalid order.")
	}
	if order.Status != model.OrderStatusCompleted {
		return nil, NewValidationError("order", "Feedback can only be left on completed orders.")
	}
	if order.HasSubmittedFeedback {
		return nil, NewValidationError("order", "You have already submitted feedback for this order.")
	}

	feedback := &model.Feedback{
		OrderID:      order.ID,
		CustomerID:   p.UserID,
		CustomerName: order.Customer.FirstName + " " + order.Customer.LastName,
		Rating:       req.Rating,
		Description:  req.Description,
	}
	if err := s.feedbackRepo.Create(ctx, feedback); err != nil {
		return nil, fmt.Errorf("create feedback: %w", fromConstraint(err))
	}
	resp := toFeedbackResponse(*feedback)
	return &resp, nil
}

// List returns feedback on the caller's store, or all feedback for staff.
func (s *FeedbackService) List(ctx context.Context, p access.Principal) ([]dto.FeedbackResponse, error) {
	if err := access.Authorize(p, access.ResourceFeedback, access.ActionList); err != nil {
		return nil, err
	}

	var (
		feedbacks []model.Feedback
		err       error
	)
	if p.Staff {
		feedbacks, err = s.feedbackRepo.ListAll(ctx)
	} else {
		store, serr := callerStore(ctx, s.storeRepo, p)
		if serr != nil {
			return nil, serr
		}
		feedbacks, err = s.feedbackRepo.ListByStore(ctx, store.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("list feedbacks: %w", err)
	}

	resp := toFeedbackResponses(feedbacks)
	if resp == nil {
		resp = []dto.FeedbackResponse{}
	}
	return resp, nil
}

func toFeedbackResponses(feedbacks []model.Feedback) []dto.FeedbackResponse {
	if len(feedbacks) == 0 {
		return nil
	}
	resp := make([]dto.FeedbackResponse, 0, len(feedbacks))
	for _, f := range feedbacks {
		resp = append(resp, toFeedbackResponse(f))
	}
	return resp
}

func toFeedbackResponse(f model.Feedback) dto.FeedbackResponse {
	return dto.FeedbackResponse{
		ID:           f.ID,
		OrderID:      f.OrderID,
		CustomerID:   f.CustomerID,
		CustomerName: f.CustomerName,
		Rating:       f.Rating,
		Description:  f.Description,
		CreatedAt:    f.CreatedAt,
	}
}
