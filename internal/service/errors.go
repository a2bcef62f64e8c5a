package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/foodville/marketplace-api/internal/repository"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStoreNotFound      = errors.New("store not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrCartNotFound       = errors.New("cart not found")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrCheckoutInProgress = errors.New("checkout with this idempotency key is already in progress")

	ErrEmptyCart = NewValidationError("cart", "Your cart does not contain any items.")
)

// ValidationError rejects a request with one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors collects messages and yields nil when there are none.
type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = message
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

type fieldMessage struct {
	field   string
	message string
}

var constraintMessages = map[string]fieldMessage{
	repository.ConstraintUserEmail:           {"email", "A user with that email already exists."},
	repository.ConstraintStoreName:           {"name", "A store with that name already exists."},
	repository.ConstraintStoreEmail:          {"email", "A store with that email already exists."},
	repository.ConstraintStoreUser:           {"store", "You're already a store owner!"},
	repository.ConstraintCategoryName:        {"name", "A category with that name already exists in your store"},
	repository.ConstraintProductName:         {"name", "A product with that name already exists in your store"},
	repository.ConstraintProductCategory:     {"category", "Invalid category."},
	repository.ConstraintCartProduct:         {"product", "This product is already in your cart."},
	repository.ConstraintCartItemQuantity:    {"quantity", "Ensure this value is less than or equal to 99."},
	repository.ConstraintOrderStore:          {"store", "A store with orders cannot be deleted."},
	repository.ConstraintFeedbackPerCustomer: {"order", "You have already submitted feedback for this order."},
}

// fromConstraint turns a known constraint violation into a ValidationError and
// returns any other error unchanged.
func fromConstraint(err error) error {
	var ce *repository.ConstraintError
	if errors.As(err, &ce) {
		if fm, ok := constraintMessages[ce.Constraint]; ok {
			return NewValidationError(fm.field, fm.message)
		}
	}
	return err
}
