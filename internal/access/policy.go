package access

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Resource string

const (
	ResourceStore    Resource = "store"
	ResourceCategory Resource = "category"
	ResourceProduct  Resource = "product"
	ResourceCart     Resource = "cart"
	ResourceCartItem Resource = "cart_item"
	ResourceOrder    Resource = "order"
	ResourceFeedback Resource = "feedback"
)

type Action string

const (
	ActionList              Action = "list"
	ActionRetrieve          Action = "retrieve"
	ActionCreate            Action = "create"
	ActionUpdate            Action = "update"
	ActionDelete            Action = "delete"
	ActionMyStore           Action = "my_store"
	ActionMyProducts        Action = "my_products"
	ActionExport            Action = "export"
	ActionMyOrders          Action = "my_orders"
	ActionMyStoreOrders     Action = "my_store_orders"
	ActionUpdateOrderStatus Action = "update_order_status"
)

var ErrUnauthenticated = errors.New("authentication credentials were not provided")

// DeniedError is an authorization failure. Field names the resource the
// message is about, mirroring the shape of field-scoped validation errors.
type DeniedError struct {
	Field   string
	Message string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Rule describes who may perform an action on a resource.
type Rule struct {
	// Public actions need no authentication.
	Public bool
	// Group, when set, must be held by the caller. Staff pass when StaffBypass is set.
	Group       string
	StaffBypass bool
	// DenyStaff and DenyGroup reject callers that would otherwise pass.
	DenyStaff   bool
	StaffDenial string
	DenyGroup   string
	GroupDenial string
	// Owner requires an object-level ownership match (staff always pass).
	Owner bool
	// Message explains a denial; Field defaults to "store".
	Message string
	Field   string
}

type Key struct {
	Resource Resource
	Action   Action
}

const mustOwnStore = "You must own a store!"

var capabilities = map[Key]Rule{
	{ResourceStore, ActionList}:     {Public: true},
	{ResourceStore, ActionRetrieve}: {Public: true},
	{ResourceStore, ActionCreate}: {
		DenyStaff: true, StaffDenial: "Admins cannot create a store!",
		DenyGroup: StoreOwner, GroupDenial: "You're already a store owner!",
	},
	{ResourceStore, ActionUpdate}:  {Owner: true},
	{ResourceStore, ActionDelete}:  {Owner: true},
	{ResourceStore, ActionMyStore}: {Group: StoreOwner, Message: mustOwnStore},

	{ResourceCategory, ActionList}:     {},
	{ResourceCategory, ActionRetrieve}: {Owner: true},
	{ResourceCategory, ActionCreate}:   {Group: StoreOwner, Message: mustOwnStore},
	{ResourceCategory, ActionUpdate}:   {Owner: true},
	{ResourceCategory, ActionDelete}:   {Owner: true},

	{ResourceProduct, ActionList}:       {Public: true},
	{ResourceProduct, ActionRetrieve}:   {Public: true},
	{ResourceProduct, ActionCreate}:     {Group: StoreOwner, Message: mustOwnStore},
	{ResourceProduct, ActionUpdate}:     {Owner: true},
	{ResourceProduct, ActionDelete}:     {Owner: true},
	{ResourceProduct, ActionMyProducts}: {Group: StoreOwner, Message: mustOwnStore},
	{ResourceProduct, ActionExport}:     {Group: StoreOwner, Message: mustOwnStore},

	{ResourceCart, ActionRetrieve}: {},

	{ResourceCartItem, ActionList}:     {},
	{ResourceCartItem, ActionCreate}:   {},
	{ResourceCartItem, ActionRetrieve}: {Owner: true},
	{ResourceCartItem, ActionUpdate}:   {Owner: true},
	{ResourceCartItem, ActionDelete}:   {Owner: true},

	{ResourceOrder, ActionCreate}:            {},
	{ResourceOrder, ActionRetrieve}:          {},
	{ResourceOrder, ActionMyOrders}:          {},
	{ResourceOrder, ActionMyStoreOrders}:     {Group: StoreOwner, Message: mustOwnStore},
	{ResourceOrder, ActionUpdateOrderStatus}: {Group: StoreOwner, StaffBypass: true, Owner: true, Message: mustOwnStore},

	{ResourceFeedback, ActionCreate}: {},
	{ResourceFeedback, ActionList}:   {Group: StoreOwner, StaffBypass: true, Message: mustOwnStore},
}

// RuleFor returns the rule registered for (res, act).
func RuleFor(res Resource, act Action) (Rule, bool) {
	r, ok := capabilities[Key{res, act}]
	return r, ok
}

// Authorize checks the static part of a rule: authentication and group membership.
func Authorize(p Principal, res Resource, act Action) error {
	rule, ok := RuleFor(res, act)
	if !ok {
		return &DeniedError{Field: string(res), Message: "You do not have permission to perform this action."}
	}
	if rule.Public {
		return nil
	}
	if !p.Authenticated() {
		return ErrUnauthenticated
	}

	field := rule.Field
	if field == "" {
		field = "store"
	}
	if rule.DenyStaff && p.Staff {
		return &DeniedError{Field: field, Message: rule.StaffDenial}
	}
	if rule.DenyGroup != "" && p.InGroup(rule.DenyGroup) {
		return &DeniedError{Field: field, Message: rule.GroupDenial}
	}
	if rule.Group != "" && !p.InGroup(rule.Group) && !(rule.StaffBypass && p.Staff) {
		return &DeniedError{Field: field, Message: rule.Message}
	}
	return nil
}

// AuthorizeObject runs Authorize and then, for owner-scoped rules, requires
// the caller to own the object or be staff.
func AuthorizeObject(p Principal, res Resource, act Action, ownerID uuid.UUID) error {
	if err := Authorize(p, res, act); err != nil {
		return err
	}
	rule, _ := RuleFor(res, act)
	if !rule.Owner || p.Staff || p.UserID == ownerID {
		return nil
	}
	return &DeniedError{Field: string(res), Message: "You do not have permission to perform this action."}
}
