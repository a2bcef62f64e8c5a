package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodville/marketplace-api/internal/model"
)

func createUser(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{
		Email: email, Username: email, Password: "hashed",
		FirstName: "Juan", LastName: "Cruz", BirthDate: time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, NewUserRepository(testPool).Create(context.Background(), user))
	require.NoError(t, NewCartRepository(testPool).Create(context.Background(), &model.Cart{UserID: user.ID}))
	return user
}

func createStore(t *testing.T, owner *model.User, name string) *model.Store {
	t.Helper()
	store := &model.Store{
		UserID: owner.ID, Name: name, Email: name + "@store.test", MobileNumber: "09171234567",
		DeliveryFee: decimal.NewFromInt(3), OpeningTime: model.NewTimeOfDay(8, 0, 0), ClosingTime: model.NewTimeOfDay(20, 0, 0),
		Address: model.Address{City: "Cebu", Province: "Cebu"},
	}
	require.NoError(t, NewStoreRepository(testPool).Create(context.Background(), store))
	return store
}

func createProduct(t *testing.T, store *model.Store, name string, price int64) *model.Product {
	t.Helper()
	ctx := context.Background()
	category := &model.Category{StoreID: store.ID, Name: "Meals " + name}
	require.NoError(t, NewCategoryRepository(testPool).Create(ctx, category))
	product := &model.Product{
		StoreID: store.ID, CategoryID: category.ID, Name: name,
		Price: decimal.NewFromInt(price), IsAvailable: true,
	}
	require.NoError(t, NewProductRepository(testPool).Create(ctx, product))
	return product
}

func TestUserRepo_CreateAndGetByEmail(t *testing.T) {
	cleanupAll(t)

	repo := NewUserRepository(testPool)
	ctx := context.Background()

	user := createUser(t, "test@example.com")
	assert.NotEqual(t, uuid.Nil, user.ID)

	found, err := repo.GetByEmail(ctx, "TEST@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, 1990, found.BirthDate.Year())

	err = repo.Create(ctx, &model.User{Email: "test@example.com", Username: "dup", Password: "h"})
	assert.True(t, IsConstraint(err, ConstraintUserEmail))
}

func TestUserRepo_Groups(t *testing.T) {
	cleanupAll(t)

	repo := NewUserRepository(testPool)
	ctx := context.Background()
	user := createUser(t, "groups@example.com")

	require.NoError(t, repo.AddToGroup(ctx, user.ID, "Store Owner"))
	require.NoError(t, repo.AddToGroup(ctx, user.ID, "Store Owner"))
	groups, err := repo.GroupNames(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Store Owner"}, groups)

	assert.Error(t, repo.AddToGroup(ctx, user.ID, "Nope"))

	require.NoError(t, repo.RemoveFromGroup(ctx, user.ID, "Store Owner"))
	groups, err = repo.GroupNames(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestStoreRepo_CreateListDelete(t *testing.T) {
	cleanupAll(t)

	repo := NewStoreRepository(testPool)
	ctx := context.Background()

	owner := createUser(t, "owner@example.com")
	store := createStore(t, owner, "Lutong Bahay")
	assert.Equal(t, model.DefaultStoreImage, store.Image)

	found, err := repo.GetByUserID(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Cebu", found.Address.City)
	assert.Equal(t, model.NewTimeOfDay(8, 0, 0), found.OpeningTime)
	assert.Equal(t, "Juan Cruz", found.OwnerName)
	assert.Zero(t, found.ProductCount)

	other := createUser(t, "other@example.com")
	err = repo.Create(ctx, &model.Store{
		UserID: other.ID, Name: "Lutong Bahay", Email: "x@store.test", MobileNumber: "09171234567",
		OpeningTime: model.NewTimeOfDay(8, 0, 0), ClosingTime: model.NewTimeOfDay(9, 0, 0),
		Address: model.Address{City: "Cebu", Province: "Cebu"},
	})
	assert.True(t, IsConstraint(err, ConstraintStoreName))

	createProduct(t, store, "Adobo", 10)
	store.IsLive = true
	require.NoError(t, repo.Update(ctx, store))

	visible, err := repo.List(ctx, StoreFilter{LiveOnly: true, WithProducts: true, ExcludeOwnerID: other.ID})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, 1, visible[0].ProductCount)

	visible, err = repo.List(ctx, StoreFilter{LiveOnly: true, WithProducts: true, ExcludeOwnerID: owner.ID})
	require.NoError(t, err)
	assert.Empty(t, visible)

	deleted, err := repo.Delete(ctx, store.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, store.Address.ID, deleted.Address.ID)

	var addresses int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM addresses WHERE id = $1`, store.Address.ID).Scan(&addresses))
	assert.Zero(t, addresses)

	gone, err := repo.Delete(ctx, store.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestProductRepo_CRUD(t *testing.T) {
	cleanupAll(t)

	repo := NewProductRepository(testPool)
	ctx := context.Background()

	store := createStore(t, createUser(t, "p@example.com"), "Kusina")
	product := createProduct(t, store, "Sinigang", 120)
	assert.Equal(t, model.DefaultProductImage, product.Image)

	found, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sinigang", found.Name)
	assert.Equal(t, "Kusina", found.StoreName)

	product.Name = "Sinigang na Baboy"
	require.NoError(t, repo.Update(ctx, product))

	found, _ = repo.GetByID(ctx, product.ID)
	assert.Equal(t, "Sinigang na Baboy", found.Name)

	dup := &model.Product{StoreID: store.ID, CategoryID: product.CategoryID, Name: "SINIGANG NA BABOY", Price: decimal.NewFromInt(5)}
	assert.True(t, IsConstraint(repo.Create(ctx, dup), ConstraintProductName))

	products, total, err := repo.List(ctx, ProductFilter{StoreID: store.ID, Search: "baboy", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, products, 1)

	require.NoError(t, repo.Delete(ctx, product.ID))
	found, _ = repo.GetByID(ctx, product.ID)
	assert.Nil(t, found)
}

func TestCartRepo_UpsertIncrements(t *testing.T) {
	cleanupAll(t)

	cartRepo := NewCartRepository(testPool)
	ctx := context.Background()

	user := createUser(t, "cart@example.com")
	product := createProduct(t, createStore(t, createUser(t, "s@example.com"), "Tindahan"), "Lumpia", 15)

	cart, err := cartRepo.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, cart)

	require.NoError(t, cartRepo.UpsertItem(ctx, &model.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 2}))
	item := &model.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 3}
	require.NoError(t, cartRepo.UpsertItem(ctx, item))
	assert.Equal(t, 5, item.Quantity)

	items, err := cartRepo.ListItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, user.ID, items[0].UserID)
	assert.Equal(t, "Tindahan", items[0].Product.StoreName)

	err = cartRepo.UpsertItem(ctx, &model.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 95})
	assert.True(t, IsConstraint(err, ConstraintCartItemQuantity))

	require.NoError(t, cartRepo.Clear(ctx, cart.ID))
	items, err = cartRepo.ListItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOrderRepo_CreateAndGet(t *testing.T) {
	cleanupAll(t)

	orderRepo := NewOrderRepository(testPool)
	ctx := context.Background()

	customer := createUser(t, "order@example.com")
	store := createStore(t, createUser(t, "so@example.com"), "Karinderya")
	product := createProduct(t, store, "Pancit", 25)
	cart, err := NewCartRepository(testPool).GetByUserID(ctx, customer.ID)
	require.NoError(t, err)

	tx := NewTransactor(testPool)
	order := &model.Order{
		CartID: cart.ID, CustomerID: customer.ID, StoreID: store.ID, Type: model.OrderTypeDelivery,
		DeliveryFee: decimal.NewFromInt(3), TotalPrice: decimal.NewFromInt(53),
	}
	err = tx.InTx(ctx, func(ctx context.Context) error {
		if err := orderRepo.Create(ctx, order); err != nil {
			return err
		}
		return orderRepo.CreateItems(ctx, order.ID, []model.OrderItem{
			{ProductID: &product.ID, ProductName: product.Name, Quantity: 2, PricePerItem: decimal.NewFromInt(50)},
		})
	})
	require.NoError(t, err)

	found, err := orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusNew, found.Status)
	assert.Equal(t, "Cebu", found.Store.City)
	require.Len(t, found.Items, 1)
	assert.True(t, decimal.NewFromInt(50).Equal(found.Items[0].PricePerItem))

	require.NoError(t, orderRepo.UpdateStatus(ctx, order.ID, model.OrderStatusCompleted))
	require.NoError(t, NewFeedbackRepository(testPool).Create(ctx, &model.Feedback{OrderID: order.ID, CustomerID: customer.ID, Rating: 4}))

	mine, err := orderRepo.ListByCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].HasSubmittedFeedback)
	assert.Len(t, mine[0].Items, 1)

	// Orders keep their store alive and their items survive product deletion.
	_, err = NewStoreRepository(testPool).Delete(ctx, store.ID)
	assert.True(t, IsConstraint(err, ConstraintOrderStore))

	require.NoError(t, NewProductRepository(testPool).Delete(ctx, product.ID))
	found, err = orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Nil(t, found.Items[0].ProductID)
	assert.Equal(t, "Pancit", found.Items[0].ProductName)
	require.Len(t, found.Feedbacks, 1)
	assert.Equal(t, "Juan Cruz", found.Feedbacks[0].CustomerName)
}

func TestTransactor_RollsBack(t *testing.T) {
	cleanupAll(t)

	ctx := context.Background()
	boom := errors.New("boom")
	err := NewTransactor(testPool).InTx(ctx, func(ctx context.Context) error {
		user := &model.User{Email: "rollback@example.com", Username: "rb", Password: "h"}
		if err := NewUserRepository(testPool).Create(ctx, user); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := NewUserRepository(testPool).GetByEmail(ctx, "rollback@example.com")
	require.NoError(t, err)
	assert.Nil(t, found)
}
