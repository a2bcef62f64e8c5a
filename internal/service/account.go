package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/foodville/marketplace-api/internal/access"
	"github.com/foodville/marketplace-api/internal/dto"
	"github.com/foodville/marketplace-api/internal/model"
	"github.com/foodville/marketplace-api/internal/repository"
)

const (
	minimumAge = 13
	dateLayout = "2006-01-02"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

type AccountService struct {
	userRepo  repository.UserRepository
	cartRepo  repository.CartRepository
	tx        repository.Transactor
	jwtSecret []byte
	jwtExpiry time.Duration
	now       Clock
}

func NewAccountService(userRepo repository.UserRepository, cartRepo repository.CartRepository, tx repository.Transactor, jwtSecret string, jwtExpiry time.Duration, now Clock) *AccountService {
	return &AccountService{userRepo: userRepo, cartRepo: cartRepo, tx: tx, jwtSecret: []byte(jwtSecret), jwtExpiry: jwtExpiry, now: now}
}

func (s *AccountService) parseBirthDate(raw string) (time.Time, error) {
	birth, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, NewValidationError("birth_date", "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.")
	}
	u := model.User{BirthDate: birth}
	if u.Age(s.now()) < minimumAge {
		return time.Time{}, NewValidationError("birth_date", "You must be at least 13 years old to register.")
	}
	return birth, nil
}

// Register creates the user together with their cart.
func (s *AccountService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	birth, err := s.parseBirthDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return nil, NewValidationError("email", "A user with that email already exists.")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email: strings.TrimSpace(req.Email), Username: req.Username, Password: string(hashed),
		FirstName: req.FirstName, LastName: req.LastName, BirthDate: birth, Address: req.Address,
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		return s.cartRepo.Create(ctx, &model.Cart{UserID: user.ID})
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", fromConstraint(err))
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, User: toUserResponse(user, nil)}, nil
}

func (s *AccountService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	groups, err := s.userRepo.GroupNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get groups: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, User: toUserResponse(user, groups)}, nil
}

func (s *AccountService) Me(ctx context.Context, p access.Principal) (*dto.UserResponse, error) {
	if !p.Authenticated() {
		return nil, access.ErrUnauthenticated
	}
	user, err := s.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	groups, err := s.userRepo.GroupNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get groups: %w", err)
	}
	resp := toUserResponse(user, groups)
	return &resp, nil
}

func (s *AccountService) UpdateMe(ctx context.Context, p access.Principal, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if !p.Authenticated() {
		return nil, access.ErrUnauthenticated
	}
	user, err := s.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.BirthDate != nil {
		birth, err := s.parseBirthDate(*req.BirthDate)
		if err != nil {
			return nil, err
		}
		user.BirthDate = birth
	}
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Address != nil {
		user.Address = *req.Address
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", fromConstraint(err))
	}
	groups, err := s.userRepo.GroupNames(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get groups: %w", err)
	}
	resp := toUserResponse(user, groups)
	return &resp, nil
}

func (s *AccountService) generateToken(user *model.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"exp": now.Add(s.jwtExpiry).Unix(),
		"iat": now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func toUserResponse(user *model.User, groups []string) dto.UserResponse {
	resp := dto.UserResponse{
		ID: user.ID, Email: user.Email, Username: user.Username,
		FirstName: user.FirstName, LastName: user.LastName,
		Address: user.Address, IsStaff: user.IsStaff, Groups: groups,
	}
	if resp.Groups == nil {
		resp.Groups = []string{}
	}
	if !user.BirthDate.IsZero() {
		resp.BirthDate = user.BirthDate.Format(dateLayout)
	}
	return resp
}
