package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"helpdesk-service/internal/auth"
	"helpdesk-service/internal/model"
	"helpdesk-service/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserService struct {
	userRepo *repository.UserRepository
	issuer   *auth.Issuer
}

func NewUserService(userRepo *repository.UserRepository, issuer *auth.Issuer) *UserService {
	return &UserService{
		userRepo: userRepo,
		issuer:   issuer,
	}
}

type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	FullName   string
	Phone      string
	Department string
	Role       string
}

// Register creates a new account. Self-registration always lands on the
// student role; other roles are provisioned by an admin. Role is set at
// creation and never changed by ticket operations.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	fields := map[string]string{}
	if strings.TrimSpace(input.Username) == "" {
		fields["username"] = "must not be empty"
	}
	if len(input.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}

	role := model.RoleStudent
	if input.Role != "" {
		role = model.UserRole(input.Role)
		if !role.Valid() {
			fields["role"] = "must be one of student, staff, technician, admin"
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if _, err := s.userRepo.GetByUsername(ctx, input.Username); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		FullName:     input.FullName,
		Phone:        input.Phone,
		Department:   input.Department,
		Role:         role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login verifies the credentials and issues an access token carrying the
// user id, username and role claims.
func (s *UserService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}
