package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"helpdesk-service/internal/model"
	"helpdesk-service/internal/repository"
)

type CategoryService struct {
	categoryRepo *repository.CategoryRepository
	userRepo     *repository.UserRepository
}

func NewCategoryService(categoryRepo *repository.CategoryRepository, userRepo *repository.UserRepository) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		userRepo:     userRepo,
	}
}

type CreateCategoryInput struct {
	Name                string
	Description         string
	DefaultTechnicianID string
}

func (s *CategoryService) Create(ctx context.Context, principal model.Principal, input CreateCategoryInput) (*model.Category, error) {
	if !allowed(principal, opCategoryManage) {
		return nil, ErrPermissionDenied
	}

	if strings.TrimSpace(input.Name) == "" {
		return nil, &ValidationError{Fields: map[string]string{"name": "must not be empty"}}
	}

	category := &model.Category{
		Name:        input.Name,
		Description: input.Description,
	}

	if input.DefaultTechnicianID != "" {
		id, err := uuid.Parse(input.DefaultTechnicianID)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{"default_technician_id": "must be a valid id"}}
		}
		// Any existing user is accepted as the default assignee.
		if _, err := s.userRepo.GetByID(ctx, id.String()); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		category.DefaultTechnicianID = &id
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.categoryRepo.List(ctx)
}
