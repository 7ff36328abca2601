package models

import (
	"github.com/go-playground/validator/v10"

	"github.com/ammiranda/category_service/internal/slug"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.Valid(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// CreateCategoryRequest represents the request body for creating a category.
// At most one of ParentID, BeforeID and AfterID may be set; none creates a
// new root.
type CreateCategoryRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Slug     string `json:"slug,omitempty" validate:"omitempty,max=120,slug"`
	ParentID *int64 `json:"parentId,omitempty" validate:"omitempty,gt=0,excluded_with=BeforeID AfterID"`
	BeforeID *int64 `json:"beforeId,omitempty" validate:"omitempty,gt=0,excluded_with=ParentID AfterID"`
	AfterID  *int64 `json:"afterId,omitempty" validate:"omitempty,gt=0,excluded_with=ParentID BeforeID"`
}

// UpdateCategoryRequest represents the request body for renaming a category
type UpdateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
	Slug string `json:"slug,omitempty" validate:"omitempty,max=120,slug"`
}

// MoveCategoryRequest represents the request body for moving a category.
// With every field empty the category becomes a root.
type MoveCategoryRequest struct {
	ParentID *int64 `json:"parentId,omitempty" validate:"omitempty,gt=0,excluded_with=BeforeID AfterID"`
	BeforeID *int64 `json:"beforeId,omitempty" validate:"omitempty,gt=0,excluded_with=ParentID AfterID"`
	AfterID  *int64 `json:"afterId,omitempty" validate:"omitempty,gt=0,excluded_with=ParentID BeforeID"`
}

// Validate validates the create category request
func (r *CreateCategoryRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the update category request
func (r *UpdateCategoryRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the move category request
func (r *MoveCategoryRequest) Validate() error {
	return validate.Struct(r)
}
