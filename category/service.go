// Package category exposes categories as a hierarchical entity backed by the
// nested-set engine, with the rendered forest cached between changes.
package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ammiranda/category_service/cache"
	"github.com/ammiranda/category_service/internal/slug"
	"github.com/ammiranda/category_service/models"
	"github.com/ammiranda/category_service/nestedset"
)

// ErrInvalidInput is returned for requests that fail validation.
var ErrInvalidInput = errors.New("invalid input")

// Service implements the category operations.
type Service struct {
	tree   *nestedset.Tree
	cache  cache.Provider
	logger *slog.Logger

	// mu orders cache fills against invalidations. generation counts
	// committed mutations; a forest read that spans one is not cached.
	mu         sync.Mutex
	generation uint64
}

// NewService composes a category service from a tree and a forest cache.
// A nil cache disables caching.
func NewService(tree *nestedset.Tree, c cache.Provider, logger *slog.Logger) *Service {
	if c == nil {
		c = cache.NoopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tree: tree, cache: c, logger: logger}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func payload(name, s string) (nestedset.Payload, error) {
	if s == "" {
		s = slug.Make(name)
	}
	if s == "" {
		return nestedset.Payload{}, invalid(fmt.Errorf("cannot derive a slug from name %q", name))
	}
	return nestedset.Payload{Name: name, Slug: s}, nil
}

// changed invalidates the cached forest and logs a successful mutation.
func (s *Service) changed(ctx context.Context, op string, start time.Time, id int64, parentID *int64) {
	s.mu.Lock()
	s.generation++
	err := s.cache.Invalidate(ctx)
	s.mu.Unlock()
	if err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate category cache", "op", op, "error", err)
	}

	attrs := []any{"op", op, "category_id", id, "duration", time.Since(start)}
	if parentID != nil {
		attrs = append(attrs, "parent_id", *parentID)
	}
	s.logger.InfoContext(ctx, "category changed", attrs...)
}

// Create adds a category. Without a position it becomes the last root.
func (s *Service) Create(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	p, err := payload(req.Name, req.Slug)
	if err != nil {
		return nil, err
	}

	pos := nestedset.Position{ParentID: req.ParentID, BeforeID: req.BeforeID, AfterID: req.AfterID}
	n, err := s.tree.CreateAt(ctx, pos, p)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "create", start, n.ID, n.ParentID)
	return models.NewCategory(n), nil
}

// Get returns a single category.
func (s *Service) Get(ctx context.Context, id int64) (*models.Category, error) {
	n, err := s.tree.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.NewCategory(n), nil
}

// Update renames a category. Its position is unchanged.
func (s *Service) Update(ctx context.Context, id int64, req *models.UpdateCategoryRequest) (*models.Category, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	p, err := payload(req.Name, req.Slug)
	if err != nil {
		return nil, err
	}
	if err := s.tree.Rename(ctx, id, p); err != nil {
		return nil, err
	}
	s.changed(ctx, "update", start, id, nil)
	return s.Get(ctx, id)
}

// Move relocates a category and its subtree. An empty request makes it a
// root.
func (s *Service) Move(ctx context.Context, id int64, req *models.MoveCategoryRequest) (*models.Category, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	pos := nestedset.Position{ParentID: req.ParentID, BeforeID: req.BeforeID, AfterID: req.AfterID}
	if err := s.tree.MoveTo(ctx, id, pos); err != nil {
		return nil, err
	}
	s.changed(ctx, "move", start, id, req.ParentID)
	return s.Get(ctx, id)
}

// MoveToParent makes id the last child of parentID, or a root when nil.
func (s *Service) MoveToParent(ctx context.Context, id int64, parentID *int64) (*models.Category, error) {
	return s.Move(ctx, id, &models.MoveCategoryRequest{ParentID: parentID})
}

// MoveBefore places id directly before siblingID.
func (s *Service) MoveBefore(ctx context.Context, id, siblingID int64) (*models.Category, error) {
	return s.Move(ctx, id, &models.MoveCategoryRequest{BeforeID: &siblingID})
}

// MoveAfter places id directly after siblingID.
func (s *Service) MoveAfter(ctx context.Context, id, siblingID int64) (*models.Category, error) {
	return s.Move(ctx, id, &models.MoveCategoryRequest{AfterID: &siblingID})
}

// Delete removes a category. Its children take its place under its parent.
func (s *Service) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	if err := s.tree.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, "delete", start, id, nil)
	return nil
}

// Children lists the direct children of parentID, or the roots when nil.
func (s *Service) Children(ctx context.Context, parentID *int64) ([]*models.Category, error) {
	nodes, err := s.tree.Children(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return models.NewCategories(nodes), nil
}

// Descendants lists the subtree below id in preorder.
func (s *Service) Descendants(ctx context.Context, id int64) ([]*models.Category, error) {
	nodes, err := s.tree.Descendants(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.NewCategories(nodes), nil
}

// Ancestors lists the path from the root down to the parent of id.
func (s *Service) Ancestors(ctx context.Context, id int64) ([]*models.Category, error) {
	nodes, err := s.tree.Ancestors(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.NewCategories(nodes), nil
}

// Siblings lists the other children of id's parent.
func (s *Service) Siblings(ctx context.Context, id int64) ([]*models.Category, error) {
	nodes, err := s.tree.Siblings(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.NewCategories(nodes), nil
}

// IsDescendantOf reports whether id lies strictly inside ancestorID.
func (s *Service) IsDescendantOf(ctx context.Context, id, ancestorID int64) (bool, error) {
	return s.tree.IsDescendantOf(ctx, id, ancestorID)
}

// Forest returns every category nested under its parent, served from the
// cache when possible.
func (s *Service) Forest(ctx context.Context) ([]*models.Category, error) {
	if forest, ok := s.cache.GetForest(ctx); ok {
		return forest, nil
	}

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	nodes, err := s.tree.Forest(ctx)
	if err != nil {
		return nil, err
	}
	forest := models.NewForest(nodes)

	s.mu.Lock()
	if s.generation == gen {
		s.cache.SetForest(ctx, forest)
	}
	s.mu.Unlock()
	return forest, nil
}

// Verify checks the stored boundaries and returns the violation report.
func (s *Service) Verify(ctx context.Context) (*nestedset.IntegrityReport, error) {
	return s.tree.CountErrors(ctx)
}

// Fix rebuilds every boundary from the parent links and returns the report
// taken afterwards.
func (s *Service) Fix(ctx context.Context) (*nestedset.IntegrityReport, error) {
	start := time.Now()
	if err := s.tree.FixTree(ctx); err != nil {
		return nil, err
	}
	s.changed(ctx, "fix", start, 0, nil)
	return s.tree.CountErrors(ctx)
}
