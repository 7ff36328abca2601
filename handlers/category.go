package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ammiranda/category_service/category"
	"github.com/ammiranda/category_service/models"
)

// CategoryHandler handles category-related HTTP requests
type CategoryHandler struct {
	service *category.Service
	logger  *slog.Logger
}

// NewCategoryHandler creates a new CategoryHandler instance
func NewCategoryHandler(service *category.Service, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the category API on r.
func (h *CategoryHandler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")

	tree := api.Group("/tree")
	{
		tree.GET("", h.GetForest)
		tree.GET("/roots", h.GetRoots)
		tree.GET("/integrity", h.GetIntegrity)
		tree.POST("/integrity/fix", h.FixIntegrity)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", h.GetForest)
		categories.POST("", h.CreateCategory)
		categories.GET("/:id", h.GetCategory)
		categories.PUT("/:id", h.UpdateCategory)
		categories.DELETE("/:id", h.DeleteCategory)
		categories.POST("/:id/move", h.MoveCategory)
		categories.GET("/:id/children", h.GetChildren)
		categories.GET("/:id/descendants", h.GetDescendants)
		categories.GET("/:id/ancestors", h.GetAncestors)
		categories.GET("/:id/siblings", h.GetSiblings)
		categories.GET("/:id/is-descendant-of/:ancestorId", h.IsDescendantOf)
	}
}

// RequestLogger logs every request with slog.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func parseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, c.Param(name))
	}
	return id, nil
}

func (h *CategoryHandler) fail(c *gin.Context, err error) {
	status := ErrorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// GetForest returns every category nested under its parent
func (h *CategoryHandler) GetForest(c *gin.Context) {
	forest, err := h.service.Forest(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, forest)
}

// GetRoots returns the root categories
func (h *CategoryHandler) GetRoots(c *gin.Context) {
	roots, err := h.service.Children(c.Request.Context(), nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, roots)
}

// CreateCategory creates a new category
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetCategory returns a single category
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	cat, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// UpdateCategory renames a category
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req models.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteCategory deletes a category; its children move up to its parent
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MoveCategory moves a category. An empty body makes it a root.
func (h *CategoryHandler) MoveCategory(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req models.MoveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	moved, err := h.service.Move(c.Request.Context(), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, moved)
}

// GetChildren returns the direct children of a category
func (h *CategoryHandler) GetChildren(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	children, err := h.service.Children(c.Request.Context(), &id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, children)
}

// GetDescendants returns the subtree below a category in preorder
func (h *CategoryHandler) GetDescendants(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	descendants, err := h.service.Descendants(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, descendants)
}

// GetAncestors returns the path from the root to a category's parent
func (h *CategoryHandler) GetAncestors(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	ancestors, err := h.service.Ancestors(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ancestors)
}

// GetSiblings returns the other children of a category's parent
func (h *CategoryHandler) GetSiblings(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	siblings, err := h.service.Siblings(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, siblings)
}

// IsDescendantOf reports whether one category lies inside another
func (h *CategoryHandler) IsDescendantOf(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	ancestorID, err := parseID(c, "ancestorId")
	if err != nil {
		h.fail(c, err)
		return
	}
	ok, err := h.service.IsDescendantOf(c.Request.Context(), id, ancestorID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "ancestorId": ancestorID, "isDescendant": ok})
}

// GetIntegrity reports boundary violations
func (h *CategoryHandler) GetIntegrity(c *gin.Context) {
	report, err := h.service.Verify(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"violations": report.Total(), "report": report})
}

// FixIntegrity rebuilds the boundaries from parent links
func (h *CategoryHandler) FixIntegrity(c *gin.Context) {
	report, err := h.service.Fix(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"violations": report.Total(), "report": report})
}
