package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammiranda/category_service/cache"
	"github.com/ammiranda/category_service/category"
	"github.com/ammiranda/category_service/internal/logger"
	"github.com/ammiranda/category_service/models"
	"github.com/ammiranda/category_service/nestedset"
	"github.com/ammiranda/category_service/repository"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Initialize(context.Background()))
	log := logger.Discard()
	svc := category.NewService(nestedset.New(store, nestedset.WithLogger(log)), cache.NewMockCache(), log)
	return NewHandler(svc)
}

func invoke(t *testing.T, h *Handler, method, path, body string) events.APIGatewayProxyResponse {
	t.Helper()
	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
	})
	require.NoError(t, err)
	return resp
}

func createCategory(t *testing.T, h *Handler, body string) *models.Category {
	t.Helper()
	resp := invoke(t, h, http.MethodPost, "/api/categories", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, resp.Body)
	var c models.Category
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &c))
	return &c
}

func TestHandleCreateMoveDelete(t *testing.T) {
	h := newTestHandler(t)

	r1 := createCategory(t, h, `{"name":"R1"}`)
	r2 := createCategory(t, h, `{"name":"R2"}`)
	c := createCategory(t, h, fmt.Sprintf(`{"name":"C","parentId":%d}`, r1.ID))

	resp := invoke(t, h, http.MethodPost, fmt.Sprintf("/api/categories/%d/move", c.ID), fmt.Sprintf(`{"parentId":%d}`, r2.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)

	resp = invoke(t, h, http.MethodGet, "/api/tree", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var forest []*models.Category
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &forest))
	require.Len(t, forest, 2)
	assert.Empty(t, forest[0].Children)
	require.Len(t, forest[1].Children, 1)
	assert.Equal(t, c.ID, forest[1].Children[0].ID)

	resp = invoke(t, h, http.MethodDelete, fmt.Sprintf("/api/categories/%d", r2.ID), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = invoke(t, h, http.MethodGet, fmt.Sprintf("/api/categories/%d", c.ID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.Category
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &got))
	assert.Nil(t, got.ParentID, "child of a deleted root becomes a root")
}

func TestHandleErrors(t *testing.T) {
	h := newTestHandler(t)

	resp := invoke(t, h, http.MethodPost, "/api/categories", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = invoke(t, h, http.MethodPost, "/api/categories", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = invoke(t, h, http.MethodGet, "/api/categories/99", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = invoke(t, h, http.MethodGet, "/api/categories/x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	root := createCategory(t, h, `{"name":"Root"}`)
	child := createCategory(t, h, fmt.Sprintf(`{"name":"Child","parentId":%d}`, root.ID))
	resp = invoke(t, h, http.MethodPost, fmt.Sprintf("/api/categories/%d/move", root.ID), fmt.Sprintf(`{"parentId":%d}`, child.ID))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = invoke(t, h, http.MethodPatch, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
