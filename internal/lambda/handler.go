// Package lambda adapts the category service to API Gateway proxy events.
package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/ammiranda/category_service/category"
	"github.com/ammiranda/category_service/handlers"
	"github.com/ammiranda/category_service/models"
)

// Handler represents the Lambda handler with its dependencies
type Handler struct {
	service *category.Service
}

// NewHandler creates a new Handler with the given service
func NewHandler(service *category.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// Handle processes API Gateway events
func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := strings.TrimSuffix(request.Path, "/")
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")

	switch {
	case request.HTTPMethod == http.MethodGet && (path == "/api/tree" || path == "/api/categories"):
		return h.handleGetForest(ctx)
	case request.HTTPMethod == http.MethodPost && path == "/api/categories":
		return h.handleCreate(ctx, request)
	case len(segments) >= 3 && segments[0] == "api" && segments[1] == "categories":
		id, err := strconv.ParseInt(segments[2], 10, 64)
		if err != nil || id <= 0 {
			return errorResponse(fmt.Errorf("%w: %q", handlers.ErrInvalidID, segments[2])), nil
		}
		switch {
		case len(segments) == 3 && request.HTTPMethod == http.MethodGet:
			return h.handleGet(ctx, id)
		case len(segments) == 3 && request.HTTPMethod == http.MethodDelete:
			return h.handleDelete(ctx, id)
		case len(segments) == 4 && segments[3] == "move" && request.HTTPMethod == http.MethodPost:
			return h.handleMove(ctx, id, request)
		}
	}

	return jsonResponse(http.StatusNotFound, map[string]string{"error": "Not found"}), nil
}

func (h *Handler) handleGetForest(ctx context.Context) (events.APIGatewayProxyResponse, error) {
	forest, err := h.service.Forest(ctx)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, forest), nil
}

func (h *Handler) handleGet(ctx context.Context, id int64) (events.APIGatewayProxyResponse, error) {
	c, err := h.service.Get(ctx, id)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, c), nil
}

func (h *Handler) handleCreate(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.CreateCategoryRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid request: %v", err)}), nil
	}

	created, err := h.service.Create(ctx, &req)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(http.StatusCreated, created), nil
}

func (h *Handler) handleMove(ctx context.Context, id int64, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.MoveCategoryRequest
	if strings.TrimSpace(request.Body) != "" {
		if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
			return jsonResponse(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid request: %v", err)}), nil
		}
	}

	moved, err := h.service.Move(ctx, id, &req)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, moved), nil
}

func (h *Handler) handleDelete(ctx context.Context, id int64) (events.APIGatewayProxyResponse, error) {
	if err := h.service.Delete(ctx, id); err != nil {
		return errorResponse(err), nil
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}, nil
}

func errorResponse(err error) events.APIGatewayProxyResponse {
	return jsonResponse(handlers.ErrorStatus(err), map[string]string{"error": err.Error()})
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       fmt.Sprintf(`{"error": "Failed to marshal response: %v"}`, err),
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
