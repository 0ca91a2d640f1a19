package routes

import (
	"net/http"

	"github.com/survivornet/beacon/backend/internal/server/middleware"
	"github.com/survivornet/beacon/backend/pkg/logger"
	"github.com/survivornet/beacon/backend/pkg/store"
	"github.com/survivornet/beacon/backend/pkg/store/pgstore"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// SearchBroadcastsHandler ranks processed broadcasts by similarity
// between their summary embedding and the query text.
func SearchBroadcastsHandler(c echo.Context) error {
	type searchBroadcastsBody struct {
		Query string `json:"query" validate:"required"`
		Limit int    `json:"limit"`
	}

	type searchBroadcastsResponse struct {
		Message    string            `json:"message"`
		Broadcasts []store.Broadcast `json:"broadcasts"`
	}

	data := new(searchBroadcastsBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, searchBroadcastsResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, searchBroadcastsResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, searchBroadcastsResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	aiClient := c.(*middleware.AppContext).App.AiClient

	embedding, err := aiClient.GenerateEmbedding(ctx, []byte(data.Query))
	if err != nil {
		logger.Error("Failed to embed search query", "err", err)
		return c.JSON(http.StatusInternalServerError, searchBroadcastsResponse{
			Message: "Internal server error",
		})
	}

	conn := c.(*middleware.AppContext).App.DBConn
	broadcasts, err := pgstore.New(conn).SearchBroadcasts(ctx, embedding, data.Limit)
	if err != nil {
		logger.Error("Failed to search broadcasts", "err", err)
		return c.JSON(http.StatusInternalServerError, searchBroadcastsResponse{
			Message: "Internal server error",
		})
	}
	if broadcasts == nil {
		broadcasts = make([]store.Broadcast, 0)
	}

	return c.JSON(http.StatusOK, searchBroadcastsResponse{
		Message:    "OK",
		Broadcasts: broadcasts,
	})
}
