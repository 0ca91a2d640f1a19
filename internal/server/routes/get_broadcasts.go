package routes

import (
	"errors"
	"net/http"

	"github.com/survivornet/beacon/backend/internal/server/middleware"
	"github.com/survivornet/beacon/backend/pkg/store"
	"github.com/survivornet/beacon/backend/pkg/store/pgstore"

	_ "github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func GetBroadcastHandler(c echo.Context) error {
	type getBroadcastParams struct {
		ID string `param:"id" validate:"required,uuid"`
	}

	type getBroadcastResponse struct {
		Message   string           `json:"message"`
		Broadcast *store.Broadcast `json:"broadcast,omitempty"`
	}

	params := new(getBroadcastParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getBroadcastResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getBroadcastResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, getBroadcastResponse{
			Message: "Unauthorized",
		})
	}

	id, err := uuid.Parse(params.ID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, getBroadcastResponse{
			Message: "Invalid request params",
		})
	}

	ctx := c.Request().Context()
	conn := c.(*middleware.AppContext).App.DBConn

	broadcast, err := pgstore.New(conn).GetBroadcast(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, getBroadcastResponse{
			Message: "Broadcast not found",
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, getBroadcastResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getBroadcastResponse{
		Message:   "Broadcast found",
		Broadcast: broadcast,
	})
}
