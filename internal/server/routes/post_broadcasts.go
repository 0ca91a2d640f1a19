package routes

import (
	"encoding/json"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/survivornet/beacon/backend/internal/queue"
	"github.com/survivornet/beacon/backend/internal/server/middleware"
	"github.com/survivornet/beacon/backend/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CreateBroadcastHandler accepts multipart/form-data media uploads and
// queues one extraction job per file. Processing is asynchronous; the
// response only confirms that the jobs were accepted.
func CreateBroadcastHandler(c echo.Context) error {
	type createBroadcastBody struct {
		SurvivorHint string `form:"survivor_hint"`
	}

	type acceptedAttachment struct {
		MediaURI      string `json:"media_uri"`
		MediaType     string `json:"media_type"`
		Filename      string `json:"filename"`
		CorrelationID string `json:"correlation_id"`
	}

	type createBroadcastResponse struct {
		Message     string               `json:"message"`
		Attachments []acceptedAttachment `json:"attachments,omitempty"`
	}

	data := new(createBroadcastBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createBroadcastResponse{
			Message: "Invalid request body",
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, createBroadcastResponse{
			Message: "Invalid request body",
		})
	}
	uploads := form.File["media"]
	if len(uploads) == 0 {
		return c.JSON(http.StatusBadRequest, createBroadcastResponse{
			Message: "No media provided",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, createBroadcastResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	media := c.(*middleware.AppContext).App.Media
	ch := c.(*middleware.AppContext).App.Queue

	attachments := make([]acceptedAttachment, 0, len(uploads))
	for _, file := range uploads {
		mediaType := classifyMedia(file.Filename, file.Header.Get("Content-Type"))
		if mediaType == "" {
			return c.JSON(http.StatusBadRequest, createBroadcastResponse{
				Message: "Unsupported media type: " + file.Filename,
			})
		}

		src, err := file.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, createBroadcastResponse{
				Message: "Could not open file",
			})
		}
		defer src.Close()

		fId, err := gonanoid.New()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, createBroadcastResponse{
				Message: "Internal server error",
			})
		}
		uri, err := media.Put(ctx, "uploads", file.Filename, fId, src)
		if err != nil {
			logger.Error("Failed to upload media", "err", err)
			return c.JSON(http.StatusInternalServerError, createBroadcastResponse{
				Message: "Internal server error",
			})
		}

		attachments = append(attachments, acceptedAttachment{
			MediaURI:      uri,
			MediaType:     mediaType,
			Filename:      file.Filename,
			CorrelationID: fId,
		})
	}

	for _, attachment := range attachments {
		msg, err := json.Marshal(queue.BroadcastJobMsg{
			MediaURI:      attachment.MediaURI,
			MediaType:     attachment.MediaType,
			CorrelationID: attachment.CorrelationID,
			SurvivorHint:  data.SurvivorHint,
		})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, createBroadcastResponse{
				Message: "Internal server error",
			})
		}
		if err := queue.PublishFIFO(ch, queue.BroadcastQueue, msg); err != nil {
			logger.Error("Failed to publish to broadcast_queue", "err", err)
			return c.JSON(http.StatusInternalServerError, createBroadcastResponse{
				Message: "Internal server error",
			})
		}
	}

	return c.JSON(http.StatusAccepted, createBroadcastResponse{
		Message:     "Broadcast accepted for processing",
		Attachments: attachments,
	})
}

func classifyMedia(filename, contentType string) string {
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	case strings.HasPrefix(contentType, "text/"), contentType == "application/json":
		return "text"
	}
	return ""
}
