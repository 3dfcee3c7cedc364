package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/avelarde/crosspost/internal/queue"
	"github.com/avelarde/crosspost/internal/service"
	"github.com/avelarde/crosspost/internal/transfer"
)

type PostHandler struct {
	s       service.PostService
	publish service.PublishService
	q       *queue.Queue
}

func NewPostHandler(service service.PostService, publish service.PublishService, q *queue.Queue) *PostHandler {
	return &PostHandler{s: service, publish: publish, q: q}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	accountID, _ := strconv.ParseInt(c.FormValue("account_id"), 10, 64)

	creation := &transfer.PostCreation{
		Caption:       c.FormValue("caption"),
		Title:         c.FormValue("title"),
		PostType:      c.FormValue("post_type"),
		ScheduledTime: c.FormValue("scheduling_time"),
		AccountID:     accountID,
	}

	if raw := c.FormValue("comments"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &creation.Comments); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to parse comments",
			})
		}
	}

	media, err := collectMedia(form)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	post, delay, err := h.s.Create(c.Context(), userID, creation, media)
	if err != nil {
		return errorResponse(c, err)
	}

	if creation.ScheduledTime != "" {
		if err := h.q.EnqueuePost(c.Context(), post.ID, delay); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error scheduling post",
			})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Post scheduled successfully",
			"post_id": post.ID,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Draft created",
		"post_id": post.ID,
	})
}

func collectMedia(form *multipart.Form) ([]transfer.MediaInput, error) {
	var inputs []transfer.MediaInput
	position := 0

	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, transfer.MediaInput{
			Position:    position,
			FileName:    fh.Filename,
			FileBytes:   data,
			ContentType: fh.Header.Get("Content-Type"),
		})
		position++
	}

	for _, raw := range form.Value["media_urls"] {
		if raw == "" {
			continue
		}
		inputs = append(inputs, transfer.MediaInput{
			Position: position,
			URL:      raw,
		})
		position++
	}

	return inputs, nil
}

func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.publish.SubmitNow(c.Context(), userID, int64(postID)); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post published",
	})
}

func (h *PostHandler) CancelPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.publish.Cancel(c.Context(), userID, int64(postID)); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post cancelled",
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, media, err := h.s.GetByID(c.Context(), userID, int64(postID))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"post":  post,
			"media": media,
		})
	}

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(postID)); err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
