package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/avelarde/crosspost/internal/service"
)

type AnalyticsHandler struct {
	s          service.AnalyticsService
	permalinks service.PermalinkService
}

func NewAnalyticsHandler(service service.AnalyticsService, permalinks service.PermalinkService) *AnalyticsHandler {
	return &AnalyticsHandler{s: service, permalinks: permalinks}
}

func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	userID := GetUserID(c)

	summary, err := h.s.Summary(c.Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(summary)
}

func (h *AnalyticsHandler) SyncInsights(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("account_id", 0)

	if err := h.s.SyncInsights(c.Context(), userID, int64(accountID)); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Insights synced",
	})
}

func (h *AnalyticsHandler) Permalink(c *fiber.Ctx) error {
	userID := GetUserID(c)
	publicationID := c.QueryInt("id", 0)

	link, err := h.permalinks.Resolve(c.Context(), userID, int64(publicationID))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(link)
}

func (h *AnalyticsHandler) ResyncPermalink(c *fiber.Ctx) error {
	userID := GetUserID(c)
	publicationID := c.QueryInt("id", 0)

	link, err := h.permalinks.Resync(c.Context(), userID, int64(publicationID))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(link)
}
