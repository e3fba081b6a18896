package handlers

import (
	"strconv"

	"github.com/creator-marketplace/backend/internal/http/dto"
	"github.com/creator-marketplace/backend/internal/middleware"
	"github.com/creator-marketplace/backend/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderRepo    *repositories.OrderRepo
	financeRepo  *repositories.FinanceRepo
	paymentRepo  *repositories.PaymentRepo
	timelineRepo *repositories.TimelineRepo
	log          *zap.Logger
}

func NewOrderHandler(
	orderRepo *repositories.OrderRepo,
	financeRepo *repositories.FinanceRepo,
	paymentRepo *repositories.PaymentRepo,
	timelineRepo *repositories.TimelineRepo,
	log *zap.Logger,
) *OrderHandler {
	return &OrderHandler{
		orderRepo:    orderRepo,
		financeRepo:  financeRepo,
		paymentRepo:  paymentRepo,
		timelineRepo: timelineRepo,
		log:          log,
	}
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid order id"})
	}

	order, err := h.orderRepo.GetByID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "order not found"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: order})
}

func (h *OrderHandler) GetFinance(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid order id"})
	}

	finance, err := h.financeRepo.GetByOrderID(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "finance record not found"})
	}

	// Escrow records are sensitive; keep an audit trail of who read them.
	h.log.Info("finance record read",
		zap.String("order_id", id.String()),
		zap.String("requested_by", middleware.GetUserID(c).String()),
	)

	return c.JSON(dto.SuccessResponse{OK: true, Data: finance})
}

func (h *OrderHandler) GetTimeline(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid order id"})
	}

	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	entries, err := h.timelineRepo.ListByOrder(c.Context(), id, limit, offset)
	if err != nil {
		h.log.Error("list timeline failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *OrderHandler) GetPayments(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid order id"})
	}

	payments, err := h.paymentRepo.ListByOrder(c.Context(), id)
	if err != nil {
		h.log.Error("list payments failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: payments})
}
