package handlers

import (
	"github.com/creator-marketplace/backend/internal/config"
	"github.com/creator-marketplace/backend/internal/http/dto"
	"github.com/creator-marketplace/backend/internal/razorpay"
	"github.com/creator-marketplace/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	reconcile *services.ReconcileService
	cfg       *config.Config
	log       *zap.Logger
}

func NewWebhookHandler(reconcile *services.ReconcileService, cfg *config.Config, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{reconcile: reconcile, cfg: cfg, log: log}
}

// HandleRazorpay processes a webhook delivery. The signature is checked over
// the raw body before any parsing. Once signature and decode pass, the
// response is 200 even when effects are skipped — only a store failure answers
// 5xx, which is what tells Razorpay to redeliver.
func (h *WebhookHandler) HandleRazorpay(c *fiber.Ctx) error {
	body := c.Body()
	signature := c.Get("X-Razorpay-Signature")

	if !razorpay.VerifySignature(body, signature, h.cfg.RazorpayWebhookSecret) {
		h.log.Warn("webhook signature verification failed", zap.String("ip", c.IP()))
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid signature"})
	}

	event, err := razorpay.ParseEvent(body)
	if err != nil {
		h.log.Warn("webhook body decode failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid JSON"})
	}

	if err := h.reconcile.HandleEvent(c.Context(), event); err != nil {
		h.log.Error("webhook reconciliation failed",
			zap.String("event", event.Kind),
			zap.String("external_id", event.ExternalID()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.SendString("OK")
}
