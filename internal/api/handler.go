package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wonhyungLee/hookingauto/internal/exchange"
	"github.com/wonhyungLee/hookingauto/internal/hedge"
	"github.com/wonhyungLee/hookingauto/internal/metrics"
	"github.com/wonhyungLee/hookingauto/internal/publisher"
	"github.com/wonhyungLee/hookingauto/pkg/model"
)

// OrderExecutor executes one validated order request.
type OrderExecutor interface {
	Execute(ctx context.Context, req *model.OrderRequest) (*exchange.OrderResult, error)
}

// HedgeRunner runs one validated hedge request end to end.
type HedgeRunner interface {
	Run(ctx context.Context, req *model.HedgeRequest) (*hedge.Outcome, error)
}

// Handler serves the webhook endpoints.
type Handler struct {
	logger    *zap.Logger
	executor  OrderExecutor
	hedger    HedgeRunner
	exchanges *exchange.Registry
	pub       *publisher.Publisher
}

// NewHandler creates a Handler. pub may be nil when no broker is
// configured.
func NewHandler(logger *zap.Logger, executor OrderExecutor, hedger HedgeRunner, exchanges *exchange.Registry, pub *publisher.Publisher) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:    logger,
		executor:  executor,
		hedger:    hedger,
		exchanges: exchanges,
		pub:       pub,
	}
}

// HandleOrder executes a single-exchange order instruction.
func (h *Handler) HandleOrder(c *fiber.Ctx) error {
	var req model.OrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(model.Error(err.Error()))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(model.Error(err.Error()))
	}

	correlationID := uuid.New()
	start := time.Now()

	h.logger.Info("api.order.received",
		zap.String("correlation_id", correlationID.String()),
		zap.String("exchange", req.Exchange),
		zap.String("symbol", req.Symbol()),
		zap.String("side", req.Side),
		zap.String("type", string(req.Type)))

	res, err := h.executor.Execute(c.Context(), &req)
	metrics.ObserveDuration(metrics.OrderDuration, start, req.Exchange, string(req.Type))

	ev := model.OrderEvent{
		Exchange: req.Exchange,
		Symbol:   req.Symbol(),
		Side:     req.Side,
		Kind:     string(req.Type),
		Price:    req.Price,
	}
	if req.Amount != nil {
		ev.Amount = *req.Amount
	}

	if err != nil {
		h.logger.Error("api.order.failed",
			zap.String("correlation_id", correlationID.String()),
			zap.String("exchange", req.Exchange),
			zap.String("symbol", req.Symbol()),
			zap.Error(err))
		metrics.IncOrder(req.Exchange, string(req.Type), req.Side, "error")

		ev.Status = "error"
		ev.Reason = err.Error()
		if pubErr := h.pub.PublishOrderEvent(c.Context(), correlationID, ev); pubErr != nil {
			h.logger.Warn("api.order.publish_failed", zap.Error(pubErr))
		}
		return c.Status(fiber.StatusBadRequest).JSON(model.Error(err.Error()))
	}

	metrics.IncOrder(req.Exchange, string(req.Type), req.Side, "ok")
	ev.Status = "success"
	ev.OrderID = res.ID
	ev.Amount = res.Filled
	if pubErr := h.pub.PublishOrderEvent(c.Context(), correlationID, ev); pubErr != nil {
		h.logger.Warn("api.order.publish_failed", zap.Error(pubErr))
	}

	filled := res.Filled
	return c.Status(fiber.StatusOK).JSON(OrderResponse{
		Result:  model.Success(),
		OrderID: res.ID,
		Symbol:  req.Symbol(),
		Filled:  &filled,
	})
}

// HandleHedge opens or unwinds a two-exchange hedge.
func (h *Handler) HandleHedge(c *fiber.Ctx) error {
	var req model.HedgeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(model.Error(err.Error()))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(model.Error(err.Error()))
	}

	correlationID := uuid.New()
	op := "open"
	if req.Hedge == model.HedgeOff {
		op = "close"
	}

	h.logger.Info("api.hedge.received",
		zap.String("correlation_id", correlationID.String()),
		zap.String("base", req.Base),
		zap.String("exchange", req.Exchange),
		zap.String("mode", string(req.Hedge)))

	out, err := h.hedger.Run(c.Context(), &req)

	ev := model.HedgeEvent{
		Mode:  string(req.Hedge),
		Base:  req.Base,
		Quote: req.Quote,
	}

	if err != nil {
		h.logger.Error("api.hedge.failed",
			zap.String("correlation_id", correlationID.String()),
			zap.String("base", req.Base),
			zap.Error(err))
		metrics.IncHedgeOperation(op, "error")

		ev.Status = "error"
		ev.ForeignExchange = req.Exchange
		var legErr *hedge.LegError
		if errors.As(err, &legErr) {
			ev.Note = "failed leg: " + legErr.Leg
		}
		if pubErr := h.pub.PublishHedgeEvent(c.Context(), correlationID, ev); pubErr != nil {
			h.logger.Warn("api.hedge.publish_failed", zap.Error(pubErr))
		}
		return c.Status(fiber.StatusBadRequest).JSON(model.Error(err.Error()))
	}

	metrics.IncHedgeOperation(op, "ok")
	ev.Status = "success"
	ev.ForeignExchange = out.ForeignExchange
	ev.ForeignAmount = out.ForeignAmount
	ev.DomesticExchange = out.DomesticExchange
	ev.DomesticAmount = out.DomesticAmount
	ev.Note = out.Note
	if pubErr := h.pub.PublishHedgeEvent(c.Context(), correlationID, ev); pubErr != nil {
		h.logger.Warn("api.hedge.publish_failed", zap.Error(pubErr))
	}

	result := model.Success()
	if out.Note != "" {
		result = model.SuccessMsg(out.Note)
	}
	foreignAmt, domesticAmt := out.ForeignAmount, out.DomesticAmount
	return c.Status(fiber.StatusOK).JSON(HedgeResponse{
		Result:           result,
		ForeignExchange:  out.ForeignExchange,
		ForeignAmount:    &foreignAmt,
		DomesticExchange: out.DomesticExchange,
		DomesticAmount:   &domesticAmt,
	})
}

// HandlePrice returns the last traded price for a pair.
func (h *Handler) HandlePrice(c *fiber.Ctx) error {
	var req PriceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(model.Error(err.Error()))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(model.Error(err.Error()))
	}

	lookup := req.toOrderRequest()
	gw, err := h.exchanges.Gateway(lookup.Exchange, lookup.Market())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(model.Error(err.Error()))
	}

	price, err := gw.LastPrice(c.Context(), lookup.Symbol())
	if err != nil {
		h.logger.Error("api.price.failed",
			zap.String("exchange", req.Exchange),
			zap.String("symbol", lookup.Symbol()),
			zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(model.Error(err.Error()))
	}

	return c.Status(fiber.StatusOK).JSON(PriceResponse{
		Result: model.Success(),
		Symbol: lookup.Symbol(),
		Price:  price,
	})
}
