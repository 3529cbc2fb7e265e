package shop

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/badrx15/ibericosgourmet/internal/dto"
	"github.com/badrx15/ibericosgourmet/internal/entity"
	"github.com/badrx15/ibericosgourmet/internal/presentation/http/response"
	service "github.com/badrx15/ibericosgourmet/internal/service/order"
	"github.com/badrx15/ibericosgourmet/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/badrx15/ibericosgourmet/transport/http/shop")

const wholesaleAckScript = `<script>
    alert('Tu solicitud ha sido enviada con éxito. Contactaremos contigo pronto.');
    window.location.href = '/#mayorista';
</script>`

// Handler exposes the storefront endpoints over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewHandler constructs a storefront Handler.
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register routes on the Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/", h.index)
	e.POST("/checkout-jamon", h.checkout)
	e.POST("/webhook", h.webhook)
	e.GET("/success", h.success)
	e.GET("/cancel", h.cancel)
	e.POST("/contacto-mayorista", h.wholesale)

	api := e.Group("/api")
	api.GET("/orders/:order_id", h.getOrder)
}

func (h *Handler) index(c echo.Context) error {
	return c.Render(http.StatusOK, "index", nil)
}

func (h *Handler) checkout(c echo.Context) error {
	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Pedido inválido")
	}
	if err := validateCheckout(req); err != nil {
		return c.String(http.StatusBadRequest, err.Message())
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "shop.checkout", trace.WithAttributes(
		attribute.String("order.payment_method", req.PaymentMethod),
	))
	defer span.End()

	result, err := h.svc.Checkout(ctx, service.CheckoutInput{
		ProductName:   req.ProductName,
		Price:         decimal.NewFromFloat(req.Price),
		Name:          req.Name,
		Email:         req.Email,
		Address:       req.Address,
		City:          req.City,
		PostalCode:    req.PostalCode,
		Quantity:      req.Quantity,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.logger.Error("checkout failed", zap.Error(err))
		return c.String(http.StatusInternalServerError, "Error al procesar el pedido de jamón")
	}

	return c.Redirect(http.StatusSeeOther, result.RedirectURL)
}

// webhook always acknowledges receipt, whatever happens internally, so the
// provider never retries delivery against us.
func (h *Handler) webhook(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "shop.webhook")
	defer span.End()

	var event dto.ProviderEvent
	if err := c.Bind(&event); err != nil {
		h.logger.Warn("undecodable webhook payload", zap.Error(err))
		return c.JSON(http.StatusOK, map[string]bool{"received": true})
	}

	h.svc.HandleProviderEvent(ctx, event)

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) success(c echo.Context) error {
	orderID := c.QueryParam("order_id")
	status := c.QueryParam("status")

	ctx, span := httpTracer.Start(c.Request().Context(), "shop.success", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("payment.status", status),
	))
	defer span.End()

	h.logger.Info("success page reached",
		zap.String("order_id", orderID),
		zap.String("payment_id", c.QueryParam("payment_id")),
		zap.String("status", status),
	)

	// Fallback confirmation path in case the webhook was lost or is not
	// configured. Reconciliation failures never break the customer's page.
	if status == "succeeded" && orderID != "" {
		if err := h.svc.ConfirmPayment(ctx, orderID, service.TriggerRedirect); err != nil {
			h.logger.Error("redirect reconciliation failed",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
		}
	}

	return c.Render(http.StatusOK, "success", map[string]any{"OrderID": orderID})
}

func (h *Handler) cancel(c echo.Context) error {
	return c.Render(http.StatusOK, "cancel", nil)
}

func (h *Handler) wholesale(c echo.Context) error {
	var req dto.WholesaleRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Solicitud inválida")
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "shop.wholesale")
	defer span.End()

	if err := h.svc.WholesaleInquiry(ctx, req); err != nil {
		appErr := errorbank.From(err)
		if appErr.Kind() == errorbank.KindBadRequest {
			return c.String(http.StatusBadRequest, appErr.Message())
		}
		h.logger.Error("wholesale inquiry failed", zap.Error(err))
		return c.String(http.StatusInternalServerError, "Error al enviar la solicitud. Por favor, inténtalo de nuevo.")
	}

	return c.HTML(http.StatusOK, wholesaleAckScript)
}

func (h *Handler) getOrder(c echo.Context) error {
	b := response.New(c)

	orderID := c.Param("order_id")
	if orderID == "" {
		return b.WithError(errorbank.BadRequest("order_id is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "shop.getOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	order, err := h.svc.Get(ctx, orderID)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func validateCheckout(req dto.CheckoutRequest) *errorbank.AppError {
	missing := make([]string, 0, 7)
	for field, value := range map[string]string{
		"productName": req.ProductName,
		"name":        req.Name,
		"email":       req.Email,
		"address":     req.Address,
		"city":        req.City,
		"postalCode":  req.PostalCode,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return errorbank.BadRequest("missing required fields", errorbank.WithDetail("fields", missing))
	}
	if req.Price <= 0 {
		return errorbank.BadRequest("price must be positive")
	}
	if req.Quantity <= 0 {
		return errorbank.BadRequest("quantity must be positive")
	}
	switch req.PaymentMethod {
	case entity.PaymentMethodCard, entity.PaymentMethodCOD:
		return nil
	default:
		return errorbank.BadRequest("unsupported payment method")
	}
}

func toDTO(order *entity.Order) dto.OrderResponse {
	return dto.OrderResponse{
		OrderID:           order.OrderID,
		CustomerName:      order.CustomerName,
		CustomerEmail:     order.CustomerEmail,
		Address:           order.Address,
		City:              order.City,
		PostalCode:        order.PostalCode,
		ProductName:       order.ProductName,
		Quantity:          order.Quantity,
		Amount:            order.Amount.StringFixed(2),
		PaymentMethod:     order.PaymentMethod,
		PaymentStatus:     order.PaymentStatus,
		CheckoutSessionID: order.CheckoutSessionID,
		CreatedAt:         order.CreatedAt,
	}
}
