package httptransport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appPayment "github.com/paysys/payment-integration/internal/application/payment"
	appProduct "github.com/paysys/payment-integration/internal/application/product"
	domproduct "github.com/paysys/payment-integration/internal/domain/product"
)

// Handler exposes the payment and product operations over HTTP. Every
// response uses the same envelope: {success, data?, error?}. Domain and
// remote failures all map to 400 with the underlying message; the orchestrator
// already collapsed the cases it does not want callers to distinguish.
type Handler struct {
	create    *appPayment.CreatePaymentUseCase
	complete  *appPayment.CompletePaymentUseCase
	products  *appProduct.Service
	readiness func(ctx context.Context) error
}

func NewHandler(
	create *appPayment.CreatePaymentUseCase,
	complete *appPayment.CompletePaymentUseCase,
	products *appProduct.Service,
	readiness func(ctx context.Context) error,
) *Handler {
	return &Handler{
		create:    create,
		complete:  complete,
		products:  products,
		readiness: readiness,
	}
}

type baseResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(data any) baseResponse     { return baseResponse{Success: true, Data: data} }
func fail(msg string) baseResponse { return baseResponse{Success: false, Error: msg} }

// Register installs all routes on the engine, middleware excluded.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/orders", h.handleCreatePayment)
	api.POST("/orders/:id/complete", h.handleCompletePayment)
	api.GET("/products", h.handleListProducts)

	r.GET("/health/live", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/health/ready", h.handleReady)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

type createPaymentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
}

func (h *Handler) handleCreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	result, err := h.create.Execute(c.Request.Context(), appPayment.CreatePaymentInput{
		OrderID: req.OrderID,
		Amount:  req.Amount,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	c.JSON(http.StatusOK, ok(fmt.Sprintf("Payment created successfully with id: %s", result.PaymentID)))
}

func (h *Handler) handleCompletePayment(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, fail("Id must be provided"))
		return
	}

	result, err := h.complete.Execute(c.Request.Context(), appPayment.CompletePaymentInput{
		OrderID: orderID,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	c.JSON(http.StatusOK, ok(fmt.Sprintf("Payment for order: %s completed successfully!", result.OrderID)))
}

type productResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
	Category    string `json:"category"`
	Stock       int    `json:"stock"`
}

func (h *Handler) handleListProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	c.JSON(http.StatusOK, ok(out))
}

func toProductResponse(p domproduct.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Currency:    p.Currency,
		Category:    p.Category,
		Stock:       p.Stock,
	}
}

func (h *Handler) handleReady(c *gin.Context) {
	if h.readiness != nil {
		if err := h.readiness(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, fail(err.Error()))
			return
		}
	}
	c.JSON(http.StatusOK, ok("ready"))
}
