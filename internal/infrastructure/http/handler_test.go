package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appPayment "github.com/paysys/payment-integration/internal/application/payment"
	appProduct "github.com/paysys/payment-integration/internal/application/product"
	domproduct "github.com/paysys/payment-integration/internal/domain/product"
	"github.com/paysys/payment-integration/internal/infrastructure/cache"
	"github.com/paysys/payment-integration/internal/infrastructure/persistence/memory"
)

type fakeBalance struct {
	reserveErr error
	confirmErr error
}

func (f *fakeBalance) Reserve(ctx context.Context, orderID string, amount int64) error {
	return f.reserveErr
}

func (f *fakeBalance) Confirm(ctx context.Context, orderID string) error {
	return f.confirmErr
}

type fakeCatalog struct {
	products []domproduct.Product
	err      error
}

func (f *fakeCatalog) Products(ctx context.Context) ([]domproduct.Product, error) {
	return f.products, f.err
}

type fixedIDs struct{ id string }

func (f fixedIDs) NewID() string { return f.id }

func newTestRouter(t *testing.T, balance *fakeBalance, catalog *fakeCatalog) (*gin.Engine, *memory.PaymentRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewPaymentRepository()
	create := appPayment.NewCreatePaymentUseCase(repo, balance, fixedIDs{id: "payment123"}, nil)
	complete := appPayment.NewCompletePaymentUseCase(repo, balance, nil, nil)
	products := appProduct.NewService(catalog, cache.NewProductCache(time.Minute), nil)

	r := gin.New()
	NewHandler(create, complete, products, nil).Register(r)
	return r, repo
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, baseResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp baseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestCreatePayment_Success(t *testing.T) {
	r, repo := newTestRouter(t, &fakeBalance{}, &fakeCatalog{})

	rec, resp := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{"order_id": "order123", "amount": 500})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Payment created successfully with id: payment123", resp.Data)

	stored, err := repo.Get("order123")
	require.NoError(t, err)
	assert.Equal(t, "payment123", stored.ID)
}

func TestCreatePayment_ValidationRejected(t *testing.T) {
	r, _ := newTestRouter(t, &fakeBalance{}, &fakeCatalog{})

	for name, body := range map[string]gin.H{
		"missing order id": {"amount": 500},
		"zero amount":      {"order_id": "order123", "amount": 0},
		"negative amount":  {"order_id": "order123", "amount": -1},
	} {
		t.Run(name, func(t *testing.T) {
			rec, resp := doJSON(t, r, http.MethodPost, "/api/orders", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestCreatePayment_ReserveFailureSurfaced(t *testing.T) {
	r, repo := newTestRouter(t, &fakeBalance{reserveErr: errors.New("insufficient funds")}, &fakeCatalog{})

	rec, resp := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{"order_id": "order123", "amount": 500})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient funds", resp.Error)

	_, err := repo.Get("order123")
	assert.Error(t, err)
}

func TestCompletePayment_Success(t *testing.T) {
	r, repo := newTestRouter(t, &fakeBalance{}, &fakeCatalog{})

	_, resp := doJSON(t, r, http.MethodPost, "/api/orders", gin.H{"order_id": "order123", "amount": 500})
	require.True(t, resp.Success)

	rec, resp := doJSON(t, r, http.MethodPost, "/api/orders/order123/complete", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Payment for order: order123 completed successfully!", resp.Data)

	stored, err := repo.Get("order123")
	require.NoError(t, err)
	assert.Equal(t, "completed", string(stored.Status))
}

func TestCompletePayment_UnknownOrder(t *testing.T) {
	r, _ := newTestRouter(t, &fakeBalance{}, &fakeCatalog{})

	rec, resp := doJSON(t, r, http.MethodPost, "/api/orders/missing/complete", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Complete payment failed", resp.Error)
}

func TestListProducts(t *testing.T) {
	catalog := &fakeCatalog{products: []domproduct.Product{
		{ID: "p1", Name: "Widget", Price: 999, Currency: "USD", Category: "tools", Stock: 3},
	}}
	r, _ := newTestRouter(t, &fakeBalance{}, catalog)

	rec, resp := doJSON(t, r, http.MethodGet, "/api/products", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var got []productResponse
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Widget", got[0].Name)
	assert.Equal(t, int64(999), got[0].Price)
}

func TestHealthEndpoints(t *testing.T) {
	r, _ := newTestRouter(t, &fakeBalance{}, &fakeCatalog{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, r, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestReadinessFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := memory.NewPaymentRepository()
	create := appPayment.NewCreatePaymentUseCase(repo, &fakeBalance{}, fixedIDs{id: "p"}, nil)
	complete := appPayment.NewCompletePaymentUseCase(repo, &fakeBalance{}, nil, nil)
	products := appProduct.NewService(&fakeCatalog{}, cache.NewProductCache(time.Minute), nil)

	r := gin.New()
	NewHandler(create, complete, products, func(ctx context.Context) error {
		return errors.New("db unreachable")
	}).Register(r)

	rec, resp := doJSON(t, r, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "db unreachable", resp.Error)
}
