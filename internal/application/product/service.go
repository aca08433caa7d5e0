package product

import (
	"context"

	domproduct "github.com/paysys/payment-integration/internal/domain/product"
	"github.com/paysys/payment-integration/internal/observability"
	"github.com/paysys/payment-integration/internal/observability/logctx"
)

// CatalogClient lists products from the remote balance-management service.
type CatalogClient interface {
	Products(ctx context.Context) ([]domproduct.Product, error)
}

// Cache is the read-through store for one catalog listing.
type Cache interface {
	Get() ([]domproduct.Product, bool)
	Set(products []domproduct.Product)
}

// Service serves the catalog listing cache-aside: hit -> cached copy, miss ->
// remote fetch, then cache. A failed fetch is returned as-is and caches
// nothing, so the next caller retries the remote service.
type Service struct {
	client CatalogClient
	cache  Cache
	log    observability.Logger
}

func NewService(client CatalogClient, cache Cache, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		client: client,
		cache:  cache,
		log:    logger.With(observability.F("component", "product_service")),
	}
}

func (s *Service) List(ctx context.Context) ([]domproduct.Product, error) {
	logger := logctx.FromOr(ctx, s.log)

	if products, ok := s.cache.Get(); ok {
		logger.Debug("product_list_cache_hit", observability.F("count", len(products)))
		return products, nil
	}

	products, err := s.client.Products(ctx)
	if err != nil {
		logger.Warn("product_list_fetch_failed", observability.F("error", err.Error()))
		return nil, err
	}

	s.cache.Set(products)
	logger.Info("product_list_refreshed", observability.F("count", len(products)))
	return products, nil
}
