package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/model"
	"github.com/iliyamo/product-sales-api/internal/repository"
)

// CatalogService maintains the product catalog.
type CatalogService struct {
	products repository.ProductCatalog
	log      *zap.Logger
}

func NewCatalogService(products repository.ProductCatalog, log *zap.Logger) *CatalogService {
	return &CatalogService{products: products, log: log}
}

func (s *CatalogService) List(ctx context.Context) ([]model.Product, error) {
	ps, err := s.products.List(ctx)
	if err != nil {
		return nil, internal("list products", err)
	}
	return ps, nil
}

func (s *CatalogService) Get(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("Product")
	}
	if err != nil {
		return nil, internal("get product", err)
	}
	return p, nil
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := productFromInput(in)
	if err := s.products.Create(ctx, p); err != nil {
		return nil, internal("create product", err)
	}
	s.log.Info("product created", zap.Uint64("product_id", p.ID))
	return p, nil
}

func (s *CatalogService) Update(ctx context.Context, id uint64, in ProductInput) (*model.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := productFromInput(in)
	p.ID = id
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Product")
		}
		return nil, internal("update product", err)
	}
	s.log.Info("product updated", zap.Uint64("product_id", id))
	return p, nil
}

// Delete removes a product that no sale refers to.
func (s *CatalogService) Delete(ctx context.Context, id uint64) error {
	err := s.products.Delete(ctx, id)
	switch {
	case err == nil:
		s.log.Info("product deleted", zap.Uint64("product_id", id))
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound("Product")
	case errors.Is(err, repository.ErrConflict):
		return &Error{Kind: KindConflict, Message: "Product is referenced by recorded sales"}
	}
	return internal("delete product", err)
}

func productFromInput(in ProductInput) *model.Product {
	return &model.Product{
		Name:     strings.TrimSpace(in.Name),
		Price:    in.Price.Round(2),
		Stock:    in.Stock,
		ImageURL: strings.TrimSpace(in.ImageURL),
	}
}
