package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Noble200/nose-sub001/internal/domain"
	"github.com/Noble200/nose-sub001/internal/store"
)

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Unit = strings.TrimSpace(req.Unit)
	if err := s.check(req); err != nil {
		return domain.Product{}, err
	}
	if req.Cost.IsNegative() || req.Stock.IsNegative() || req.MinStock.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: cost, stock and minStock must not be negative", domain.ErrInvalidInput)
	}

	now := s.now()
	product := domain.Product{
		Name:      req.Name,
		Category:  req.Category,
		Unit:      req.Unit,
		Cost:      req.Cost,
		Stock:     req.Stock,
		MinStock:  req.MinStock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := s.docs.AddDocument(ctx, domain.CollectionProducts, product)
	if err != nil {
		return domain.Product{}, err
	}
	product.ID = id

	s.logActivity(ctx, "product_create", "product", id, fmt.Sprintf("name=%s,stock=%s", product.Name, product.Stock))
	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var product domain.Product
	if err := s.docs.GetDocument(ctx, domain.CollectionProducts, id, &product); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
		}
		return domain.Product{}, err
	}
	product.ID = id
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	raws, err := s.docs.ListDocuments(ctx, domain.CollectionProducts)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Product](raws)
}
