package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/archdemone/jewelry-backend/internal/logger"
	"github.com/archdemone/jewelry-backend/internal/repos"
	"github.com/archdemone/jewelry-backend/internal/types"
)

type CatalogService interface {
	ListProducts(ctx context.Context, limit, offset int) ([]*types.Product, error)
	GetProduct(ctx context.Context, slug string) (*types.Product, error)
	// ResolveCartItems re-prices cart lines from the catalog so the client
	// can never dictate unit prices, and drops lines whose product vanished.
	ResolveCartItems(ctx context.Context, items []types.CartItem) ([]types.CartItem, error)
}

type catalogService struct {
	db          *gorm.DB
	log         *logger.Logger
	productRepo repos.ProductRepo
}

func NewCatalogService(db *gorm.DB, log *logger.Logger, productRepo repos.ProductRepo) CatalogService {
	serviceLog := log.With("service", "CatalogService")
	return &catalogService{db: db, log: serviceLog, productRepo: productRepo}
}

func (cs *catalogService) ListProducts(ctx context.Context, limit, offset int) ([]*types.Product, error) {
	products, err := cs.productRepo.ListActive(ctx, nil, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (cs *catalogService) GetProduct(ctx context.Context, slug string) (*types.Product, error) {
	product, err := cs.productRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("product %q does not exist", slug)
	}
	return product, nil
}

func (cs *catalogService) ResolveCartItems(ctx context.Context, items []types.CartItem) ([]types.CartItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := cs.productRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve cart products: %w", err)
	}
	byID := make(map[uuid.UUID]*types.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	resolved := make([]types.CartItem, 0, len(items))
	for _, it := range items {
		product, ok := byID[it.ProductID]
		if !ok || !product.Active {
			cs.log.Warn("Dropping cart line for unavailable product", "product_id", it.ProductID)
			continue
		}
		resolved = append(resolved, types.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Image:     product.Image,
			Quantity:  it.Quantity,
		})
	}
	return resolved, nil
}
