package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"procurement-backend/models"
)

var ErrProductNotFound = errors.New("product not found")

// ProductRepository persists each project's line items as
// products_{project_id}.json under the data directory.
type ProductRepository struct {
	mu      sync.Mutex
	dataDir string
}

// NewProductRepository creates the repository and its data directory.
func NewProductRepository(dataDir string) (*ProductRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &ProductRepository{dataDir: dataDir}, nil
}

func (r *ProductRepository) productsFile(projectID string) string {
	return filepath.Join(r.dataDir, "products_"+projectID+".json")
}

// ReplaceAll swaps a project's entire product set for freshly parsed line
// items. Used after a spreadsheet upload.
func (r *ProductRepository) ReplaceAll(projectID string, items []models.LineItem) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	products := make([]models.Product, 0, len(items))
	for _, item := range items {
		products = append(products, models.Product{
			ID:              uuid.New().String(),
			ProjectID:       projectID,
			ProjectCode:     item.ProjectCode,
			ProjectName:     item.ProjectName,
			ProjectFeatures: item.ProjectFeatures,
			Unit:            item.Unit,
			Quantity:        item.Quantity,
			OtherSpecs:      []models.Chunk{},
			Suppliers:       []models.Supplier{},
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	if err := r.save(projectID, products); err != nil {
		return nil, err
	}
	return products, nil
}

// List returns a project's products, or every project's products when
// projectID is empty.
func (r *ProductRepository) List(projectID string) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if projectID != "" {
		return r.load(projectID)
	}

	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var all []models.Product
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "products_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, "products_"), ".json")
		products, err := r.load(id)
		if err != nil {
			return nil, err
		}
		all = append(all, products...)
	}
	return all, nil
}

// Get finds a product by id, searching every project when projectID is
// empty.
func (r *ProductRepository) Get(productID, projectID string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(productID, projectID)
}

// Update applies the mutable inquiry fields. Nil fields keep their stored
// values.
func (r *ProductRepository) Update(productID, projectID string, update models.ProductUpdate) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.mutate(productID, projectID, func(product *models.Product) {
		if update.Price != nil {
			product.Price = update.Price
		}
		if update.PriceUnit != nil {
			product.PriceUnit = update.PriceUnit
		}
		if update.Notes != nil {
			product.Notes = update.Notes
		}
		if update.InquiryCompleted != nil {
			product.InquiryCompleted = *update.InquiryCompleted
		}
	})
}

// CompleteInquiry marks a product's inquiry as done.
func (r *ProductRepository) CompleteInquiry(productID, projectID string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.mutate(productID, projectID, func(product *models.Product) {
		product.InquiryCompleted = true
	})
}

// UpdateSpecsAndSuppliers replaces a product's cached search results.
func (r *ProductRepository) UpdateSpecsAndSuppliers(productID, projectID string, update models.SpecsAndSuppliersUpdate) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.mutate(productID, projectID, func(product *models.Product) {
		product.OtherSpecs = update.Specs
		if product.OtherSpecs == nil {
			product.OtherSpecs = []models.Chunk{}
		}
		product.Suppliers = update.Suppliers
		if product.Suppliers == nil {
			product.Suppliers = []models.Supplier{}
		}
		if update.SpecSummary != nil {
			product.SpecSummary = update.SpecSummary
		}
	})
}

// Delete removes a product.
func (r *ProductRepository) Delete(productID, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, err := r.find(productID, projectID)
	if err != nil {
		return err
	}

	products, err := r.load(product.ProjectID)
	if err != nil {
		return err
	}

	kept := products[:0]
	for _, p := range products {
		if p.ID != productID {
			kept = append(kept, p)
		}
	}
	return r.save(product.ProjectID, kept)
}

// mutate loads the product's project file, applies fn, bumps updated_at
// and writes the file back. Caller holds the lock.
func (r *ProductRepository) mutate(productID, projectID string, fn func(*models.Product)) (*models.Product, error) {
	product, err := r.find(productID, projectID)
	if err != nil {
		return nil, err
	}

	products, err := r.load(product.ProjectID)
	if err != nil {
		return nil, err
	}

	for i := range products {
		if products[i].ID != productID {
			continue
		}
		fn(&products[i])
		products[i].UpdatedAt = time.Now()
		if err := r.save(product.ProjectID, products); err != nil {
			return nil, err
		}
		return &products[i], nil
	}
	return nil, ErrProductNotFound
}

func (r *ProductRepository) find(productID, projectID string) (*models.Product, error) {
	projectIDs := []string{projectID}
	if projectID == "" {
		entries, err := os.ReadDir(r.dataDir)
		if err != nil {
			return nil, fmt.Errorf("read data dir: %w", err)
		}
		projectIDs = projectIDs[:0]
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, "products_") && strings.HasSuffix(name, ".json") {
				projectIDs = append(projectIDs, strings.TrimSuffix(strings.TrimPrefix(name, "products_"), ".json"))
			}
		}
	}

	for _, id := range projectIDs {
		products, err := r.load(id)
		if err != nil {
			return nil, err
		}
		for i := range products {
			if products[i].ID == productID {
				return &products[i], nil
			}
		}
	}
	return nil, ErrProductNotFound
}

func (r *ProductRepository) load(projectID string) ([]models.Product, error) {
	data, err := os.ReadFile(r.productsFile(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Product{}, nil
		}
		return nil, fmt.Errorf("read products: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) save(projectID string, products []models.Product) error {
	return writeJSONFile(r.productsFile(projectID), products)
}
