package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"products-backend/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockProductRepository keeps products in memory
type mockProductRepository struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]*domain.Product
	err      error
}

// mergeAttributes mirrors the jsonb || merge the real backends run
func mergeAttributes(base, patch domain.Attributes) domain.Attributes {
	merged := make(domain.Attributes, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[int64]*domain.Product),
	}
}

func clone(p *domain.Product) *domain.Product {
	c := *p
	c.Attributes = mergeAttributes(nil, p.Attributes)
	return &c
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	products := []*domain.Product{}
	for _, p := range m.products {
		products = append(products, clone(p))
	}
	return products, nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return clone(p), nil
}

func (m *mockProductRepository) Insert(ctx context.Context, attrs domain.Attributes) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.nextID++
	now := time.Now()
	p := &domain.Product{
		ID:         m.nextID,
		Attributes: mergeAttributes(nil, attrs),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.products[p.ID] = p
	return clone(p), nil
}

func (m *mockProductRepository) UpdateByID(ctx context.Context, id int64, patch domain.Attributes) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	p.Attributes = mergeAttributes(p.Attributes, patch)
	p.UpdatedAt = time.Now()
	return clone(p), nil
}

func (m *mockProductRepository) DeleteByID(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func newTestService() (ProductService, *mockProductRepository) {
	repo := newMockProductRepository()
	return NewProductService(repo, zap.NewNop()), repo
}

func TestProductService_CreateThenFindOne(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.Attributes{"name": "Lamp", "price": 12.5})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	found, err := svc.FindOne(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestProductService_FindOneMissing(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.FindOne(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_FindAllEmpty(t *testing.T) {
	svc, _ := newTestService()

	products, err := svc.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestProductService_FindAllContainsCreated(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p1, err := svc.Create(ctx, domain.Attributes{"name": "first"})
	require.NoError(t, err)
	p2, err := svc.Create(ctx, domain.Attributes{"name": "second"})
	require.NoError(t, err)

	products, err := svc.FindAll(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []*domain.Product{p1, p2}, products)
}

func TestProductService_UpdateMissing(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Update(context.Background(), 7, domain.Attributes{"name": "ghost"})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.EqualError(t, err, "product not found")
}

func TestProductService_RemoveTwice(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.Attributes{"name": "Chair"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, created.ID))
	assert.ErrorIs(t, svc.Remove(ctx, created.ID), domain.ErrProductNotFound)

	_, err = svc.FindOne(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductService_StorageErrorsPropagate(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	storageErr := errors.New("connection refused")
	repo.err = storageErr

	_, err := svc.FindAll(ctx)
	assert.ErrorIs(t, err, storageErr)

	_, err = svc.FindOne(ctx, 1)
	assert.ErrorIs(t, err, storageErr)

	_, err = svc.Create(ctx, domain.Attributes{"name": "x"})
	assert.ErrorIs(t, err, storageErr)

	_, err = svc.Update(ctx, 1, domain.Attributes{"name": "x"})
	assert.ErrorIs(t, err, storageErr)

	assert.ErrorIs(t, svc.Remove(ctx, 1), storageErr)
}

func TestProperty_UpdateMergesFields(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("present fields take the patch value, absent fields keep theirs", prop.ForAll(
		func(name string, description string, newName string, updateDescription bool, newDescription string) bool {
			svc, _ := newTestService()
			ctx := context.Background()

			created, err := svc.Create(ctx, domain.Attributes{"name": name, "description": description})
			if err != nil {
				return false
			}

			patch := domain.Attributes{"name": newName}
			if updateDescription {
				patch["description"] = newDescription
			}

			updated, err := svc.Update(ctx, created.ID, patch)
			if err != nil {
				t.Logf("FAIL: Update returned %v", err)
				return false
			}

			if updated.ID != created.ID {
				return false
			}
			if updated.Attributes["name"] != newName {
				return false
			}

			wantDescription := description
			if updateDescription {
				wantDescription = newDescription
			}
			return updated.Attributes["description"] == wantDescription
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.Bool(),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_MissingIDsAreNotFound(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("update and remove of unknown ids fail with not found", prop.ForAll(
		func(id int64) bool {
			svc, _ := newTestService()
			ctx := context.Background()

			_, err := svc.Update(ctx, id, domain.Attributes{"name": "x"})
			if !errors.Is(err, domain.ErrProductNotFound) {
				return false
			}

			return errors.Is(svc.Remove(ctx, id), domain.ErrProductNotFound)
		},
		gen.Int64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
