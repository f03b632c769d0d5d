package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"products-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// productModel is the gorm mapping of the products table. The table itself
// is owned by the goose migrations, never by AutoMigrate.
type productModel struct {
	ID         int64             `gorm:"primaryKey;autoIncrement"`
	Attributes domain.Attributes `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time         `gorm:"not null"`
	UpdatedAt  time.Time         `gorm:"not null"`
}

func (productModel) TableName() string {
	return "products"
}

func (m *productModel) toDomain() *domain.Product {
	return &domain.Product{
		ID:         m.ID,
		Attributes: m.Attributes,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

type gormProductRepository struct {
	db *gorm.DB
}

// OpenGorm wraps an existing pool in a gorm session so both backends share
// the same connections
func OpenGorm(db *sql.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}
	return gdb, nil
}

// NewGormProductRepository creates a ProductRepository backed by gorm
func NewGormProductRepository(db *gorm.DB) ProductRepository {
	return &gormProductRepository{db: db}
}

func (r *gormProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	var rows []productModel
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]*domain.Product, 0, len(rows))
	for i := range rows {
		products = append(products, rows[i].toDomain())
	}
	return products, nil
}

func (r *gormProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.findByID(r.db.WithContext(ctx), id)
}

func (r *gormProductRepository) findByID(tx *gorm.DB, id int64) (*domain.Product, error) {
	var row productModel
	if err := tx.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return row.toDomain(), nil
}

func (r *gormProductRepository) Insert(ctx context.Context, attrs domain.Attributes) (*domain.Product, error) {
	if attrs == nil {
		attrs = domain.Attributes{}
	}

	row := productModel{Attributes: attrs}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	// reload so the attributes come back in their stored form
	return r.FindByID(ctx, row.ID)
}

func (r *gormProductRepository) UpdateByID(ctx context.Context, id int64, patch domain.Attributes) (*domain.Product, error) {
	if patch == nil {
		patch = domain.Attributes{}
	}

	var product *domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&productModel{}).
			Where("id = ?", id).
			Update("attributes", gorm.Expr("attributes || ?::jsonb", patch))
		if result.Error != nil {
			return fmt.Errorf("failed to update product: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrProductNotFound
		}

		var err error
		product, err = r.findByID(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

func (r *gormProductRepository) DeleteByID(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&productModel{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}
