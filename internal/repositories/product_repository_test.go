package repositories_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"katalog/internal/models"
	"katalog/internal/repositories"
)

func newGORMRepo(t *testing.T) *repositories.GORMProductRepository {
	t.Helper()
	// A named in-memory database per test keeps tests isolated.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	repo := repositories.NewGORMProductRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return repo
}

// repositoryContract runs the ProductRepository contract against any implementation.
func repositoryContract(t *testing.T, newRepo func(t *testing.T) repositories.ProductRepository) {
	ctx := context.Background()

	t.Run("InsertAssignsIncreasingIDs", func(t *testing.T) {
		repo := newRepo(t)
		a := &models.Product{Name: "A", Description: "a", Price: decimal.NewFromInt(1)}
		b := &models.Product{Name: "B", Description: "b", Price: decimal.NewFromInt(2)}
		require.NoError(t, repo.Insert(ctx, a))
		require.NoError(t, repo.Insert(ctx, b))
		assert.NotZero(t, a.ID)
		assert.Greater(t, b.ID, a.ID)
	})

	t.Run("FindAllDescendingByID", func(t *testing.T) {
		repo := newRepo(t)
		for i := 0; i < 5; i++ {
			p := &models.Product{Name: fmt.Sprintf("P%d", i), Description: "d", Price: decimal.NewFromInt(int64(i + 1))}
			require.NoError(t, repo.Insert(ctx, p))
		}

		products, err := repo.FindAllDescendingByID(ctx)
		require.NoError(t, err)
		require.Len(t, products, 5)
		for i := 1; i < len(products); i++ {
			assert.Greater(t, products[i-1].ID, products[i].ID)
		}
		assert.Equal(t, "P4", products[0].Name)
	})

	t.Run("FindAllEmpty", func(t *testing.T) {
		repo := newRepo(t)
		products, err := repo.FindAllDescendingByID(ctx)
		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})

	t.Run("FindByID", func(t *testing.T) {
		repo := newRepo(t)
		url := "https://img/a.png"
		p := &models.Product{Name: "A", Description: "a", Price: decimal.RequireFromString("9.99"), ImageURL: &url}
		require.NoError(t, repo.Insert(ctx, p))

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", found.Name)
		assert.True(t, found.Price.Equal(decimal.RequireFromString("9.99")))
		require.NotNil(t, found.ImageURL)
		assert.Equal(t, url, *found.ImageURL)

		_, err = repo.FindByID(ctx, p.ID+100)
		assert.ErrorIs(t, err, repositories.ErrProductNotFound)
	})

	t.Run("Save", func(t *testing.T) {
		repo := newRepo(t)
		p := &models.Product{Name: "A", Description: "a", Price: decimal.NewFromInt(1)}
		require.NoError(t, repo.Insert(ctx, p))

		p.Name = "A2"
		p.Price = decimal.RequireFromString("3.50")
		require.NoError(t, repo.Save(ctx, p))

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "A2", found.Name)
		assert.True(t, found.Price.Equal(decimal.RequireFromString("3.5")))

		missing := &models.Product{ID: p.ID + 100, Name: "X", Description: "x", Price: decimal.NewFromInt(1)}
		assert.ErrorIs(t, repo.Save(ctx, missing), repositories.ErrProductNotFound)
	})

	t.Run("Remove", func(t *testing.T) {
		repo := newRepo(t)
		p := &models.Product{Name: "A", Description: "a", Price: decimal.NewFromInt(1)}
		require.NoError(t, repo.Insert(ctx, p))

		require.NoError(t, repo.Remove(ctx, p))
		_, err := repo.FindByID(ctx, p.ID)
		assert.ErrorIs(t, err, repositories.ErrProductNotFound)

		assert.ErrorIs(t, repo.Remove(ctx, p), repositories.ErrProductNotFound)
	})
}

func TestMemoryProductRepository(t *testing.T) {
	repositoryContract(t, func(t *testing.T) repositories.ProductRepository {
		return repositories.NewMemoryProductRepository()
	})
}

func TestGORMProductRepository(t *testing.T) {
	repositoryContract(t, func(t *testing.T) repositories.ProductRepository {
		return newGORMRepo(t)
	})
}

func TestMemoryProductRepository_ReturnsCopies(t *testing.T) {
	repo := repositories.NewMemoryProductRepository()
	ctx := context.Background()

	url := "https://img/a.png"
	p := &models.Product{Name: "A", Description: "a", Price: decimal.NewFromInt(1), ImageURL: &url}
	require.NoError(t, repo.Insert(ctx, p))

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	*found.ImageURL = "mutated"
	found.Name = "mutated"

	again, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
	assert.Equal(t, url, *again.ImageURL)
}

func TestMemoryProductRepository_Cancelled(t *testing.T) {
	repo := repositories.NewMemoryProductRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.FindAllDescendingByID(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, repo.Insert(ctx, &models.Product{}), context.Canceled)
}
