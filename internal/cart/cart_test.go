package cart

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/goldenfragrance/shop/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func TestAddIsAdditive(t *testing.T) {
	c := New()

	count := c.Add(1, 2, "Amber Noir", 200)
	require.Equal(t, 2, count)

	count = c.Add(1, 3, "Amber Noir", 200)
	require.Equal(t, 5, count)

	require.Len(t, c, 1)
	require.Equal(t, 5, c["1"].Quantity)
}

func TestAddClampsQuantityToOne(t *testing.T) {
	c := New()

	count := c.Add(1, 0, "Amber Noir", 200)
	require.Equal(t, 1, count)

	count = c.Add(2, -5, "Velvet Rose", 300)
	require.Equal(t, 2, count)
	require.Equal(t, 1, c["2"].Quantity)
}

func TestUpdateReplacesQuantity(t *testing.T) {
	c := New()
	c.Add(1, 4, "Amber Noir", 200)

	count, err := c.Update(1, 2)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.Equal(t, 2, c["1"].Quantity)
}

func TestUpdateToZeroRemoves(t *testing.T) {
	c := New()
	c.Add(1, 4, "Amber Noir", 200)

	count, err := c.Update(1, 0)
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.Empty(t, c)
}

func TestUpdateAbsentProduct(t *testing.T) {
	c := New()
	c.Add(1, 1, "Amber Noir", 200)

	_, err := c.Update(99, 3)
	require.ErrorIs(t, err, ErrNotInCart)
	require.Equal(t, 1, c.Count())
}

func TestRemove(t *testing.T) {
	c := New()
	c.Add(1, 2, "Amber Noir", 200)
	c.Add(2, 1, "Velvet Rose", 300)

	count, err := c.Remove(1)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = c.Remove(1)
	require.ErrorIs(t, err, ErrNotInCart)
}

func TestClear(t *testing.T) {
	c := New()
	c.Add(1, 2, "Amber Noir", 200)
	c.Add(2, 1, "Velvet Rose", 300)

	c.Clear()
	require.Equal(t, 0, c.Count())
	require.Empty(t, c)
}

func TestMaterialize(t *testing.T) {
	db := initTestDB(t)

	p1 := models.Product{Name: "Amber Noir", Description: "d", Price: 200, CategoryID: 1}
	p2 := models.Product{Name: "Velvet Rose", Description: "d", Price: 300, CategoryID: 1}
	require.NoError(t, db.Create(&p1).Error)
	require.NoError(t, db.Create(&p2).Error)

	c := New()
	c.Add(p1.ID, 2, p1.Name, p1.Price)
	c.Add(p2.ID, 1, p2.Name, p2.Price)

	lines, total, count, err := c.Materialize(db)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.EqualValues(t, 700, total)
	require.Equal(t, 3, count)
}

func TestMaterializeUsesCurrentPrice(t *testing.T) {
	db := initTestDB(t)

	p := models.Product{Name: "Amber Noir", Description: "d", Price: 200, CategoryID: 1}
	require.NoError(t, db.Create(&p).Error)

	c := New()
	c.Add(p.ID, 2, p.Name, p.Price)

	require.NoError(t, db.Model(&p).Update("price", 250).Error)

	lines, total, _, err := c.Materialize(db)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.EqualValues(t, 500, total)
	require.EqualValues(t, 250, lines[0].Product.Price)
}

func TestMaterializeDropsDeletedProducts(t *testing.T) {
	db := initTestDB(t)

	p1 := models.Product{Name: "Amber Noir", Description: "d", Price: 200, CategoryID: 1}
	p2 := models.Product{Name: "Velvet Rose", Description: "d", Price: 300, CategoryID: 1}
	require.NoError(t, db.Create(&p1).Error)
	require.NoError(t, db.Create(&p2).Error)

	c := New()
	c.Add(p1.ID, 2, p1.Name, p1.Price)
	c.Add(p2.ID, 1, p2.Name, p2.Price)

	require.NoError(t, db.Delete(&models.Product{}, p2.ID).Error)

	lines, total, count, err := c.Materialize(db)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.EqualValues(t, 400, total)
	require.Equal(t, 2, count)
	require.Equal(t, p1.ID, lines[0].Product.ID)
}
