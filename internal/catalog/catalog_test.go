package catalog_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend/backendtest"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/catalog"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
)

type world struct {
	b       *backend.GormBackend
	svc     *catalog.Service
	meera   models.Profile
	ravi    models.Profile
	saree   models.Product
	shawl   models.Product
	dupatta models.Product
}

func setup(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	b := backendtest.New(t)
	w := &world{b: b, svc: catalog.NewService(b, zap.NewNop())}

	w.meera = models.Profile{Name: "Meera Devi", Email: "meera@loom.in", Password: "x", Role: models.RoleWeaver, Craft: "Kanjeevaram silk", Location: "Kanchipuram"}
	w.ravi = models.Profile{Name: "Ravi Kumar", Email: "ravi@loom.in", Password: "x", Role: models.RoleWeaver, Craft: "Ikat", Location: "Pochampally"}
	buyer := models.Profile{Name: "Asha", Email: "asha@mail.in", Password: "x", Role: models.RoleCustomer}
	for _, p := range []*models.Profile{&w.meera, &w.ravi, &buyer} {
		require.NoError(t, b.InsertRow(ctx, "profiles", p))
	}

	w.saree = models.Product{WeaverID: w.meera.ID, Name: "Kanjeevaram Silk Saree", Description: "Temple border", Category: "Saree", Price: 5600, Stock: 3, IsVisible: true}
	w.shawl = models.Product{WeaverID: w.meera.ID, Name: "Pashmina Shawl", Category: "Shawl", Price: 4200, Stock: 0, IsVisible: true}
	w.dupatta = models.Product{WeaverID: w.ravi.ID, Name: "Ikat Dupatta", Category: "Dupatta", Price: 1200, Stock: 10, IsVisible: false}
	for _, p := range []*models.Product{&w.saree, &w.shawl, &w.dupatta} {
		require.NoError(t, b.InsertRow(ctx, "products", p))
	}
	return w
}

func TestListProducts_OnlyVisible(t *testing.T) {
	w := setup(t)
	ctx := context.Background()

	page, err := w.svc.ListProducts(ctx, catalog.ProductFilter{Sort: "price_high"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Kanjeevaram Silk Saree", page.Items[0].Name)
	assert.Equal(t, 20, page.Limit)

	page, err = w.svc.ListProducts(ctx, catalog.ProductFilter{Search: "TEMPLE"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, w.saree.ID, page.Items[0].ID)

	page, err = w.svc.ListProducts(ctx, catalog.ProductFilter{WeaverID: w.ravi.ID.String()})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = w.svc.ListProducts(ctx, catalog.ProductFilter{Category: "Shawl", Limit: 500})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 100, page.Limit)
}

func TestCategories(t *testing.T) {
	w := setup(t)
	got, err := w.svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Saree", "Shawl"}, got)
}

func TestGetProduct(t *testing.T) {
	w := setup(t)
	ctx := context.Background()

	d, err := w.svc.GetProduct(ctx, w.saree.ID.String())
	require.NoError(t, err)
	require.NotNil(t, d.Weaver)
	assert.Equal(t, "Meera Devi", d.Weaver.Name)

	_, err = w.svc.GetProduct(ctx, w.dupatta.ID.String())
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	_, err = w.svc.GetProduct(ctx, "nope")
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestWeavers(t *testing.T) {
	w := setup(t)
	ctx := context.Background()

	all, err := w.svc.ListWeavers(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Meera Devi", all[0].Name)

	found, err := w.svc.ListWeavers(ctx, "pochampally")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, w.ravi.ID, found[0].ID)

	detail, err := w.svc.GetWeaver(ctx, w.ravi.ID.String())
	require.NoError(t, err)
	assert.Empty(t, detail.Products, "hidden products stay private")

	_, err = w.svc.GetWeaver(ctx, uuid.NewString())
	assert.ErrorIs(t, err, catalog.ErrWeaverNotFound)
}

func TestLineItem(t *testing.T) {
	w := setup(t)
	ctx := context.Background()

	item, stock, err := w.svc.LineItem(ctx, w.saree.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 3, stock)
	assert.Equal(t, "Meera Devi", item.WeaverName)
	assert.Equal(t, int64(5600), item.Price)
	assert.Equal(t, 1, item.Quantity)

	_, stock, err = w.svc.LineItem(ctx, w.shawl.ID.String())
	require.NoError(t, err)
	assert.Zero(t, stock)

	_, _, err = w.svc.LineItem(ctx, w.dupatta.ID.String())
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestWeaverProductLifecycle(t *testing.T) {
	w := setup(t)
	ctx := context.Background()
	meera := w.meera.ID.String()

	_, err := w.svc.CreateProduct(ctx, meera, catalog.ProductInput{Name: " ", Price: 0})
	assert.ErrorIs(t, err, catalog.ErrInvalidProduct)

	hidden := false
	p, err := w.svc.CreateProduct(ctx, meera, catalog.ProductInput{
		Name: "Cotton Stole", Category: "Stole", Price: 900, Stock: 4,
		Images:     []string{"http://cdn/a.png"},
		Attributes: map[string]string{"fabric": "cotton"},
		IsVisible:  &hidden,
	})
	require.NoError(t, err)
	assert.False(t, p.IsVisible)
	assert.Equal(t, "http://cdn/a.png", p.ImageURL)

	mine, err := w.svc.MyProducts(ctx, meera)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	_, err = w.svc.UpdateProduct(ctx, w.ravi.ID.String(), p.ID.String(), catalog.ProductInput{Name: "x", Category: "y", Price: 1})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound, "other weavers cannot edit")

	updated, err := w.svc.UpdateProduct(ctx, meera, p.ID.String(), catalog.ProductInput{Name: "Cotton Stole", Category: "Stole", Price: 950, Stock: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(950), updated.Price)

	require.NoError(t, w.svc.DeleteProduct(ctx, meera, p.ID.String()))
	mine, err = w.svc.MyProducts(ctx, meera)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestSetVisibility(t *testing.T) {
	w := setup(t)
	ctx := context.Background()

	got, err := w.svc.SetVisibility(ctx, w.ravi.ID.String(), w.dupatta.ID.String(), true)
	require.NoError(t, err)
	assert.True(t, got)

	page, err := w.svc.ListProducts(ctx, catalog.ProductFilter{WeaverID: w.ravi.ID.String()})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = w.svc.SetVisibility(ctx, w.meera.ID.String(), w.dupatta.ID.String(), false)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

// flakyUpdates fails every UpdateRow.
type flakyUpdates struct {
	backend.Client
}

func (flakyUpdates) UpdateRow(context.Context, string, backend.Filters, map[string]any) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestSetVisibility_FailureReturnsPrevious(t *testing.T) {
	w := setup(t)
	svc := catalog.NewService(flakyUpdates{w.b}, zap.NewNop())

	got, err := svc.SetVisibility(context.Background(), w.meera.ID.String(), w.saree.ID.String(), false)
	require.Error(t, err)
	assert.True(t, got, "previous value stays in effect")
}

func TestUploadImage(t *testing.T) {
	w := setup(t)
	ctx := context.Background()
	meera := w.meera.ID.String()

	_, err := w.svc.UploadImage(ctx, meera, w.saree.ID.String(), "notes.txt", []byte("x"))
	assert.ErrorIs(t, err, catalog.ErrImageType)

	url, err := w.svc.UploadImage(ctx, meera, w.saree.ID.String(), "front.PNG", []byte("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://test.local/uploads/products/"+meera+"/"))

	d, err := w.svc.GetProduct(ctx, w.saree.ID.String())
	require.NoError(t, err)
	assert.Equal(t, url, d.ImageURL)
	assert.Contains(t, string(d.Images), url)
}
