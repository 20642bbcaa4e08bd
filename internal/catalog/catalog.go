// Package catalog serves the public product and weaver listings and the
// weaver's own product management.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/cart"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrWeaverNotFound  = errors.New("weaver not found")
	ErrInvalidProduct  = errors.New("product data is invalid")
	ErrImageType       = errors.New("image must be jpg, jpeg, png or webp")
	ErrImageTooLarge   = errors.New("image is too large")
)

const (
	productsTable = "products"
	profilesTable = "profiles"

	defaultLimit = 20
	maxLimit     = 100

	productBucket = "products"
	maxImageSize  = 5 << 20
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

type Service struct {
	client backend.Client
	log    *zap.Logger
}

func NewService(client backend.Client, logger *zap.Logger) *Service {
	return &Service{client: client, log: logger}
}

type ProductFilter struct {
	Category string
	WeaverID string
	Search   string
	Sort     string // latest | price_low | price_high
	Limit    int
	Offset   int
}

type Page struct {
	Items []models.Product `json:"items"`
	Total int64            `json:"total"`
	Limit int              `json:"limit"`
}

// ListProducts returns one page of visible products.
func (s *Service) ListProducts(ctx context.Context, f ProductFilter) (Page, error) {
	filters := backend.Filters{"is_visible": true}
	if c := strings.TrimSpace(f.Category); c != "" {
		filters["category"] = c
	}
	if w := strings.TrimSpace(f.WeaverID); w != "" {
		id, err := uuid.Parse(w)
		if err != nil {
			return Page{Items: []models.Product{}}, nil
		}
		filters["weaver_id"] = id
	}

	q := backend.Query{Filters: filters, Order: sortOrder(f.Sort), Limit: clampLimit(f.Limit), Offset: max(f.Offset, 0)}
	if term := strings.TrimSpace(f.Search); term != "" {
		q.Search = &backend.Search{Columns: []string{"name", "description", "category"}, Term: term}
	}

	total, err := s.client.CountRows(ctx, productsTable, q)
	if err != nil {
		return Page{}, err
	}
	items := make([]models.Product, 0)
	if err := s.client.QueryRows(ctx, productsTable, q, &items); err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Limit: q.Limit}, nil
}

func sortOrder(sort string) string {
	switch sort {
	case "price_low":
		return "price asc"
	case "price_high":
		return "price desc"
	default:
		return "created_at desc"
	}
}

func clampLimit(n int) int {
	if n < 1 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// Categories lists the distinct categories of visible products, sorted.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	var rows []models.Product
	if err := s.client.QueryRows(ctx, productsTable, backend.Query{Filters: backend.Filters{"is_visible": true}}, &rows); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := make([]string, 0)
	for _, p := range rows {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

type ProductDetail struct {
	models.Product
	Weaver *WeaverCard `json:"weaver,omitempty"`
}

// WeaverCard is the public face of a weaver profile.
type WeaverCard struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url"`
	Bio       string    `json:"bio"`
	Location  string    `json:"location"`
	Craft     string    `json:"craft"`
}

func cardOf(p models.Profile) WeaverCard {
	return WeaverCard{ID: p.ID, Name: p.DisplayName(), AvatarURL: p.AvatarURL, Bio: p.Bio, Location: p.Location, Craft: p.Craft}
}

// GetProduct returns a visible product with its weaver.
func (s *Service) GetProduct(ctx context.Context, id string) (ProductDetail, error) {
	p, err := s.product(ctx, id)
	if err != nil {
		return ProductDetail{}, err
	}
	if !p.IsVisible {
		return ProductDetail{}, ErrProductNotFound
	}
	d := ProductDetail{Product: p}
	if w, err := s.weaverProfile(ctx, p.WeaverID); err == nil {
		card := cardOf(w)
		d.Weaver = &card
	} else if !errors.Is(err, ErrWeaverNotFound) {
		return ProductDetail{}, err
	}
	return d, nil
}

func (s *Service) product(ctx context.Context, id string) (models.Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return models.Product{}, ErrProductNotFound
	}
	var rows []models.Product
	if err := s.client.QueryRows(ctx, productsTable, backend.Query{Filters: backend.Filters{"id": pid}, Limit: 1}, &rows); err != nil {
		return models.Product{}, err
	}
	if len(rows) == 0 {
		return models.Product{}, ErrProductNotFound
	}
	return rows[0], nil
}

func (s *Service) weaverProfile(ctx context.Context, id uuid.UUID) (models.Profile, error) {
	var rows []models.Profile
	q := backend.Query{Filters: backend.Filters{"id": id, "role": string(models.RoleWeaver)}, Limit: 1}
	if err := s.client.QueryRows(ctx, profilesTable, q, &rows); err != nil {
		return models.Profile{}, err
	}
	if len(rows) == 0 {
		return models.Profile{}, ErrWeaverNotFound
	}
	return rows[0], nil
}

// ListWeavers returns active weavers matching search on name, craft or
// location.
func (s *Service) ListWeavers(ctx context.Context, search string) ([]WeaverCard, error) {
	q := backend.Query{
		Filters: backend.Filters{"role": string(models.RoleWeaver), "is_active": true},
		Order:   "name asc",
	}
	if term := strings.TrimSpace(search); term != "" {
		q.Search = &backend.Search{Columns: []string{"name", "craft", "location"}, Term: term}
	}
	var rows []models.Profile
	if err := s.client.QueryRows(ctx, profilesTable, q, &rows); err != nil {
		return nil, err
	}
	out := make([]WeaverCard, 0, len(rows))
	for _, p := range rows {
		out = append(out, cardOf(p))
	}
	return out, nil
}

type WeaverDetail struct {
	WeaverCard
	Products []models.Product `json:"products"`
}

func (s *Service) GetWeaver(ctx context.Context, id string) (WeaverDetail, error) {
	wid, err := uuid.Parse(id)
	if err != nil {
		return WeaverDetail{}, ErrWeaverNotFound
	}
	w, err := s.weaverProfile(ctx, wid)
	if err != nil {
		return WeaverDetail{}, err
	}
	products := make([]models.Product, 0)
	q := backend.Query{Filters: backend.Filters{"weaver_id": wid, "is_visible": true}, Order: "created_at desc"}
	if err := s.client.QueryRows(ctx, productsTable, q, &products); err != nil {
		return WeaverDetail{}, err
	}
	return WeaverDetail{WeaverCard: cardOf(w), Products: products}, nil
}

// LineItem builds a cart line for a visible product.
func (s *Service) LineItem(ctx context.Context, productID string) (cart.Item, int, error) {
	p, err := s.product(ctx, productID)
	if err != nil {
		return cart.Item{}, 0, err
	}
	if !p.IsVisible {
		return cart.Item{}, 0, ErrProductNotFound
	}
	item := cart.Item{
		ProductID: p.ID.String(),
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  1,
		Image:     p.ImageURL,
		WeaverID:  p.WeaverID.String(),
	}
	if w, err := s.weaverProfile(ctx, p.WeaverID); err == nil {
		item.WeaverName = w.DisplayName()
	}
	return item, p.Stock, nil
}

type ProductInput struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Price       int64             `json:"price"`
	Stock       int               `json:"stock"`
	ImageURL    string            `json:"image_url"`
	Images      []string          `json:"images"`
	Attributes  map[string]string `json:"attributes"`
	IsVisible   *bool             `json:"is_visible"`
}

// Problems lists field validation failures, keyed by json field name.
func (in ProductInput) Problems() map[string][]string {
	out := map[string][]string{}
	if strings.TrimSpace(in.Name) == "" {
		out["name"] = append(out["name"], "Name is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		out["category"] = append(out["category"], "Category is required")
	}
	if in.Price <= 0 {
		out["price"] = append(out["price"], "Price must be greater than zero")
	}
	if in.Stock < 0 {
		out["stock"] = append(out["stock"], "Stock cannot be negative")
	}
	return out
}

func (in ProductInput) apply(p *models.Product) error {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = strings.TrimSpace(in.Description)
	p.Category = strings.TrimSpace(in.Category)
	p.Price = in.Price
	p.Stock = in.Stock
	p.ImageURL = strings.TrimSpace(in.ImageURL)

	images := in.Images
	if images == nil {
		images = []string{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return err
	}
	p.Images = datatypes.JSON(raw)

	attrs := in.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	if raw, err = json.Marshal(attrs); err != nil {
		return err
	}
	p.Attributes = datatypes.JSON(raw)

	if p.ImageURL == "" && len(in.Images) > 0 {
		p.ImageURL = in.Images[0]
	}
	return nil
}

// MyProducts lists every product of the weaver, hidden ones included.
func (s *Service) MyProducts(ctx context.Context, weaverID string) ([]models.Product, error) {
	wid, err := uuid.Parse(weaverID)
	if err != nil {
		return nil, ErrWeaverNotFound
	}
	out := make([]models.Product, 0)
	q := backend.Query{Filters: backend.Filters{"weaver_id": wid}, Order: "created_at desc"}
	if err := s.client.QueryRows(ctx, productsTable, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) CreateProduct(ctx context.Context, weaverID string, in ProductInput) (models.Product, error) {
	wid, err := uuid.Parse(weaverID)
	if err != nil {
		return models.Product{}, ErrWeaverNotFound
	}
	if len(in.Problems()) > 0 {
		return models.Product{}, ErrInvalidProduct
	}
	p := models.Product{WeaverID: wid, IsVisible: true}
	if in.IsVisible != nil {
		p.IsVisible = *in.IsVisible
	}
	if err := in.apply(&p); err != nil {
		return models.Product{}, err
	}
	if err := s.client.InsertRow(ctx, productsTable, &p); err != nil {
		return models.Product{}, err
	}
	s.log.Info("product created", zap.String("weaver", weaverID), zap.String("product", p.ID.String()))
	return p, nil
}

// owned loads a product only when it belongs to the weaver.
func (s *Service) owned(ctx context.Context, weaverID, productID string) (models.Product, error) {
	p, err := s.product(ctx, productID)
	if err != nil {
		return models.Product{}, err
	}
	if p.WeaverID.String() != weaverID {
		return models.Product{}, ErrProductNotFound
	}
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, weaverID, productID string, in ProductInput) (models.Product, error) {
	p, err := s.owned(ctx, weaverID, productID)
	if err != nil {
		return models.Product{}, err
	}
	if len(in.Problems()) > 0 {
		return models.Product{}, ErrInvalidProduct
	}
	if in.IsVisible != nil {
		p.IsVisible = *in.IsVisible
	}
	if err := in.apply(&p); err != nil {
		return models.Product{}, err
	}
	p.UpdatedAt = time.Now()

	_, err = s.client.UpdateRow(ctx, productsTable, backend.Filters{"id": p.ID}, map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"price":       p.Price,
		"stock":       p.Stock,
		"image_url":   p.ImageURL,
		"images":      p.Images,
		"attributes":  p.Attributes,
		"is_visible":  p.IsVisible,
		"updated_at":  p.UpdatedAt,
	})
	if err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, weaverID, productID string) error {
	p, err := s.owned(ctx, weaverID, productID)
	if err != nil {
		return err
	}
	n, err := s.client.DeleteRow(ctx, productsTable, backend.Filters{"id": p.ID}, &models.Product{})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SetVisibility flips a product's public visibility. It always returns the
// value now in effect, which on failure is the previous one.
func (s *Service) SetVisibility(ctx context.Context, weaverID, productID string, visible bool) (bool, error) {
	p, err := s.owned(ctx, weaverID, productID)
	if err != nil {
		return false, err
	}
	if p.IsVisible == visible {
		return visible, nil
	}
	if _, err := s.client.UpdateRow(ctx, productsTable, backend.Filters{"id": p.ID}, map[string]any{
		"is_visible": visible,
		"updated_at": time.Now(),
	}); err != nil {
		s.log.Warn("visibility change failed, keeping previous value",
			zap.String("product", productID), zap.Bool("visible", p.IsVisible), zap.Error(err))
		return p.IsVisible, fmt.Errorf("set visibility: %w", err)
	}
	return visible, nil
}

// UploadImage stores a product photo and adds it to the product's gallery.
// The first photo also becomes the cover.
func (s *Service) UploadImage(ctx context.Context, weaverID, productID, filename string, data []byte) (string, error) {
	p, err := s.owned(ctx, weaverID, productID)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExts[ext] {
		return "", ErrImageType
	}
	if len(data) > maxImageSize {
		return "", ErrImageTooLarge
	}

	path := fmt.Sprintf("%s/%s_%d%s", weaverID, p.ID, time.Now().UnixNano(), ext)
	url, err := s.client.UploadObject(ctx, productBucket, path, data)
	if err != nil {
		return "", err
	}

	var images []string
	if len(p.Images) > 0 {
		if err := json.Unmarshal(p.Images, &images); err != nil {
			s.log.Warn("product images are not a json list, resetting", zap.String("product", productID), zap.Error(err))
			images = nil
		}
	}
	images = append(images, url)
	raw, err := json.Marshal(images)
	if err != nil {
		return "", err
	}
	changes := map[string]any{"images": datatypes.JSON(raw), "updated_at": time.Now()}
	if p.ImageURL == "" {
		changes["image_url"] = url
	}
	if _, err := s.client.UpdateRow(ctx, productsTable, backend.Filters{"id": p.ID}, changes); err != nil {
		return "", err
	}
	return url, nil
}
