// Package seed loads demo weavers, customers and products from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/auth"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/catalog"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/profile"
)

type File struct {
	Weavers   []Weaver `yaml:"weavers"`
	Customers []User   `yaml:"customers"`
}

type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Phone    string `yaml:"phone"`
}

type Weaver struct {
	User     `yaml:",inline"`
	Bio      string    `yaml:"bio"`
	Location string    `yaml:"location"`
	Craft    string    `yaml:"craft"`
	Products []Product `yaml:"products"`
}

type Product struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Category    string            `yaml:"category"`
	Price       int64             `yaml:"price"`
	Stock       int               `yaml:"stock"`
	Images      []string          `yaml:"images"`
	Attributes  map[string]string `yaml:"attributes"`
	Hidden      bool              `yaml:"hidden"`
}

func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parse seed file: %w", err)
	}
	return f, nil
}

func ParseFile(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer fh.Close()
	return Parse(fh)
}

type Result struct {
	Users    int
	Products int
	Skipped  int
}

type Loader struct {
	Auth     *auth.Service
	Profiles *profile.Service
	Catalog  *catalog.Service
	Log      *zap.Logger
}

// Apply creates every user whose email is not registered yet, then that
// weaver's products. Existing users are skipped with their products, so
// running the same file twice changes nothing.
func (l Loader) Apply(ctx context.Context, f File) (Result, error) {
	var res Result

	for _, c := range f.Customers {
		_, err := l.Auth.Register(ctx, auth.RegisterInput{Name: c.Name, Email: c.Email, Password: c.Password, Phone: c.Phone, Role: "customer"})
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("customer %s: %w", c.Email, err)
		default:
			res.Users++
		}
	}

	for _, w := range f.Weavers {
		p, err := l.Auth.Register(ctx, auth.RegisterInput{Name: w.Name, Email: w.Email, Password: w.Password, Phone: w.Phone, Role: "weaver"})
		if errors.Is(err, auth.ErrEmailTaken) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("weaver %s: %w", w.Email, err)
		}
		res.Users++

		id := p.ID.String()
		if _, err := l.Profiles.Update(ctx, id, profile.Update{Bio: &w.Bio, Location: &w.Location, Craft: &w.Craft}); err != nil {
			return res, fmt.Errorf("weaver %s profile: %w", w.Email, err)
		}
		for _, sp := range w.Products {
			visible := !sp.Hidden
			_, err := l.Catalog.CreateProduct(ctx, id, catalog.ProductInput{
				Name:        sp.Name,
				Description: sp.Description,
				Category:    sp.Category,
				Price:       sp.Price,
				Stock:       sp.Stock,
				Images:      sp.Images,
				Attributes:  sp.Attributes,
				IsVisible:   &visible,
			})
			if err != nil {
				return res, fmt.Errorf("product %q: %w", sp.Name, err)
			}
			res.Products++
		}
	}

	l.Log.Info("seed applied", zap.Int("users", res.Users), zap.Int("products", res.Products), zap.Int("skipped", res.Skipped))
	return res, nil
}
