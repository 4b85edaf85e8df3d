// Package catalog provides the electronics store data used as request
// payloads: products, orders and users.
package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Price bounds for generated products, in Colombian pesos.
const (
	MinPrice int64 = 150000
	MaxPrice int64 = 5000000
)

// Currency is the ISO code prices are expressed in.
const Currency = "COP"

// productNames is the fixed electronics assortment of the store.
var productNames = []string{
	"Teléfono inteligente",
	"Computador portátil",
	"Audífonos inalámbricos",
	"Televisor LED 55''",
	"Consola de videojuegos",
	"Tablet Android",
	"Cámara digital",
	"Smartwatch",
	"Barra de sonido",
	"Disco duro externo",
}

// Product is an item for sale.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Order is a purchase of one product.
type Order struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	Price       int64     `json:"price"`
	CreatedAt   time.Time `json:"createdAt"`
}

// User is a registered store customer.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Source draws random integers in [0, n). *workload.Simulator satisfies it.
type Source interface {
	Intn(n int) int
}

// Catalog is an immutable list of products.
type Catalog struct {
	products []Product
}

// NewCatalog builds the store catalog with fresh IDs and random prices.
func NewCatalog(src Source) *Catalog {
	products := make([]Product, len(productNames))
	span := int(MaxPrice - MinPrice + 1)
	for i, name := range productNames {
		products[i] = Product{
			ID:    uuid.NewString(),
			Name:  name,
			Price: MinPrice + int64(src.Intn(span)),
		}
	}
	return &Catalog{products: products}
}

// Products returns a copy of the catalog contents.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Pick returns a random product.
func (c *Catalog) Pick(src Source) Product {
	return c.products[src.Intn(len(c.products))]
}

// OrderFactory returns a payload factory producing one order per call for
// a randomly chosen product.
func OrderFactory(c *Catalog, src Source) func(int) Order {
	return func(int) Order {
		p := c.Pick(src)
		return Order{
			ID:          uuid.NewString(),
			ProductID:   p.ID,
			ProductName: p.Name,
			Price:       p.Price,
			CreatedAt:   time.Now().UTC(),
		}
	}
}

// UserFactory returns a payload factory producing the user numbered after
// the task index, starting at 1.
func UserFactory() func(int) User {
	return func(index int) User {
		id := index + 1
		return User{
			ID:    id,
			Name:  fmt.Sprintf("Usuario_%d", id),
			Email: fmt.Sprintf("usuario%d@correo.com", id),
		}
	}
}
