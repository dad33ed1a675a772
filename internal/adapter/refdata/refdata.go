// Package refdata — справочники покупателей и товаров. Данные только для
// чтения: движок ищет по ним цену и проверяет существование покупателя.
package refdata

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/example/orders-service/internal/domain"
)

// Static — справочники в памяти. После создания не изменяются, поэтому
// читаются без блокировок.
type Static struct {
	customers map[int64]domain.Customer
	products  map[int64]domain.Product
}

func New(customers []domain.Customer, products []domain.Product) *Static {
	s := &Static{
		customers: make(map[int64]domain.Customer, len(customers)),
		products:  make(map[int64]domain.Product, len(products)),
	}
	for _, c := range customers {
		s.customers[c.ID] = c
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *Static) Customer(id int64) (domain.Customer, bool) {
	c, ok := s.customers[id]
	return c, ok
}

func (s *Static) Product(id int64) (domain.Product, bool) {
	p, ok := s.products[id]
	return p, ok
}

// Customers — все покупатели по возрастанию идентификатора.
func (s *Static) Customers() []domain.Customer {
	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Products — все товары по возрастанию идентификатора.
func (s *Static) Products() []domain.Product {
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var (
	_ domain.CustomerDirectory = (*Static)(nil)
	_ domain.ProductCatalog    = (*Static)(nil)
)

// Defaults — стартовый набор справочных данных.
func Defaults() *Static {
	return New(
		[]domain.Customer{
			{ID: 1, Name: "Alice Johnson"},
			{ID: 2, Name: "Bob Smith"},
			{ID: 3, Name: "Carol Davis"},
		},
		[]domain.Product{
			{ID: 1, Name: "Laptop Computer", Price: decimal.RequireFromString("899.99")},
			{ID: 2, Name: "Wireless Mouse", Price: decimal.RequireFromString("29.99")},
			{ID: 3, Name: "USB Keyboard", Price: decimal.RequireFromString("49.99")},
		},
	)
}

// Seed — записать набор в Postgres, не трогая уже существующие строки.
func Seed(ctx context.Context, pool *pgxpool.Pool, s *Static) error {
	for _, c := range s.Customers() {
		_, err := pool.Exec(ctx,
			`INSERT INTO customers(id, name) VALUES($1, $2) ON CONFLICT (id) DO NOTHING`, c.ID, c.Name)
		if err != nil {
			return err
		}
	}
	for _, p := range s.Products() {
		_, err := pool.Exec(ctx,
			`INSERT INTO products(id, name, price) VALUES($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Price.String())
		if err != nil {
			return err
		}
	}
	return nil
}

// Load — прочитать справочники из Postgres.
func Load(ctx context.Context, pool *pgxpool.Pool) (*Static, error) {
	var customers []domain.Customer
	rows, err := pool.Query(ctx, `SELECT id, name FROM customers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var products []domain.Product
	prows, err := pool.Query(ctx, `SELECT id, name, price::text FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var p domain.Product
		var price string
		if err := prows.Scan(&p.ID, &p.Name, &price); err != nil {
			return nil, err
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := prows.Err(); err != nil {
		return nil, err
	}
	return New(customers, products), nil
}
