package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/example/orders-service/internal/domain"
)

// PostgresOrderRepo — хранилище заказов и позиций в Postgres.
// Денежные значения ходят через numeric и передаются текстом, чтобы не
// терять десятичную точность на двоичных float.
type PostgresOrderRepo struct {
	Pool *pgxpool.Pool
}

func NewPostgresOrderRepo(pool *pgxpool.Pool) *PostgresOrderRepo {
	return &PostgresOrderRepo{Pool: pool}
}

func (r *PostgresOrderRepo) CreateWithItems(ctx context.Context, po domain.PricedOrder) (domain.Order, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO orders(customer_id, order_date, total_amount) VALUES($1, $2, $3) RETURNING id`,
		po.CustomerID, po.OrderDate, po.Total.String()).Scan(&orderID)
	if err != nil {
		return domain.Order{}, err
	}

	o := domain.Order{ID: orderID, CustomerID: po.CustomerID, OrderDate: po.OrderDate, Total: po.Total}
	o.Items, err = insertItems(ctx, tx, orderID, po.Items)
	if err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *PostgresOrderRepo) Update(ctx context.Context, id int64, po domain.PricedOrder) (domain.Order, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET customer_id = $1, order_date = $2, total_amount = $3 WHERE id = $4`,
		po.CustomerID, po.OrderDate, po.Total.String(), id)
	if err != nil {
		return domain.Order{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.Order{}, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}

	// Позиции заменяются целиком: черновик валидируется и сохраняется как одно целое.
	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return domain.Order{}, err
	}
	o := domain.Order{ID: id, CustomerID: po.CustomerID, OrderDate: po.OrderDate, Total: po.Total}
	o.Items, err = insertItems(ctx, tx, id, po.Items)
	if err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *PostgresOrderRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresOrderRepo) Get(ctx context.Context, id int64) (domain.Order, error) {
	o, err := scanOrder(r.Pool.QueryRow(ctx,
		`SELECT id, customer_id, order_date, total_amount::text FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *PostgresOrderRepo) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT id, customer_id, order_date, total_amount::text FROM orders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *PostgresOrderRepo) ListItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	return r.queryItems(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price::text FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID)
}

func (r *PostgresOrderRepo) ListAllItems(ctx context.Context) ([]domain.OrderItem, error) {
	return r.queryItems(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price::text FROM order_items ORDER BY id`)
}

func (r *PostgresOrderRepo) GetItem(ctx context.Context, itemID int64) (domain.OrderItem, error) {
	it, err := scanItem(r.Pool.QueryRow(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price::text FROM order_items WHERE id = $1`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OrderItem{}, fmt.Errorf("order item %d: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.OrderItem{}, err
	}
	return it, nil
}

func (r *PostgresOrderRepo) AddItem(ctx context.Context, orderID int64, item domain.PricedLine) (domain.OrderItem, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return domain.OrderItem{}, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return domain.OrderItem{}, err
	}
	if !exists {
		return domain.OrderItem{}, fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}

	var itemID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO order_items(order_id, product_id, quantity, unit_price) VALUES($1, $2, $3, $4) RETURNING id`,
		orderID, item.ProductID, item.Quantity, item.UnitPrice.String()).Scan(&itemID)
	if err != nil {
		return domain.OrderItem{}, err
	}
	if err := recalcTotal(ctx, tx, orderID); err != nil {
		return domain.OrderItem{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.OrderItem{}, err
	}
	return domain.OrderItem{
		ID:        itemID,
		OrderID:   orderID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		LineTotal: item.LineTotal,
	}, nil
}

func (r *PostgresOrderRepo) UpdateItem(ctx context.Context, itemID int64, item domain.PricedLine) (domain.OrderItem, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return domain.OrderItem{}, err
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx,
		`UPDATE order_items SET product_id = $1, quantity = $2, unit_price = $3 WHERE id = $4 RETURNING order_id`,
		item.ProductID, item.Quantity, item.UnitPrice.String(), itemID).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OrderItem{}, fmt.Errorf("order item %d: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.OrderItem{}, err
	}
	if err := recalcTotal(ctx, tx, orderID); err != nil {
		return domain.OrderItem{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.OrderItem{}, err
	}
	return domain.OrderItem{
		ID:        itemID,
		OrderID:   orderID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice,
		LineTotal: item.LineTotal,
	}, nil
}

func (r *PostgresOrderRepo) DeleteItem(ctx context.Context, itemID int64) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var orderID int64
	err = tx.QueryRow(ctx, `DELETE FROM order_items WHERE id = $1 RETURNING order_id`, itemID).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("order item %d: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if err := recalcTotal(ctx, tx, orderID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var _ domain.OrderRepository = (*PostgresOrderRepo)(nil)

func insertItems(ctx context.Context, tx pgx.Tx, orderID int64, lines []domain.PricedLine) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, len(lines))
	for i, ln := range lines {
		var itemID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO order_items(order_id, product_id, quantity, unit_price) VALUES($1, $2, $3, $4) RETURNING id`,
			orderID, ln.ProductID, ln.Quantity, ln.UnitPrice.String()).Scan(&itemID)
		if err != nil {
			return nil, err
		}
		items[i] = domain.OrderItem{
			ID:        itemID,
			OrderID:   orderID,
			ProductID: ln.ProductID,
			Quantity:  ln.Quantity,
			UnitPrice: ln.UnitPrice,
			LineTotal: ln.LineTotal,
		}
	}
	return items, nil
}

// recalcTotal приводит total_amount заказа в соответствие его позициям.
func recalcTotal(ctx context.Context, tx pgx.Tx, orderID int64) error {
	_, err := tx.Exec(ctx, `
UPDATE orders SET total_amount = COALESCE(
  (SELECT SUM(quantity * unit_price) FROM order_items WHERE order_id = $1), 0)
WHERE id = $1`, orderID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	var total string
	if err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &total); err != nil {
		return domain.Order{}, err
	}
	var err error
	o.Total, err = decimal.NewFromString(total)
	return o, err
}

func scanItem(row rowScanner) (domain.OrderItem, error) {
	var it domain.OrderItem
	var priceStr string
	if err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &priceStr); err != nil {
		return domain.OrderItem{}, err
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return domain.OrderItem{}, err
	}
	it.UnitPrice = price
	it.LineTotal = price.Mul(decimal.NewFromInt(it.Quantity))
	return it, nil
}

func (r *PostgresOrderRepo) queryItems(ctx context.Context, sql string, args ...any) ([]domain.OrderItem, error) {
	rows, err := r.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// EnsureSchema — создать необходимые таблицы, если отсутствуют.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS orders (
  id bigserial PRIMARY KEY,
  customer_id bigint NOT NULL,
  order_date text NOT NULL,
  total_amount numeric(12,2) NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS order_items (
  id bigserial PRIMARY KEY,
  order_id bigint NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id bigint NOT NULL,
  quantity bigint NOT NULL,
  unit_price numeric(12,2) NOT NULL
);
CREATE TABLE IF NOT EXISTS customers (
  id bigint PRIMARY KEY,
  name text NOT NULL
);
CREATE TABLE IF NOT EXISTS products (
  id bigint PRIMARY KEY,
  name text NOT NULL,
  price numeric(12,2) NOT NULL
);`)
	return err
}
