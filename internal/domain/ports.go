package domain

import "context"

// OrderRepository — порт персистентности заказов и их позиций.
type OrderRepository interface {
	// CreateWithItems сохраняет заказ вместе с позициями в одной транзакции.
	CreateWithItems(ctx context.Context, po PricedOrder) (Order, error)
	// Update заменяет заказ и его позиции по идентификатору.
	Update(ctx context.Context, id int64, po PricedOrder) (Order, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context) ([]Order, error)

	ListItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	ListAllItems(ctx context.Context) ([]OrderItem, error)
	GetItem(ctx context.Context, itemID int64) (OrderItem, error)
	// AddItem/UpdateItem/DeleteItem пересчитывают total_amount заказа
	// в той же транзакции.
	AddItem(ctx context.Context, orderID int64, item PricedLine) (OrderItem, error)
	UpdateItem(ctx context.Context, itemID int64, item PricedLine) (OrderItem, error)
	DeleteItem(ctx context.Context, itemID int64) error
}

// OrderCache — порт быстрого доступа к заказам (кэш).
type OrderCache interface {
	Get(id int64) (Order, bool)
	Set(o Order)
	Delete(id int64)
	All() []Order
}

// ProductCatalog — справочник товаров: поиск цены по идентификатору.
type ProductCatalog interface {
	Product(id int64) (Product, bool)
}

// CustomerDirectory — справочник покупателей: проверка существования.
type CustomerDirectory interface {
	Customer(id int64) (Customer, bool)
}

// MessageSubscriber — порт подписчика на входящие сообщения заказов.
type MessageSubscriber interface {
	// Subscribe регистрирует обработчик; ack/повторные доставки реализует адаптер.
	Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error
}

// Общие доменные ошибки
var (
	ErrNotFound   = notFoundError("not found")
	ErrValidation = validationError("invalid data")
)

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

type validationError string

func (e validationError) Error() string { return string(e) }
