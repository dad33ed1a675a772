package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/example/orders-service/internal/domain"
	"github.com/example/orders-service/internal/engine"
)

// ComposeOrder — прогнать черновик через движок с инжектированными
// справочниками. Единая точка валидации: через неё идут создание,
// обновление и предпросмотр черновика без сохранения.
type ComposeOrder struct {
	Catalog   domain.ProductCatalog
	Directory domain.CustomerDirectory
}

func (uc ComposeOrder) Execute(draft domain.OrderDraft) (domain.PricedOrder, engine.FieldErrors) {
	return engine.ValidateAndPrice(draft, uc.Catalog, uc.Directory)
}

// CreateOrderWithItems — провалидировать черновик, сохранить заказ с позициями
// одной транзакцией и положить результат в кэш.
type CreateOrderWithItems struct {
	Repo      domain.OrderRepository
	Cache     domain.OrderCache
	Catalog   domain.ProductCatalog
	Directory domain.CustomerDirectory
}

func (uc CreateOrderWithItems) Execute(ctx context.Context, draft domain.OrderDraft) (domain.Order, error) {
	po, verrs := ComposeOrder{Catalog: uc.Catalog, Directory: uc.Directory}.Execute(draft)
	if verrs != nil {
		return domain.Order{}, verrs
	}
	o, err := uc.Repo.CreateWithItems(ctx, po)
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	uc.Cache.Set(withoutItems(o))
	return o, nil
}

// UpdateOrder — провалидировать черновик и заменить существующий заказ.
type UpdateOrder struct {
	Repo      domain.OrderRepository
	Cache     domain.OrderCache
	Catalog   domain.ProductCatalog
	Directory domain.CustomerDirectory
}

func (uc UpdateOrder) Execute(ctx context.Context, id int64, draft domain.OrderDraft) (domain.Order, error) {
	po, verrs := ComposeOrder{Catalog: uc.Catalog, Directory: uc.Directory}.Execute(draft)
	if verrs != nil {
		return domain.Order{}, verrs
	}
	o, err := uc.Repo.Update(ctx, id, po)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order %d: %w", id, err)
	}
	uc.Cache.Set(withoutItems(o))
	return o, nil
}

// DeleteOrder — удалить заказ и выкинуть его из кэша.
type DeleteOrder struct {
	Repo  domain.OrderRepository
	Cache domain.OrderCache
}

func (uc DeleteOrder) Execute(ctx context.Context, id int64) error {
	if err := uc.Repo.Delete(ctx, id); err != nil {
		return err
	}
	uc.Cache.Delete(id)
	return nil
}

// GetOrderByID — получить заказ из кэша по идентификатору.
type GetOrderByID struct {
	Cache domain.OrderCache
}

func (uc GetOrderByID) Execute(id int64) (domain.Order, bool) {
	return uc.Cache.Get(id)
}

// ListOrders — все заказы из кэша, отсортированные по идентификатору.
type ListOrders struct {
	Cache domain.OrderCache
}

func (uc ListOrders) Execute() []domain.Order {
	orders := uc.Cache.All()
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders
}

// GetOrderItems — позиции одного заказа из репозитория.
type GetOrderItems struct {
	Repo domain.OrderRepository
}

func (uc GetOrderItems) Execute(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	return uc.Repo.ListItems(ctx, orderID)
}

// ListAllItems — все позиции всех заказов.
type ListAllItems struct {
	Repo domain.OrderRepository
}

func (uc ListAllItems) Execute(ctx context.Context) ([]domain.OrderItem, error) {
	return uc.Repo.ListAllItems(ctx)
}

// GetOrderItem — одна позиция по идентификатору.
type GetOrderItem struct {
	Repo domain.OrderRepository
}

func (uc GetOrderItem) Execute(ctx context.Context, itemID int64) (domain.OrderItem, error) {
	return uc.Repo.GetItem(ctx, itemID)
}

// AddOrderItem — добавить позицию в существующий заказ. Итог заказа
// пересчитывает репозиторий в той же транзакции; кэш обновляется свежей
// версией заказа.
type AddOrderItem struct {
	Repo    domain.OrderRepository
	Cache   domain.OrderCache
	Catalog domain.ProductCatalog
}

func (uc AddOrderItem) Execute(ctx context.Context, orderID int64, item domain.LineItemDraft) (domain.OrderItem, error) {
	if verrs := engine.ValidateLineItem(item, uc.Catalog); verrs != nil {
		return domain.OrderItem{}, verrs
	}
	it, err := uc.Repo.AddItem(ctx, orderID, engine.PriceLine(item))
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("add item to order %d: %w", orderID, err)
	}
	refreshCachedOrder(ctx, uc.Repo, uc.Cache, orderID)
	return it, nil
}

// UpdateOrderItem — изменить позицию по идентификатору.
type UpdateOrderItem struct {
	Repo    domain.OrderRepository
	Cache   domain.OrderCache
	Catalog domain.ProductCatalog
}

func (uc UpdateOrderItem) Execute(ctx context.Context, itemID int64, item domain.LineItemDraft) (domain.OrderItem, error) {
	if verrs := engine.ValidateLineItem(item, uc.Catalog); verrs != nil {
		return domain.OrderItem{}, verrs
	}
	it, err := uc.Repo.UpdateItem(ctx, itemID, engine.PriceLine(item))
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("update item %d: %w", itemID, err)
	}
	refreshCachedOrder(ctx, uc.Repo, uc.Cache, it.OrderID)
	return it, nil
}

// DeleteOrderItem — удалить позицию; итог родительского заказа пересчитается.
type DeleteOrderItem struct {
	Repo  domain.OrderRepository
	Cache domain.OrderCache
}

func (uc DeleteOrderItem) Execute(ctx context.Context, itemID int64) error {
	it, err := uc.Repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if err := uc.Repo.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	refreshCachedOrder(ctx, uc.Repo, uc.Cache, it.OrderID)
	return nil
}

// GetStats — агрегаты по всем заказам. Выручка считается десятичной
// арифметикой по сохранённым итогам.
type GetStats struct {
	Repo domain.OrderRepository
}

func (uc GetStats) Execute(ctx context.Context) (domain.Stats, error) {
	orders, err := uc.Repo.List(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("list orders: %w", err)
	}
	items, err := uc.Repo.ListAllItems(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("list items: %w", err)
	}

	st := domain.Stats{
		TotalOrders:  len(orders),
		TotalRevenue: decimal.Zero,
		Products:     []domain.ProductStats{},
	}
	customers := map[int64]struct{}{}
	for _, o := range orders {
		st.TotalRevenue = st.TotalRevenue.Add(o.Total)
		customers[o.CustomerID] = struct{}{}
		if st.EarliestOrder == "" || o.OrderDate < st.EarliestOrder {
			st.EarliestOrder = o.OrderDate
		}
		if o.OrderDate > st.LatestOrder {
			st.LatestOrder = o.OrderDate
		}
	}
	st.UniqueCustomers = len(customers)

	byProduct := map[int64]*domain.ProductStats{}
	for _, it := range items {
		ps, ok := byProduct[it.ProductID]
		if !ok {
			ps = &domain.ProductStats{ProductID: it.ProductID, Revenue: decimal.Zero}
			byProduct[it.ProductID] = ps
		}
		ps.Units += it.Quantity
		ps.Revenue = ps.Revenue.Add(it.LineTotal)
	}
	for _, ps := range byProduct {
		st.Products = append(st.Products, *ps)
	}
	sort.Slice(st.Products, func(i, j int) bool { return st.Products[i].ProductID < st.Products[j].ProductID })
	return st, nil
}

// LoadCache — загрузить все заказы из репозитория в кэш при старте.
type LoadCache struct {
	Repo  domain.OrderRepository
	Cache domain.OrderCache
}

func (uc LoadCache) Execute(ctx context.Context) error {
	orders, err := uc.Repo.List(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		uc.Cache.Set(withoutItems(o))
	}
	return nil
}

// ProcessIncomingOrder — принять payload заказа из очереди, провалидировать
// движком и сохранить. Ошибка валидации возвращается как есть: такое
// сообщение переотправкой не починить, адаптер его подтверждает и выбрасывает.
type ProcessIncomingOrder struct {
	Repo      domain.OrderRepository
	Cache     domain.OrderCache
	Catalog   domain.ProductCatalog
	Directory domain.CustomerDirectory
}

func (uc ProcessIncomingOrder) Execute(ctx context.Context, raw []byte) error {
	var draft domain.OrderDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	create := CreateOrderWithItems{Repo: uc.Repo, Cache: uc.Cache, Catalog: uc.Catalog, Directory: uc.Directory}
	_, err := create.Execute(ctx, draft)
	return err
}

// withoutItems — копия заказа для кэша. Позиции в кэше не хранятся:
// Get/List репозитория их не загружают, и без этого форма закэшированного
// заказа зависела бы от того, каким путём он записан последним.
func withoutItems(o domain.Order) domain.Order {
	o.Items = nil
	return o
}

func refreshCachedOrder(ctx context.Context, repo domain.OrderRepository, cache domain.OrderCache, orderID int64) {
	// Кэш — не источник истины: если перечитать заказ не удалось,
	// достаточно убрать устаревшую копию.
	o, err := repo.Get(ctx, orderID)
	if err != nil {
		cache.Delete(orderID)
		return
	}
	cache.Set(withoutItems(o))
}
