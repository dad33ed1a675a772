package domain

import "github.com/shopspring/decimal"

// Customer — справочная запись покупателя. Движком не изменяется.
type Customer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product — справочная запись товара с базовой ценой.
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// LineItemDraft — позиция черновика заказа. Цена подставляется из каталога
// при выборе товара, но остаётся редактируемой и проверяется отдельно.
type LineItemDraft struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderDraft — составляемый заказ. Сохраняется только целиком, после
// успешной валидации. Дата проверяется лишь на непустоту; разбор формата —
// забота вызывающего слоя.
type OrderDraft struct {
	CustomerID int64           `json:"customer_id"`
	OrderDate  string          `json:"order_date"`
	Items      []LineItemDraft `json:"items"`
}

// PricedLine — позиция с посчитанной стоимостью строки.
type PricedLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// PricedOrder — результат валидации черновика: payload для отправки в
// хранилище. Цены берутся из черновика, а не из каталога на момент отправки.
type PricedOrder struct {
	CustomerID int64           `json:"customer_id"`
	OrderDate  string          `json:"order_date"`
	Items      []PricedLine    `json:"items"`
	Total      decimal.Decimal `json:"total_amount"`
}

// Order — сохранённый заказ. Идентификаторы назначает хранилище.
type Order struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	OrderDate  string          `json:"order_date"`
	Total      decimal.Decimal `json:"total_amount"`
	Items      []OrderItem     `json:"items,omitempty"`
}

// OrderItem — сохранённая позиция заказа. LineTotal всегда вычисляется
// как quantity * unit_price и отдельно не хранится.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Stats — агрегированная статистика по заказам.
type Stats struct {
	TotalOrders     int             `json:"total_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	UniqueCustomers int             `json:"unique_customers"`
	Products        []ProductStats  `json:"product_stats"`
	EarliestOrder   string          `json:"earliest_order,omitempty"`
	LatestOrder     string          `json:"latest_order,omitempty"`
}

// ProductStats — продажи по одному товару.
type ProductStats struct {
	ProductID int64           `json:"product_id"`
	Units     int64           `json:"units"`
	Revenue   decimal.Decimal `json:"revenue"`
}
