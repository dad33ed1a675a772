package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/orders-service/internal/domain"
)

type mapCatalog map[int64]domain.Product

func (c mapCatalog) Product(id int64) (domain.Product, bool) {
	p, ok := c[id]
	return p, ok
}

type mapDirectory map[int64]domain.Customer

func (d mapDirectory) Customer(id int64) (domain.Customer, bool) {
	c, ok := d[id]
	return c, ok
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCatalog() mapCatalog {
	return mapCatalog{
		1: {ID: 1, Name: "Laptop Computer", Price: price("899.99")},
		2: {ID: 2, Name: "Wireless Mouse", Price: price("29.99")},
		3: {ID: 3, Name: "USB Keyboard", Price: price("49.99")},
	}
}

func testDirectory() mapDirectory {
	return mapDirectory{
		1: {ID: 1, Name: "Alice Johnson"},
		2: {ID: 2, Name: "Bob Smith"},
		3: {ID: 3, Name: "Carol Davis"},
	}
}

func TestValidateAndPriceOK(t *testing.T) {
	draft := domain.OrderDraft{
		CustomerID: 1,
		OrderDate:  "2024-01-01",
		Items: []domain.LineItemDraft{
			{ProductID: 1, Quantity: 2, UnitPrice: price("899.99")},
			{ProductID: 2, Quantity: 1, UnitPrice: price("29.99")},
		},
	}

	po, errs := ValidateAndPrice(draft, testCatalog(), testDirectory())
	require.Empty(t, errs)

	assert.Equal(t, int64(1), po.CustomerID)
	assert.Equal(t, "2024-01-01", po.OrderDate)
	require.Len(t, po.Items, 2)
	assert.True(t, po.Items[0].LineTotal.Equal(price("1799.98")), "line 0 total = %s", po.Items[0].LineTotal)
	assert.True(t, po.Items[1].LineTotal.Equal(price("29.99")), "line 1 total = %s", po.Items[1].LineTotal)
	assert.True(t, po.Total.Equal(price("1829.97")), "order total = %s", po.Total)
}

func TestValidateAndPriceKeepsEditedPrice(t *testing.T) {
	// Цена из черновика авторитетна, даже если разошлась с каталогом.
	draft := domain.OrderDraft{
		CustomerID: 2,
		OrderDate:  "2024-02-15",
		Items: []domain.LineItemDraft{
			{ProductID: 1, Quantity: 1, UnitPrice: price("500.00")},
		},
	}

	po, errs := ValidateAndPrice(draft, testCatalog(), testDirectory())
	require.Empty(t, errs)
	assert.True(t, po.Items[0].UnitPrice.Equal(price("500.00")))
	assert.True(t, po.Total.Equal(price("500.00")))
}

func TestValidateAndPriceCollectsAllErrors(t *testing.T) {
	tests := []struct {
		name  string
		draft domain.OrderDraft
		want  []FieldError
	}{
		{
			name:  "empty draft",
			draft: domain.OrderDraft{OrderDate: "2024-01-01"},
			want: []FieldError{
				{Field: "customer_id", Kind: KindRequired},
				{Field: "items", Kind: KindEmpty},
			},
		},
		{
			name: "unknown customer",
			draft: domain.OrderDraft{
				CustomerID: 42,
				OrderDate:  "2024-01-01",
				Items: []domain.LineItemDraft{
					{ProductID: 1, Quantity: 1, UnitPrice: price("899.99")},
				},
			},
			want: []FieldError{{Field: "customer_id", Kind: KindUnknown}},
		},
		{
			name: "missing date",
			draft: domain.OrderDraft{
				CustomerID: 1,
				Items: []domain.LineItemDraft{
					{ProductID: 1, Quantity: 1, UnitPrice: price("899.99")},
				},
			},
			want: []FieldError{{Field: "order_date", Kind: KindRequired}},
		},
		{
			name: "negative quantity",
			draft: domain.OrderDraft{
				CustomerID: 1,
				OrderDate:  "2024-01-01",
				Items: []domain.LineItemDraft{
					{ProductID: 1, Quantity: -1, UnitPrice: price("10")},
				},
			},
			want: []FieldError{{Field: "items[0].quantity", Kind: KindNotPositive}},
		},
		{
			name: "zero price and unknown product",
			draft: domain.OrderDraft{
				CustomerID: 1,
				OrderDate:  "2024-01-01",
				Items: []domain.LineItemDraft{
					{ProductID: 99, Quantity: 1},
				},
			},
			want: []FieldError{
				{Field: "items[0].product_id", Kind: KindInvalid},
				{Field: "items[0].unit_price", Kind: KindNotPositive},
			},
		},
		{
			name: "second item broken",
			draft: domain.OrderDraft{
				CustomerID: 1,
				OrderDate:  "2024-01-01",
				Items: []domain.LineItemDraft{
					{ProductID: 1, Quantity: 1, UnitPrice: price("899.99")},
					{Quantity: 0, UnitPrice: price("-5")},
				},
			},
			want: []FieldError{
				{Field: "items[1].product_id", Kind: KindRequired},
				{Field: "items[1].quantity", Kind: KindNotPositive},
				{Field: "items[1].unit_price", Kind: KindNotPositive},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			po, errs := ValidateAndPrice(tt.draft, testCatalog(), testDirectory())
			assert.Equal(t, FieldErrors(tt.want), errs)
			assert.Empty(t, po.Items, "no priced order on validation failure")
			assert.True(t, po.Total.IsZero())
		})
	}
}

func TestValidateAndPriceNilDirectory(t *testing.T) {
	// Без справочника проверяется только наличие идентификатора.
	draft := domain.OrderDraft{
		CustomerID: 777,
		OrderDate:  "2024-01-01",
		Items: []domain.LineItemDraft{
			{ProductID: 1, Quantity: 1, UnitPrice: price("899.99")},
		},
	}
	_, errs := ValidateAndPrice(draft, testCatalog(), nil)
	assert.Empty(t, errs)
}

func TestFieldErrorsMatchesErrValidation(t *testing.T) {
	_, errs := ValidateAndPrice(domain.OrderDraft{}, testCatalog(), testDirectory())
	require.NotEmpty(t, errs)
	assert.True(t, errors.Is(errs, domain.ErrValidation))
	assert.Contains(t, errs.Error(), "customer_id: required")
}

func TestApplyProductPriceDefault(t *testing.T) {
	catalog := testCatalog()

	it := domain.LineItemDraft{ProductID: 2, Quantity: 3, UnitPrice: price("1.00")}
	got := ApplyProductPriceDefault(it, catalog)
	assert.True(t, got.UnitPrice.Equal(price("29.99")))
	assert.Equal(t, int64(3), got.Quantity)

	// Неизвестный товар — позиция не меняется.
	it = domain.LineItemDraft{ProductID: 99, UnitPrice: price("7.50")}
	got = ApplyProductPriceDefault(it, catalog)
	assert.True(t, got.UnitPrice.Equal(price("7.50")))
}

func TestRecomputeTotal(t *testing.T) {
	items := []domain.LineItemDraft{
		{ProductID: 1, Quantity: 2, UnitPrice: price("899.99")},
		{ProductID: 2, Quantity: 1, UnitPrice: price("29.99")},
		{ProductID: 3}, // недозаполненная строка даёт нулевой вклад
	}

	first := RecomputeTotal(items)
	assert.True(t, first.Equal(price("1829.97")), "total = %s", first)

	// Идемпотентность: повторный вызов не меняет ни результат, ни вход.
	second := RecomputeTotal(items)
	assert.True(t, first.Equal(second))
	assert.True(t, items[2].UnitPrice.IsZero())

	assert.True(t, RecomputeTotal(nil).IsZero())
}

func TestRecomputeTotalNoDrift(t *testing.T) {
	// 0.1 сто раз подряд — двоичный float здесь бы уже наврал.
	items := make([]domain.LineItemDraft, 100)
	for i := range items {
		items[i] = domain.LineItemDraft{ProductID: 1, Quantity: 1, UnitPrice: price("0.10")}
	}
	assert.True(t, RecomputeTotal(items).Equal(price("10.00")))
}
