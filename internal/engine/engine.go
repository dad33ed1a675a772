// Package engine — чистый движок составления заказа: валидация черновика,
// расчёт стоимости строк и итога. Не держит состояния и не делает I/O,
// поэтому безопасен для параллельных вызовов без какой-либо синхронизации.
package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/orders-service/internal/domain"
)

// Kind — вид нарушения для одного поля.
type Kind string

const (
	KindRequired    Kind = "required"     // обязательное поле не заполнено
	KindUnknown     Kind = "unknown"      // покупатель отсутствует в справочнике
	KindEmpty       Kind = "empty"        // в заказе нет ни одной позиции
	KindInvalid     Kind = "invalid"      // товар отсутствует в каталоге
	KindNotPositive Kind = "not_positive" // количество или цена не больше нуля
)

// FieldError — одно нарушение правил с путём до поля.
type FieldError struct {
	Field string `json:"field"`
	Kind  Kind   `json:"kind"`
}

// FieldErrors — полный список нарушений одного черновика.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Kind)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is позволяет отличать ошибку валидации через errors.Is(err, domain.ErrValidation).
func (e FieldErrors) Is(target error) bool { return target == domain.ErrValidation }

// ValidateAndPrice проверяет черновик целиком и, если нарушений нет,
// возвращает payload с посчитанными стоимостями строк и итогом заказа.
// Нарушения собираются все сразу, без короткого замыкания, чтобы вызывающий
// слой мог показать их одним списком. Справочник покупателей может быть nil —
// тогда проверяется только наличие идентификатора. Каталог обязателен.
func ValidateAndPrice(draft domain.OrderDraft, catalog domain.ProductCatalog, directory domain.CustomerDirectory) (domain.PricedOrder, FieldErrors) {
	if catalog == nil {
		panic("engine: nil product catalog")
	}

	var errs FieldErrors

	if draft.CustomerID <= 0 {
		errs = append(errs, FieldError{Field: "customer_id", Kind: KindRequired})
	} else if directory != nil {
		if _, ok := directory.Customer(draft.CustomerID); !ok {
			errs = append(errs, FieldError{Field: "customer_id", Kind: KindUnknown})
		}
	}

	if draft.OrderDate == "" {
		errs = append(errs, FieldError{Field: "order_date", Kind: KindRequired})
	}

	if len(draft.Items) == 0 {
		errs = append(errs, FieldError{Field: "items", Kind: KindEmpty})
	}

	for i, it := range draft.Items {
		for _, fe := range ValidateLineItem(it, catalog) {
			fe.Field = itemField(i, fe.Field)
			errs = append(errs, fe)
		}
	}

	if len(errs) > 0 {
		return domain.PricedOrder{}, errs
	}

	po := domain.PricedOrder{
		CustomerID: draft.CustomerID,
		OrderDate:  draft.OrderDate,
		Items:      make([]domain.PricedLine, len(draft.Items)),
		Total:      decimal.Zero,
	}
	for i, it := range draft.Items {
		po.Items[i] = PriceLine(it)
		po.Total = po.Total.Add(po.Items[i].LineTotal)
	}
	return po, nil
}

// ValidateLineItem проверяет одну позицию по тем же правилам, что и
// ValidateAndPrice. Имена полей возвращаются без префикса items[i] —
// его добавляет вызывающий, если позиция проверяется в составе черновика.
func ValidateLineItem(it domain.LineItemDraft, catalog domain.ProductCatalog) FieldErrors {
	if catalog == nil {
		panic("engine: nil product catalog")
	}
	var errs FieldErrors
	if it.ProductID <= 0 {
		errs = append(errs, FieldError{Field: "product_id", Kind: KindRequired})
	} else if _, ok := catalog.Product(it.ProductID); !ok {
		errs = append(errs, FieldError{Field: "product_id", Kind: KindInvalid})
	}
	if it.Quantity <= 0 {
		errs = append(errs, FieldError{Field: "quantity", Kind: KindNotPositive})
	}
	if it.UnitPrice.Sign() <= 0 {
		errs = append(errs, FieldError{Field: "unit_price", Kind: KindNotPositive})
	}
	return errs
}

// PriceLine считает стоимость строки для валидной позиции.
func PriceLine(it domain.LineItemDraft) domain.PricedLine {
	return domain.PricedLine{
		ProductID: it.ProductID,
		Quantity:  it.Quantity,
		UnitPrice: it.UnitPrice,
		LineTotal: lineTotal(it),
	}
}

// ApplyProductPriceDefault подставляет каталожную цену при выборе товара.
// Это одноразовая подсказка: вызывается в момент смены product_id и не
// перетирает цену при дальнейшем редактировании. Неизвестный товар
// оставляет позицию без изменений.
func ApplyProductPriceDefault(item domain.LineItemDraft, catalog domain.ProductCatalog) domain.LineItemDraft {
	if catalog == nil {
		return item
	}
	if p, ok := catalog.Product(item.ProductID); ok {
		item.UnitPrice = p.Price
	}
	return item
}

// RecomputeTotal — «живой» итог для формы во время редактирования.
// Терпим к недозаполненным позициям: нулевые количество или цена дают
// нулевой вклад строки, ошибок здесь не бывает.
func RecomputeTotal(items []domain.LineItemDraft) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(lineTotal(it))
	}
	return total
}

func lineTotal(it domain.LineItemDraft) decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity))
}

func itemField(i int, name string) string {
	return fmt.Sprintf("items[%d].%s", i, name)
}
