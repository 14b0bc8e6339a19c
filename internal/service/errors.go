package service

import "errors"

// Три вида ошибок Store (см. модель ошибок в DESIGN.md):
//   - not-found: цель операции отсутствует
//   - business-rule: операция отклонена, состояние не изменено
//   - storage: персистентное хранилище недоступно, in-memory состояние откатано
var (
	// ErrNotFound возвращается, когда товар или транзакция не найдены
	ErrNotFound = errors.New("not found")

	// ErrCartLineNotFound возвращается при обращении к несуществующей строке корзины
	ErrCartLineNotFound = errors.New("cart line not found")

	// ErrOutOfStock возвращается при попытке добавить в корзину товар с нулевым остатком
	ErrOutOfStock = errors.New("product is out of stock")

	// ErrInsufficientStock возвращается, когда запрошенное количество превышает остаток
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNegativeStock возвращается, когда корректировка увела бы остаток ниже нуля
	// (только при STOCK_ALLOW_NEGATIVE=false)
	ErrNegativeStock = errors.New("stock cannot go below zero")

	// ErrEmptyCart возвращается при попытке checkout с пустой корзиной
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInsufficientPayment возвращается, когда оплата меньше суммы корзины
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrStorageUnavailable оборачивает ошибки записи в StateStore
	ErrStorageUnavailable = errors.New("storage unavailable")
)
