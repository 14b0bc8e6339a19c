package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Операции с корзиной. Корзина живёт только в памяти и не персистится:
// она очищается при checkout, явном Clear или перезапуске процесса.

// AddToCart добавляет товар в корзину
// Если товар уже в корзине — увеличивает количество на 1
// Количество в строке никогда не превышает текущий остаток товара
func (s *Store) AddToCart(productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(productID)
	if idx < 0 {
		return ErrNotFound
	}
	product := s.products[idx]

	if product.Stock <= 0 {
		return ErrOutOfStock
	}

	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			if s.cart[i].Quantity >= product.Stock {
				return fmt.Errorf("%w: %d of %q in cart, %d in stock",
					ErrInsufficientStock, s.cart[i].Quantity, product.Name, product.Stock)
			}
			s.cart[i].Quantity++
			return nil
		}
	}

	// Снимок имени и цены на момент добавления: последующие правки каталога
	// не меняют строку корзины
	s.cart = append(s.cart, CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Quantity:  1,
	})
	return nil
}

// UpdateCartQuantity изменяет количество в строке корзины на delta
// Итоговое количество ≤ 0 удаляет строку; количество выше текущего остатка
// отклоняется, строка остаётся без изменений
func (s *Store) UpdateCartQuantity(index int, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.cart) {
		return ErrCartLineNotFound
	}
	line := s.cart[index]

	newQuantity := line.Quantity + delta
	if newQuantity <= 0 {
		s.removeFromCartLocked(index)
		return nil
	}

	idx := s.productIndex(line.ProductID)
	if idx < 0 {
		return ErrNotFound
	}
	if newQuantity > s.products[idx].Stock {
		return fmt.Errorf("%w: requested %d of %q, %d in stock",
			ErrInsufficientStock, newQuantity, line.Name, s.products[idx].Stock)
	}

	s.cart[index].Quantity = newQuantity
	return nil
}

// RemoveFromCart удаляет одну строку корзины по индексу
func (s *Store) RemoveFromCart(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.cart) {
		return ErrCartLineNotFound
	}
	s.removeFromCartLocked(index)
	return nil
}

func (s *Store) removeFromCartLocked(index int) {
	s.cart = append(s.cart[:index], s.cart[index+1:]...)
}

// ClearCart удаляет все строки корзины
// Подтверждение пользователя — забота презентационного слоя
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
}

// Cart возвращает копию строк корзины
func (s *Store) Cart() []CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSlice(s.cart)
}

// CartTotal возвращает сумму корзины
// Пересчитывается при каждом вызове, никогда не кэшируется
func (s *Store) CartTotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cartTotal(s.cart)
}

func cartTotal(cart []CartLine) int64 {
	var total int64
	for _, line := range cart {
		total += line.Price * int64(line.Quantity)
	}
	return total
}

// Checkout завершает продажу: проверяет корзину и оплату, создаёт
// транзакцию, списывает остатки и очищает корзину
// При недостаточной оплате корзина и остатки остаются без изменений
func (s *Store) Checkout(ctx context.Context, payment int64) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cart) == 0 {
		return Transaction{}, ErrEmptyCart
	}

	total := cartTotal(s.cart)
	if payment < total {
		return Transaction{}, fmt.Errorf("%w: total %d, payment %d", ErrInsufficientPayment, total, payment)
	}

	// Items — глубокая копия строк корзины: транзакция неизменяема,
	// дальнейшие правки каталога её не трогают
	items := make([]TransactionItem, 0, len(s.cart))
	for _, line := range s.cart {
		items = append(items, TransactionItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
	}

	tx := Transaction{
		Items:             items,
		Total:             total,
		Payment:           payment,
		Change:            payment - total,
		TransactionNumber: "TRX" + strconv.FormatInt(s.now().UnixMilli(), 10),
	}

	stored, err := s.addTransactionLocked(ctx, tx)
	if err != nil {
		return Transaction{}, err
	}

	s.cart = nil

	if s.publisher != nil {
		// Fire-and-forget: продажа уже зафиксирована, сбой публикации только логируем
		if err := s.publisher.PublishSaleCompleted(ctx, SaleCompletedEvent{
			TransactionID:     stored.ID,
			TransactionNumber: stored.TransactionNumber,
			Total:             stored.Total,
			ItemCount:         len(stored.Items),
		}); err != nil {
			s.logger.Warn("failed to publish sale event",
				zap.Error(err),
				zap.String("number", stored.TransactionNumber),
			)
		}
	}

	return stored, nil
}
