package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shestoi/warungpos/internal/repository"
)

// Store содержит бизнес-логику точки продаж: каталог, корзину,
// транзакции и историю остатков
// Четыре коллекции живут в памяти; каждая мутация сериализует затронутые
// коллекции целиком в StateStore (один JSON-снапшот на ключ)
// Store зависит от интерфейса StateStore, а не от конкретной реализации
type Store struct {
	mu        sync.Mutex
	state     repository.StateStore
	logger    *zap.Logger
	publisher SaleEventPublisher

	// allowNegativeStock разрешает уводить остаток ниже нуля при корректировках
	allowNegativeStock bool

	// now подменяется в тестах
	now func() time.Time

	products     []Product
	transactions []Transaction
	stockHistory []StockHistoryEntry
	cart         []CartLine
	counters     counters
}

// Options содержит необязательные зависимости Store
type Options struct {
	// AllowNegativeStock разрешает отрицательный остаток (backorder)
	AllowNegativeStock bool
	// Publisher публикует события продаж; nil отключает публикацию
	Publisher SaleEventPublisher
	// Now подменяет источник времени (для тестов)
	Now func() time.Time
}

// NewStore создаёт Store и загружает все коллекции из StateStore
// При первом запуске (ключ products отсутствует) каталог засевается
// дефолтными товарами и сразу персистится
func NewStore(ctx context.Context, state repository.StateStore, logger *zap.Logger, opts Options) (*Store, error) {
	s := &Store{
		state:              state,
		logger:             logger,
		publisher:          opts.Publisher,
		allowNegativeStock: opts.AllowNegativeStock,
		now:                opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}

	logger.Info("store loaded",
		zap.Int("products", len(s.products)),
		zap.Int("transactions", len(s.transactions)),
		zap.Int("stock_history", len(s.stockHistory)),
	)

	return s, nil
}

// load читает четыре ключа хранилища и восстанавливает состояние
// Загрузка defensive: отсутствующие ключи означают пустые коллекции,
// отсутствующий ключ counters восстанавливается из максимальных ID
func (s *Store) load(ctx context.Context) error {
	seeded := false
	if err := loadCollection(ctx, s.state, repository.KeyProducts, &s.products); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		// Первый запуск: засеваем стартовый каталог
		s.products = DefaultProducts()
		seeded = true
	}

	if err := loadCollection(ctx, s.state, repository.KeyTransactions, &s.transactions); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		s.transactions = nil
	}

	if err := loadCollection(ctx, s.state, repository.KeyStockHistory, &s.stockHistory); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		s.stockHistory = nil
	}

	if err := loadCollection(ctx, s.state, repository.KeyCounters, &s.counters); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	// Счётчики никогда не отстают от фактических ID: снапшот мог быть
	// записан версией без ключа counters или запись counters могла не успеть
	for _, p := range s.products {
		if p.ID > s.counters.Products {
			s.counters.Products = p.ID
		}
	}
	for _, t := range s.transactions {
		if t.ID > s.counters.Transactions {
			s.counters.Transactions = t.ID
		}
	}
	for _, e := range s.stockHistory {
		if e.ID > s.counters.StockHistory {
			s.counters.StockHistory = e.ID
		}
	}

	if seeded {
		if err := s.persist(ctx, repository.KeyProducts, s.products); err != nil {
			return err
		}
		if err := s.persist(ctx, repository.KeyCounters, s.counters); err != nil {
			return err
		}
		s.logger.Info("seeded default catalog", zap.Int("products", len(s.products)))
	}

	return nil
}

// loadCollection читает один ключ и десериализует его в dst
func loadCollection(ctx context.Context, state repository.StateStore, key string, dst any) error {
	data, err := state.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("corrupt snapshot %q: %w", key, err)
	}
	return nil
}

// persist сериализует значение и записывает его в StateStore
// Ошибки записи оборачиваются в ErrStorageUnavailable (см. модель ошибок)
func (s *Store) persist(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	if err := s.state.Save(ctx, key, data); err != nil {
		return fmt.Errorf("%w: save %q: %v", ErrStorageUnavailable, key, err)
	}
	return nil
}

// ProductInput содержит поля нового товара
// Вызывающий слой уже привёл числовые поля к типам (§6: Store не парсит строки)
type ProductInput struct {
	Code     string
	Name     string
	Category string
	Price    int64
	Stock    int
	MinStock int
}

// ProductPatch содержит частичное обновление товара
// nil-поле означает "не менять" (shallow merge, как в исходной системе)
type ProductPatch struct {
	Code     *string
	Name     *string
	Category *string
	Price    *int64
	Stock    *int
	MinStock *int
}

// AddProduct добавляет товар в каталог
// Идентификатор берётся из персистентного монотонного счётчика,
// поэтому delete-then-add никогда не переиспользует ID
// Дубликаты кодов допустимы — уникален только идентификатор
func (s *Store) AddProduct(ctx context.Context, input ProductInput) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Product{
		ID:       s.counters.Products + 1,
		Code:     input.Code,
		Name:     input.Name,
		Category: input.Category,
		Price:    input.Price,
		Stock:    input.Stock,
		MinStock: input.MinStock,
	}

	products := append(cloneSlice(s.products), p)
	nextCounters := s.counters
	nextCounters.Products = p.ID

	if err := s.persist(ctx, repository.KeyProducts, products); err != nil {
		return Product{}, err
	}
	if err := s.persist(ctx, repository.KeyCounters, nextCounters); err != nil {
		return Product{}, err
	}

	s.products = products
	s.counters = nextCounters

	s.logger.Info("product added", zap.Int64("id", p.ID), zap.String("code", p.Code))
	return p, nil
}

// UpdateProduct применяет частичное обновление к товару
// Возвращает ErrNotFound, если товара с таким ID нет
func (s *Store) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return Product{}, ErrNotFound
	}

	products := cloneSlice(s.products)
	p := &products[idx]
	if patch.Code != nil {
		p.Code = *patch.Code
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.MinStock != nil {
		p.MinStock = *patch.MinStock
	}

	if err := s.persist(ctx, repository.KeyProducts, products); err != nil {
		return Product{}, err
	}

	s.products = products
	s.logger.Info("product updated", zap.Int64("id", id))
	return *p, nil
}

// DeleteProduct удаляет товар по идентификатору
// Отсутствующий товар — no-op без ошибки
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return nil
	}

	products := make([]Product, 0, len(s.products)-1)
	products = append(products, s.products[:idx]...)
	products = append(products, s.products[idx+1:]...)

	if err := s.persist(ctx, repository.KeyProducts, products); err != nil {
		return err
	}

	s.products = products
	s.logger.Info("product deleted", zap.Int64("id", id))
	return nil
}

// GetProduct возвращает товар по идентификатору
// Возвращает ErrNotFound, если товара нет
func (s *Store) GetProduct(id int64) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return Product{}, ErrNotFound
	}
	return s.products[idx], nil
}

// Products возвращает копию каталога в порядке добавления
func (s *Store) Products() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSlice(s.products)
}

// SearchProducts возвращает товары, чьё имя или код содержат запрос
// Сравнение без учёта регистра; пустой запрос возвращает весь каталог
func (s *Store) SearchProducts(query string) []Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if query == "" {
		return cloneSlice(s.products)
	}

	q := strings.ToLower(query)
	matched := make([]Product, 0)
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Code), q) {
			matched = append(matched, p)
		}
	}
	return matched
}

// UpdateStock применяет ручную корректировку остатка и записывает её в историю
// Возвращает ErrNotFound, если товара нет, и ErrNegativeStock, если
// корректировка увела бы остаток ниже нуля при запрещённом backorder
func (s *Store) UpdateStock(ctx context.Context, productID int64, change int, note string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(productID)
	if idx < 0 {
		return Product{}, ErrNotFound
	}

	oldStock := s.products[idx].Stock
	newStock := oldStock + change
	if newStock < 0 && !s.allowNegativeStock {
		return Product{}, fmt.Errorf("%w: stock %d, change %d", ErrNegativeStock, oldStock, change)
	}

	products := cloneSlice(s.products)
	products[idx].Stock = newStock

	entry := StockHistoryEntry{
		ID:          s.counters.StockHistory + 1,
		Date:        s.now(),
		ProductID:   productID,
		ProductName: products[idx].Name,
		Change:      change,
		OldStock:    oldStock,
		NewStock:    newStock,
		Note:        note,
	}
	history := append(cloneSlice(s.stockHistory), entry)
	nextCounters := s.counters
	nextCounters.StockHistory = entry.ID

	if err := s.persist(ctx, repository.KeyProducts, products); err != nil {
		return Product{}, err
	}
	if err := s.persist(ctx, repository.KeyStockHistory, history); err != nil {
		return Product{}, err
	}
	if err := s.persist(ctx, repository.KeyCounters, nextCounters); err != nil {
		return Product{}, err
	}

	s.products = products
	s.stockHistory = history
	s.counters = nextCounters

	s.logger.Info("stock updated",
		zap.Int64("product_id", productID),
		zap.Int("change", change),
		zap.Int("old_stock", oldStock),
		zap.Int("new_stock", newStock),
	)
	return products[idx], nil
}

// StockHistory возвращает копию истории остатков, новые записи первыми
func (s *Store) StockHistory() []StockHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StockHistoryEntry, 0, len(s.stockHistory))
	for i := len(s.stockHistory) - 1; i >= 0; i-- {
		out = append(out, s.stockHistory[i])
	}
	return out
}

// AddTransaction добавляет завершённую продажу и списывает остатки
// Идентификатор и дата проставляются здесь; поля items/total/payment/change/
// transactionNumber приходят от вызывающего (Checkout)
// Каждое списание записывается в историю остатков с пометкой о продаже —
// аудит остатков полный для продаж и ручных корректировок
func (s *Store) AddTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTransactionLocked(ctx, tx)
}

func (s *Store) addTransactionLocked(ctx context.Context, tx Transaction) (Transaction, error) {
	tx.ID = s.counters.Transactions + 1
	tx.Date = s.now()

	transactions := append(cloneSlice(s.transactions), tx)
	products := cloneSlice(s.products)
	history := cloneSlice(s.stockHistory)

	nextCounters := s.counters
	nextCounters.Transactions = tx.ID

	for _, item := range tx.Items {
		idx := productIndexIn(products, item.ProductID)
		if idx < 0 {
			// Товар удалён из каталога между добавлением в корзину и продажей:
			// транзакция сохраняется, списывать нечего
			continue
		}
		oldStock := products[idx].Stock
		products[idx].Stock = oldStock - item.Quantity

		nextCounters.StockHistory++
		history = append(history, StockHistoryEntry{
			ID:          nextCounters.StockHistory,
			Date:        tx.Date,
			ProductID:   item.ProductID,
			ProductName: products[idx].Name,
			Change:      -item.Quantity,
			OldStock:    oldStock,
			NewStock:    products[idx].Stock,
			Note:        "sale " + tx.TransactionNumber,
		})
	}

	if err := s.persist(ctx, repository.KeyTransactions, transactions); err != nil {
		return Transaction{}, err
	}
	if err := s.persist(ctx, repository.KeyProducts, products); err != nil {
		return Transaction{}, err
	}
	if err := s.persist(ctx, repository.KeyStockHistory, history); err != nil {
		return Transaction{}, err
	}
	if err := s.persist(ctx, repository.KeyCounters, nextCounters); err != nil {
		return Transaction{}, err
	}

	s.transactions = transactions
	s.products = products
	s.stockHistory = history
	s.counters = nextCounters

	s.logger.Info("transaction added",
		zap.Int64("id", tx.ID),
		zap.String("number", tx.TransactionNumber),
		zap.Int64("total", tx.Total),
		zap.Int("items", len(tx.Items)),
	)
	return tx, nil
}

// ListTransactions возвращает копию истории продаж, новые первыми
func (s *Store) ListTransactions() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Transaction, 0, len(s.transactions))
	for i := len(s.transactions) - 1; i >= 0; i-- {
		out = append(out, s.transactions[i])
	}
	return out
}

// GetTransaction возвращает транзакцию по идентификатору
// Возвращает ErrNotFound, если транзакции нет
func (s *Store) GetTransaction(id int64) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return Transaction{}, ErrNotFound
}

// productIndex возвращает индекс товара в каталоге или -1
// Вызывать только под мьютексом
func (s *Store) productIndex(id int64) int {
	return productIndexIn(s.products, id)
}

func productIndexIn(products []Product, id int64) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// cloneSlice возвращает поверхностную копию среза
// Элементы — значения, поэтому staged-копию можно менять, не трогая
// текущее состояние до успешной записи снапшота
func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
