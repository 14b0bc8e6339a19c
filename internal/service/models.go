package service

import "time"

// Product представляет товар в каталоге
// JSON-теги совпадают со схемой персистентного снапшота (§ products)
type Product struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	Stock    int    `json:"stock"`
	MinStock int    `json:"minStock"`
}

// CartLine представляет строку корзины
// Живёт только в памяти, никогда не персистится
// Name и Price — снимок товара на момент добавления в корзину
type CartLine struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// TransactionItem представляет строку завершённой продажи
// Снимок товара на момент создания транзакции, неизменяем после создания
type TransactionItem struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Transaction представляет завершённую продажу
// Неизменяема после создания, коллекция append-only
type Transaction struct {
	ID                int64             `json:"id"`
	Date              time.Time         `json:"date"`
	Items             []TransactionItem `json:"items"`
	Total             int64             `json:"total"`
	Payment           int64             `json:"payment"`
	Change            int64             `json:"change"`
	TransactionNumber string            `json:"transactionNumber"`
}

// StockHistoryEntry представляет запись аудита изменения остатка
// Инвариант: NewStock == OldStock + Change
type StockHistoryEntry struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	ProductID   int64     `json:"productId"`
	ProductName string    `json:"productName"`
	Change      int       `json:"change"`
	OldStock    int       `json:"oldStock"`
	NewStock    int       `json:"newStock"`
	Note        string    `json:"note"`
}

// TopProduct представляет агрегат продаж одного товара для отчёта
type TopProduct struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Revenue   int64  `json:"revenue"`
}

// ReportSummary представляет сводный отчёт по всем продажам
type ReportSummary struct {
	TotalRevenue      int64 `json:"totalRevenue"`
	TotalTransactions int   `json:"totalTransactions"`
	AvgTransaction    int64 `json:"avgTransaction"`
}

// Статусы остатка для витрины склада
const (
	StockStatusLow    = "low"
	StockStatusMedium = "medium"
	StockStatusSafe   = "safe"
)

// counters хранит монотонные счётчики идентификаторов по коллекциям
// Персистится под отдельным ключом, чтобы delete-then-add не переиспользовал ID
type counters struct {
	Products     int64 `json:"products"`
	Transactions int64 `json:"transactions"`
	StockHistory int64 `json:"stockHistory"`
}

// DefaultProducts возвращает стартовый каталог для первого запуска
func DefaultProducts() []Product {
	return []Product{
		{ID: 1, Code: "P001", Name: "Indomie Goreng", Category: "Makanan", Price: 3500, Stock: 100, MinStock: 10},
		{ID: 2, Code: "P002", Name: "Coca Cola 330ml", Category: "Minuman", Price: 5000, Stock: 50, MinStock: 10},
		{ID: 3, Code: "P003", Name: "Aqua 600ml", Category: "Minuman", Price: 3000, Stock: 80, MinStock: 15},
		{ID: 4, Code: "P004", Name: "Roti Tawar", Category: "Makanan", Price: 12000, Stock: 25, MinStock: 5},
		{ID: 5, Code: "P005", Name: "Kopi ABC", Category: "Minuman", Price: 8000, Stock: 40, MinStock: 10},
		{ID: 6, Code: "P006", Name: "Mie Sedaap", Category: "Makanan", Price: 3000, Stock: 120, MinStock: 10},
		{ID: 7, Code: "P007", Name: "Teh Botol", Category: "Minuman", Price: 4000, Stock: 60, MinStock: 10},
		{ID: 8, Code: "P008", Name: "Biskuit Roma", Category: "Makanan", Price: 7000, Stock: 35, MinStock: 5},
	}
}
