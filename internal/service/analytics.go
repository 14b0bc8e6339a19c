package service

import "sort"

// Производные отчёты. Чистые функции над текущим состоянием,
// ничего не персистят.

// TodayTransactions возвращает транзакции за текущий календарный день
// в локальной таймзоне процесса
func (s *Store) TodayTransactions() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	nowY, nowM, nowD := s.now().Date()
	out := make([]Transaction, 0)
	for _, t := range s.transactions {
		y, m, d := t.Date.Local().Date()
		if y == nowY && m == nowM && d == nowD {
			out = append(out, t)
		}
	}
	return out
}

// TodaySales возвращает сумму продаж за текущий календарный день
func (s *Store) TodaySales() int64 {
	var sum int64
	for _, t := range s.TodayTransactions() {
		sum += t.Total
	}
	return sum
}

// LowStockProducts возвращает товары с остатком не выше минимального
func (s *Store) LowStockProducts() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Product, 0)
	for _, p := range s.products {
		if p.Stock <= p.MinStock {
			out = append(out, p)
		}
	}
	return out
}

// StockStatus классифицирует остаток товара для витрины склада
func StockStatus(p Product) string {
	switch {
	case p.Stock <= p.MinStock:
		return StockStatusLow
	case p.Stock <= p.MinStock*2:
		return StockStatusMedium
	default:
		return StockStatusSafe
	}
}

// TopProducts агрегирует количество и выручку по товарам во всех
// транзакциях и возвращает первые limit по убыванию количества
// Сортировка стабильная: при равном количестве порядок первой продажи
func (s *Store) TopProducts(limit int) []TopProduct {
	s.mu.Lock()
	defer s.mu.Unlock()

	byProduct := make(map[int64]int)
	aggregated := make([]TopProduct, 0)

	for _, t := range s.transactions {
		for _, item := range t.Items {
			idx, seen := byProduct[item.ProductID]
			if !seen {
				idx = len(aggregated)
				byProduct[item.ProductID] = idx
				aggregated = append(aggregated, TopProduct{
					ProductID: item.ProductID,
					Name:      item.Name,
				})
			}
			aggregated[idx].Quantity += item.Quantity
			aggregated[idx].Revenue += item.Price * int64(item.Quantity)
		}
	}

	sort.SliceStable(aggregated, func(i, j int) bool {
		return aggregated[i].Quantity > aggregated[j].Quantity
	})

	if limit > 0 && len(aggregated) > limit {
		aggregated = aggregated[:limit]
	}
	return aggregated
}

// TotalRevenue возвращает сумму всех продаж за всё время
func (s *Store) TotalRevenue() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum int64
	for _, t := range s.transactions {
		sum += t.Total
	}
	return sum
}

// Report возвращает сводный отчёт: выручка, число продаж, средний чек
func (s *Store) Report() ReportSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var revenue int64
	for _, t := range s.transactions {
		revenue += t.Total
	}

	summary := ReportSummary{
		TotalRevenue:      revenue,
		TotalTransactions: len(s.transactions),
	}
	if summary.TotalTransactions > 0 {
		summary.AvgTransaction = revenue / int64(summary.TotalTransactions)
	}
	return summary
}
