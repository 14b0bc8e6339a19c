package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/warungpos/internal/repository"
	"github.com/shestoi/warungpos/internal/repository/memory"
)

// newTestStore создаёт Store поверх in-memory хранилища с фиксированным временем
func newTestStore(t *testing.T, opts Options) (*Store, *memory.MemoryStore) {
	t.Helper()

	state := memory.NewMemoryStore()
	if opts.Now == nil {
		fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
		opts.Now = func() time.Time { return fixed }
	}

	store, err := NewStore(context.Background(), state, zap.NewNop(), opts)
	require.NoError(t, err)
	return store, state
}

// failingStateStore оборачивает StateStore и отклоняет записи по флагу
type failingStateStore struct {
	inner    repository.StateStore
	failSave bool
}

func (f *failingStateStore) Load(ctx context.Context, key string) ([]byte, error) {
	return f.inner.Load(ctx, key)
}

func (f *failingStateStore) Save(ctx context.Context, key string, data []byte) error {
	if f.failSave {
		return fmt.Errorf("disk full")
	}
	return f.inner.Save(ctx, key, data)
}

func TestNewStore_SeedsDefaultCatalog(t *testing.T) {
	store, state := newTestStore(t, Options{})

	products := store.Products()
	require.Len(t, products, 8)
	require.Equal(t, "Indomie Goreng", products[0].Name)
	require.Equal(t, int64(1), products[0].ID)
	require.Equal(t, int64(8), products[7].ID)

	// Засев сразу персистится
	_, err := state.Load(context.Background(), repository.KeyProducts)
	require.NoError(t, err)
	_, err = state.Load(context.Background(), repository.KeyCounters)
	require.NoError(t, err)
}

func TestNewStore_DoesNotReseedExistingCatalog(t *testing.T) {
	state := memory.NewMemoryStore()
	require.NoError(t, state.Save(context.Background(), repository.KeyProducts, []byte(`[]`)))

	store, err := NewStore(context.Background(), state, zap.NewNop(), Options{})
	require.NoError(t, err)
	require.Empty(t, store.Products())
}

func TestAddProduct_AssignsSequentialIDs(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	p1, err := store.AddProduct(context.Background(), ProductInput{Code: "P100", Name: "Gula Pasir", Price: 15000})
	require.NoError(t, err)
	require.Equal(t, int64(9), p1.ID)

	p2, err := store.AddProduct(context.Background(), ProductInput{Code: "P101", Name: "Minyak Goreng", Price: 20000})
	require.NoError(t, err)
	require.Equal(t, int64(10), p2.ID)
}

func TestAddProduct_NeverReusesIDsAfterDelete(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	p, err := store.AddProduct(context.Background(), ProductInput{Code: "P100", Name: "Gula Pasir", Price: 15000})
	require.NoError(t, err)
	require.Equal(t, int64(9), p.ID)

	require.NoError(t, store.DeleteProduct(context.Background(), p.ID))

	next, err := store.AddProduct(context.Background(), ProductInput{Code: "P101", Name: "Minyak Goreng", Price: 20000})
	require.NoError(t, err)
	require.Equal(t, int64(10), next.ID)
}

func TestUpdateProduct_PartialPatch(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	newPrice := int64(4000)
	updated, err := store.UpdateProduct(context.Background(), 1, ProductPatch{Price: &newPrice})
	require.NoError(t, err)

	// Только цена изменилась, остальные поля нетронуты
	require.Equal(t, int64(4000), updated.Price)
	require.Equal(t, "Indomie Goreng", updated.Name)
	require.Equal(t, 100, updated.Stock)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	_, err := store.UpdateProduct(context.Background(), 999, ProductPatch{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct_IsIdempotent(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	require.NoError(t, store.DeleteProduct(context.Background(), 1))
	require.NoError(t, store.DeleteProduct(context.Background(), 1))

	_, err := store.GetProduct(1)
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, store.Products(), 7)
}

func TestSearchProducts(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "by name substring case-insensitive",
			query: "indomie",
			want:  []string{"Indomie Goreng"},
		},
		{
			name:  "by code",
			query: "P003",
			want:  []string{"Aqua 600ml"},
		},
		{
			name:  "empty query returns all",
			query: "",
			want: []string{
				"Indomie Goreng", "Coca Cola 330ml", "Aqua 600ml", "Roti Tawar",
				"Kopi ABC", "Mie Sedaap", "Teh Botol", "Biskuit Roma",
			},
		},
		{
			name:  "no match",
			query: "xyz",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.SearchProducts(tt.query)
			names := make([]string, 0, len(got))
			for _, p := range got {
				names = append(names, p.Name)
			}
			require.Equal(t, tt.want, names)
		})
	}
}

func TestUpdateStock_RecordsHistory(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	p, err := store.UpdateStock(context.Background(), 1, 5, "restock")
	require.NoError(t, err)
	require.Equal(t, 105, p.Stock)

	p, err = store.UpdateStock(context.Background(), 1, -5, "damaged")
	require.NoError(t, err)
	require.Equal(t, 100, p.Stock)

	history := store.StockHistory()
	require.Len(t, history, 2)

	// Новые записи первыми
	require.Equal(t, int64(2), history[0].ID)
	require.Equal(t, -5, history[0].Change)
	require.Equal(t, 105, history[0].OldStock)
	require.Equal(t, 100, history[0].NewStock)
	require.Equal(t, "damaged", history[0].Note)

	require.Equal(t, int64(1), history[1].ID)
	require.Equal(t, 5, history[1].Change)
	require.Equal(t, 100, history[1].OldStock)
	require.Equal(t, 105, history[1].NewStock)
}

func TestUpdateStock_RefusesNegativeStock(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	_, err := store.UpdateStock(context.Background(), 1, -200, "shrinkage")
	require.ErrorIs(t, err, ErrNegativeStock)

	// Остаток и история не изменились
	p, err := store.GetProduct(1)
	require.NoError(t, err)
	require.Equal(t, 100, p.Stock)
	require.Empty(t, store.StockHistory())
}

func TestUpdateStock_AllowsNegativeStockWhenConfigured(t *testing.T) {
	store, _ := newTestStore(t, Options{AllowNegativeStock: true})

	p, err := store.UpdateStock(context.Background(), 1, -200, "backorder")
	require.NoError(t, err)
	require.Equal(t, -100, p.Stock)

	history := store.StockHistory()
	require.Len(t, history, 1)
	require.Equal(t, -100, history[0].NewStock)
}

func TestUpdateStock_NotFound(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	_, err := store.UpdateStock(context.Background(), 999, 1, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddProduct_StorageFailureLeavesStateUntouched(t *testing.T) {
	state := memory.NewMemoryStore()
	failing := &failingStateStore{inner: state}

	store, err := NewStore(context.Background(), failing, zap.NewNop(), Options{})
	require.NoError(t, err)

	failing.failSave = true
	_, err = store.AddProduct(context.Background(), ProductInput{Code: "P100", Name: "Gula Pasir", Price: 15000})
	require.ErrorIs(t, err, ErrStorageUnavailable)

	// В памяти ничего не изменилось, счётчик не сдвинулся
	require.Len(t, store.Products(), 8)

	failing.failSave = false
	p, err := store.AddProduct(context.Background(), ProductInput{Code: "P100", Name: "Gula Pasir", Price: 15000})
	require.NoError(t, err)
	require.Equal(t, int64(9), p.ID)
}

func TestUpdateStock_StorageFailureLeavesStateUntouched(t *testing.T) {
	state := memory.NewMemoryStore()
	failing := &failingStateStore{inner: state}

	store, err := NewStore(context.Background(), failing, zap.NewNop(), Options{})
	require.NoError(t, err)

	failing.failSave = true
	_, err = store.UpdateStock(context.Background(), 1, 5, "restock")
	require.ErrorIs(t, err, ErrStorageUnavailable)

	p, err := store.GetProduct(1)
	require.NoError(t, err)
	require.Equal(t, 100, p.Stock)
	require.Empty(t, store.StockHistory())
}

func TestStore_RoundTripThroughStateStore(t *testing.T) {
	state := memory.NewMemoryStore()
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	opts := Options{Now: func() time.Time { return fixed }}

	first, err := NewStore(context.Background(), state, zap.NewNop(), opts)
	require.NoError(t, err)

	_, err = first.AddProduct(context.Background(), ProductInput{Code: "P100", Name: "Gula Pasir", Price: 15000, Stock: 10})
	require.NoError(t, err)
	_, err = first.UpdateStock(context.Background(), 1, -10, "shrinkage")
	require.NoError(t, err)

	require.NoError(t, first.AddToCart(1))
	tx, err := first.Checkout(context.Background(), 5000)
	require.NoError(t, err)

	// Второй Store поверх того же хранилища видит то же состояние
	second, err := NewStore(context.Background(), state, zap.NewNop(), opts)
	require.NoError(t, err)

	require.Len(t, second.Products(), 9)
	restored, err := second.GetTransaction(tx.ID)
	require.NoError(t, err)
	require.Equal(t, tx.TransactionNumber, restored.TransactionNumber)
	require.Equal(t, tx.Total, restored.Total)
	require.Len(t, second.StockHistory(), 2)

	// Счётчики продолжаются, а не начинаются заново
	p, err := second.AddProduct(context.Background(), ProductInput{Code: "P101", Name: "Minyak Goreng", Price: 20000})
	require.NoError(t, err)
	require.Equal(t, int64(10), p.ID)
}

func TestStore_RecoversCountersFromSnapshotWithoutCountersKey(t *testing.T) {
	state := memory.NewMemoryStore()
	products := `[{"id":7,"code":"P007","name":"Teh Botol","category":"Minuman","price":4000,"stock":60,"minStock":10}]`
	require.NoError(t, state.Save(context.Background(), repository.KeyProducts, []byte(products)))

	store, err := NewStore(context.Background(), state, zap.NewNop(), Options{})
	require.NoError(t, err)

	p, err := store.AddProduct(context.Background(), ProductInput{Code: "P100", Name: "Gula Pasir", Price: 15000})
	require.NoError(t, err)
	require.Equal(t, int64(8), p.ID)
}

func TestNewStore_CorruptSnapshotFails(t *testing.T) {
	state := memory.NewMemoryStore()
	require.NoError(t, state.Save(context.Background(), repository.KeyProducts, []byte(`{not json`)))

	_, err := NewStore(context.Background(), state, zap.NewNop(), Options{})
	require.Error(t, err)
	require.False(t, errors.Is(err, repository.ErrNotFound))
}
