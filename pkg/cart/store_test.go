package cart_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rocketshoes/pkg/cart"
	"rocketshoes/pkg/cart/memory"
)

var errUnavailable = errors.New("catalog unavailable")

type fakeCatalog struct {
	stock    map[int]int
	products map[int]cart.Product
	err      error
}

func (f *fakeCatalog) Stock(ctx context.Context, id int) (cart.Stock, error) {
	if f.err != nil {
		return cart.Stock{}, f.err
	}
	amount, ok := f.stock[id]
	if !ok {
		return cart.Stock{}, errors.New("no stock")
	}
	return cart.Stock{ID: id, Amount: amount}, nil
}

func (f *fakeCatalog) Product(ctx context.Context, id int) (cart.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return cart.Product{}, errors.New("no product")
	}
	return p, nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Notify(ctx context.Context, level cart.Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

type failingStorage struct {
	*memory.Storage
	fail bool
}

func (f *failingStorage) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Storage.Set(ctx, key, value)
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		stock: map[int]int{1: 3, 2: 5, 3: 2},
		products: map[int]cart.Product{
			1: {ID: 1, Title: "Tênis de Caminhada Leve Confortável", Price: 179.9, Image: "shoe1.jpg"},
			2: {ID: 2, Title: "Tênis VR Caminhada Confortável", Price: 139.9, Image: "shoe2.jpg"},
			3: {ID: 3, Title: "Tênis Adidas Duramo Lite 2.0", Price: 219.9, Image: "shoe3.jpg"},
		},
	}
}

func newStore(t *testing.T, st cart.Storage, cat cart.Catalog) (*cart.Store, *recorder) {
	t.Helper()
	rec := &recorder{}
	s, err := cart.New(context.Background(), cart.Config{Storage: st, Catalog: cat, Notifier: rec})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, rec
}

func persisted(t *testing.T, st cart.Storage) []cart.Product {
	t.Helper()
	data, err := st.Get(context.Background(), cart.StorageKey)
	if err != nil {
		t.Fatalf("storage get: %v", err)
	}
	var items []cart.Product
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("decode persisted: %v", err)
	}
	return items
}

func seed(t *testing.T, st cart.Storage, items []cart.Product) {
	t.Helper()
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := st.Set(context.Background(), cart.StorageKey, data); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestNewRestoresSavedCart(t *testing.T) {
	st := memory.New()
	want := []cart.Product{{ID: 2, Title: "b", Price: 10, Amount: 2}, {ID: 1, Title: "a", Price: 5, Amount: 1}}
	seed(t, st, want)

	s, _ := newStore(t, st, newCatalog())
	if diff := cmp.Diff(want, s.Cart()); diff != "" {
		t.Fatalf("restored cart mismatch (-want +got):\n%s", diff)
	}
}

func TestNewDiscardsInvalidSavedCart(t *testing.T) {
	tests := map[string]string{
		"malformed":    `{"id":`,
		"object":       `{"id":1}`,
		"zero amount":  `[{"id":1,"amount":0}]`,
		"missing id":   `[{"amount":1}]`,
		"duplicate id": `[{"id":1,"amount":1},{"id":1,"amount":2}]`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			st := memory.New()
			if err := st.Set(context.Background(), cart.StorageKey, []byte(raw)); err != nil {
				t.Fatalf("seed: %v", err)
			}
			s, _ := newStore(t, st, newCatalog())
			if got := s.Cart(); len(got) != 0 {
				t.Fatalf("expected empty cart, got %v", got)
			}
		})
	}
}

func TestNewEmptyWhenNothingSaved(t *testing.T) {
	s, _ := newStore(t, memory.New(), newCatalog())
	if got := s.Cart(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil cart, got %#v", got)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := cart.New(context.Background(), cart.Config{Storage: memory.New()}); err == nil {
		t.Fatal("expected error without catalog")
	}
}

func TestAddProductNew(t *testing.T) {
	st := memory.New()
	s, rec := newStore(t, st, newCatalog())

	if err := s.AddProduct(context.Background(), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	want := []cart.Product{{ID: 1, Title: "Tênis de Caminhada Leve Confortável", Price: 179.9, Image: "shoe1.jpg", Amount: 1}}
	if diff := cmp.Diff(want, s.Cart()); diff != "" {
		t.Fatalf("cart mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, persisted(t, st)); diff != "" {
		t.Fatalf("persisted mismatch (-want +got):\n%s", diff)
	}
	if len(rec.msgs) != 0 {
		t.Fatalf("unexpected notifications: %v", rec.msgs)
	}
}

func TestAddProductIncrementsExisting(t *testing.T) {
	st := memory.New()
	s, _ := newStore(t, st, newCatalog())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.AddProduct(ctx, 1); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	got := s.Cart()
	if len(got) != 1 {
		t.Fatalf("expected a single entry, got %d", len(got))
	}
	if got[0].Amount != 3 {
		t.Fatalf("expected amount 3, got %d", got[0].Amount)
	}
	if diff := cmp.Diff(got, persisted(t, st)); diff != "" {
		t.Fatalf("persisted mismatch (-mem +stored):\n%s", diff)
	}
}

func TestAddProductOutOfStock(t *testing.T) {
	st := memory.New()
	seed(t, st, []cart.Product{{ID: 1, Title: "a", Amount: 2}})
	cat := newCatalog()
	cat.stock[1] = 2
	s, rec := newStore(t, st, cat)

	err := s.AddProduct(context.Background(), 1)
	if !errors.Is(err, cart.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if err.Error() != cart.MsgOutOfStock {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if got := s.Cart(); got[0].Amount != 2 {
		t.Fatalf("cart changed: %v", got)
	}
	if got := persisted(t, st); got[0].Amount != 2 {
		t.Fatalf("storage changed: %v", got)
	}
	if diff := cmp.Diff([]string{cart.MsgOutOfStock}, rec.msgs); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}

	// amount 2 is still within stock.
	if err := s.UpdateProductAmount(context.Background(), cart.UpdateProductAmount{ProductID: 1, Amount: 2}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := persisted(t, st); got[0].Amount != 2 {
		t.Fatalf("unexpected stored amount: %v", got)
	}
}

func TestAddProductNewWithoutStock(t *testing.T) {
	cat := newCatalog()
	cat.stock[2] = 0
	s, rec := newStore(t, memory.New(), cat)

	if err := s.AddProduct(context.Background(), 2); !errors.Is(err, cart.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if len(s.Cart()) != 0 {
		t.Fatalf("cart changed: %v", s.Cart())
	}
	if len(rec.msgs) != 1 || rec.msgs[0] != cart.MsgOutOfStock {
		t.Fatalf("unexpected notifications: %v", rec.msgs)
	}
}

func TestAddProductCatalogFailure(t *testing.T) {
	st := memory.New()
	cat := newCatalog()
	cat.err = errUnavailable
	s, rec := newStore(t, st, cat)

	err := s.AddProduct(context.Background(), 1)
	if !errors.Is(err, errUnavailable) {
		t.Fatalf("expected catalog error, got %v", err)
	}
	var opErr *cart.OperationError
	if !errors.As(err, &opErr) || opErr.Op != cart.OpAdd {
		t.Fatalf("expected add OperationError, got %#v", err)
	}
	if len(rec.msgs) != 1 || rec.msgs[0] != cart.MsgAddFailed {
		t.Fatalf("unexpected notifications: %v", rec.msgs)
	}
	if _, err := st.Get(context.Background(), cart.StorageKey); !errors.Is(err, cart.ErrNoValue) {
		t.Fatalf("storage should be untouched, got %v", err)
	}
}

func TestAddProductUnknownProduct(t *testing.T) {
	cat := newCatalog()
	cat.stock[9] = 4
	s, rec := newStore(t, memory.New(), cat)

	if err := s.AddProduct(context.Background(), 9); err == nil {
		t.Fatal("expected error")
	}
	if len(s.Cart()) != 0 {
		t.Fatalf("cart changed: %v", s.Cart())
	}
	if len(rec.msgs) != 1 || rec.msgs[0] != cart.MsgAddFailed {
		t.Fatalf("unexpected notifications: %v", rec.msgs)
	}
}

func TestFailedWriteLeavesStateUnchanged(t *testing.T) {
	st := &failingStorage{Storage: memory.New()}
	seed(t, st, []cart.Product{{ID: 1, Title: "a", Amount: 1}})
	s, rec := newStore(t, st, newCatalog())
	st.fail = true
	ctx := context.Background()

	if err := s.AddProduct(ctx, 1); err == nil {
		t.Fatal("expected add to fail")
	}
	if err := s.UpdateProductAmount(ctx, cart.UpdateProductAmount{ProductID: 1, Amount: 3}); err == nil {
		t.Fatal("expected update to fail")
	}
	if err := s.RemoveProduct(ctx, 1); err == nil {
		t.Fatal("expected remove to fail")
	}
	want := []cart.Product{{ID: 1, Title: "a", Amount: 1}}
	if diff := cmp.Diff(want, s.Cart()); diff != "" {
		t.Fatalf("cart changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, persisted(t, st)); diff != "" {
		t.Fatalf("storage changed (-want +got):\n%s", diff)
	}
	wantMsgs := []string{cart.MsgAddFailed, cart.MsgUpdateFailed, cart.MsgRemoveFailed}
	if diff := cmp.Diff(wantMsgs, rec.msgs); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveProduct(t *testing.T) {
	st := memory.New()
	seed(t, st, []cart.Product{{ID: 1, Amount: 1}, {ID: 2, Amount: 2}, {ID: 3, Amount: 1}})
	s, _ := newStore(t, st, newCatalog())

	if err := s.RemoveProduct(context.Background(), 2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	want := []cart.Product{{ID: 1, Amount: 1}, {ID: 3, Amount: 1}}
	if diff := cmp.Diff(want, s.Cart()); diff != "" {
		t.Fatalf("cart mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, persisted(t, st)); diff != "" {
		t.Fatalf("persisted mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveProductNotInCart(t *testing.T) {
	st := memory.New()
	seed(t, st, []cart.Product{{ID: 1, Amount: 1}})
	s, rec := newStore(t, st, newCatalog())

	err := s.RemoveProduct(context.Background(), 5)
	if !errors.Is(err, cart.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(s.Cart()) != 1 {
		t.Fatalf("cart changed: %v", s.Cart())
	}
	if len(rec.msgs) != 1 || rec.msgs[0] != cart.MsgRemoveFailed {
		t.Fatalf("unexpected notifications: %v", rec.msgs)
	}
}

func TestUpdateProductAmount(t *testing.T) {
	st := memory.New()
	seed(t, st, []cart.Product{{ID: 1, Amount: 1}, {ID: 2, Amount: 1}})
	s, _ := newStore(t, st, newCatalog())

	if err := s.UpdateProductAmount(context.Background(), cart.UpdateProductAmount{ProductID: 2, Amount: 5}); err != nil {
		t.Fatalf("update: %v", err)
	}
	want := []cart.Product{{ID: 1, Amount: 1}, {ID: 2, Amount: 5}}
	if diff := cmp.Diff(want, s.Cart()); diff != "" {
		t.Fatalf("cart mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, persisted(t, st)); diff != "" {
		t.Fatalf("persisted mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateProductAmountIgnoresNonPositive(t *testing.T) {
	st := memory.New()
	seed(t, st, []cart.Product{{ID: 1, Amount: 2}})
	cat := newCatalog()
	cat.err = errUnavailable
	s, rec := newStore(t, st, cat)

	for _, amount := range []int{0, -1} {
		if err := s.UpdateProductAmount(context.Background(), cart.UpdateProductAmount{ProductID: 1, Amount: amount}); err != nil {
			t.Fatalf("amount %d: unexpected error %v", amount, err)
		}
	}
	if got := s.Cart(); got[0].Amount != 2 {
		t.Fatalf("cart changed: %v", got)
	}
	if len(rec.msgs) != 0 {
		t.Fatalf("unexpected notifications: %v", rec.msgs)
	}
}

func TestUpdateProductAmountOutOfStock(t *testing.T) {
	st := memory.New()
	seed(t, st, []cart.Product{{ID: 3, Amount: 1}})
	s, rec := newStore(t, st, newCatalog())

	err := s.UpdateProductAmount(context.Background(), cart.UpdateProductAmount{ProductID: 3, Amount: 3})
	if !errors.Is(err, cart.ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if got := s.Cart(); got[0].Amount != 1 {
		t.Fatalf("cart changed: %v", got)
	}
	if len(rec.msgs) != 1 || rec.msgs[0] != cart.MsgOutOfStock {
		t.Fatalf("unexpected notifications: %v", rec.msgs)
	}
}

func TestUpdateProductAmountNotInCart(t *testing.T) {
	s, rec := newStore(t, memory.New(), newCatalog())

	err := s.UpdateProductAmount(context.Background(), cart.UpdateProductAmount{ProductID: 2, Amount: 1})
	if !errors.Is(err, cart.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(rec.msgs) != 1 || rec.msgs[0] != cart.MsgUpdateFailed {
		t.Fatalf("unexpected notifications: %v", rec.msgs)
	}
}

func TestSubscribe(t *testing.T) {
	s, _ := newStore(t, memory.New(), newCatalog())
	var seen [][]cart.Product
	cancel := s.Subscribe(func(items []cart.Product) { seen = append(seen, items) })

	ctx := context.Background()
	if err := s.AddProduct(ctx, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.RemoveProduct(ctx, 7); err == nil {
		t.Fatal("expected remove of missing product to fail")
	}
	cancel()
	if err := s.AddProduct(ctx, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	if len(seen) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(seen))
	}
	if len(seen[0]) != 1 || seen[0][0].ID != 1 {
		t.Fatalf("unexpected published cart: %v", seen[0])
	}
}

func TestCartReturnsCopy(t *testing.T) {
	st := memory.New()
	seed(t, st, []cart.Product{{ID: 1, Amount: 1}})
	s, _ := newStore(t, st, newCatalog())

	got := s.Cart()
	got[0].Amount = 99
	if s.Cart()[0].Amount != 1 {
		t.Fatal("Cart exposed internal state")
	}
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	st := memory.New()
	cat := newCatalog()
	cat.stock[2] = 50
	s, _ := newStore(t, st, cat)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AddProduct(context.Background(), 2)
		}()
	}
	wg.Wait()

	got := s.Cart()
	if len(got) != 1 || got[0].Amount != 20 {
		t.Fatalf("expected one entry with amount 20, got %v", got)
	}
	if diff := cmp.Diff(got, persisted(t, st)); diff != "" {
		t.Fatalf("persisted mismatch (-mem +stored):\n%s", diff)
	}
}
