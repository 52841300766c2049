package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"rocketshoes/pkg/logger"
	"rocketshoes/pkg/otel"
)

// Config holds the collaborators of a Store.
type Config struct {
	Storage  Storage
	Catalog  Catalog
	Notifier Notifier
	Log      *logger.Logger
}

// Store owns the cart and mediates every change to it. Each mutation checks
// the stock, builds the next cart, writes it to Storage and only then makes it
// visible; a failure at any step leaves both memory and Storage untouched.
//
// Mutations run one at a time, remote lookups included.
type Store struct {
	storage  Storage
	catalog  Catalog
	notifier Notifier
	log      *logger.Logger

	write sync.Mutex

	mu        sync.RWMutex
	items     []Product
	listeners map[int]func([]Product)
	nextID    int
}

// New creates a Store, restoring the cart saved under StorageKey. A missing
// or unreadable saved cart yields an empty one.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Storage == nil || cfg.Catalog == nil {
		return nil, errors.New("cart: storage and catalog are required")
	}
	s := &Store{
		storage:   cfg.Storage,
		catalog:   cfg.Catalog,
		notifier:  cfg.Notifier,
		log:       cfg.Log,
		listeners: make(map[int]func([]Product)),
	}
	if s.notifier == nil {
		s.notifier = NotifierFunc(func(context.Context, Level, string) {})
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}

	data, err := s.storage.Get(ctx, StorageKey)
	switch {
	case errors.Is(err, ErrNoValue):
		s.items = []Product{}
	case err != nil:
		return nil, fmt.Errorf("load cart: %w", err)
	default:
		items, err := Decode(data)
		if err != nil {
			s.log.Warn(ctx, "discarding saved cart", "key", StorageKey, "error", err)
			items = []Product{}
		}
		s.items = items
	}
	return s, nil
}

// Cart returns a copy of the current cart.
func (s *Store) Cart() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Subscribe registers fn to receive the cart after every successful change.
// fn runs while the change is still being applied and must not mutate the
// Store. The returned function removes the subscription.
func (s *Store) Subscribe(fn func([]Product)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// AddProduct puts one more unit of the product in the cart, fetching its
// metadata when it is not there yet.
func (s *Store) AddProduct(ctx context.Context, productID int) error {
	ctx, span := otel.AddSpan(ctx, "cart.AddProduct", attribute.Int("product.id", productID))
	defer span.End()

	s.write.Lock()
	defer s.write.Unlock()

	next, err := s.added(ctx, productID)
	if err != nil {
		otel.RecordError(span, err)
		return s.fail(ctx, OpAdd, productID, err)
	}
	if err := s.commit(ctx, next); err != nil {
		otel.RecordError(span, err)
		return s.fail(ctx, OpAdd, productID, err)
	}
	s.log.Info(ctx, "product added", "product_id", productID)
	return nil
}

// RemoveProduct drops the product from the cart.
func (s *Store) RemoveProduct(ctx context.Context, productID int) error {
	ctx, span := otel.AddSpan(ctx, "cart.RemoveProduct", attribute.Int("product.id", productID))
	defer span.End()

	s.write.Lock()
	defer s.write.Unlock()

	i := s.index(productID)
	if i < 0 {
		otel.RecordError(span, ErrNotFound)
		return s.fail(ctx, OpRemove, productID, ErrNotFound)
	}
	next := slices.Delete(slices.Clone(s.items), i, i+1)
	if err := s.commit(ctx, next); err != nil {
		otel.RecordError(span, err)
		return s.fail(ctx, OpRemove, productID, err)
	}
	s.log.Info(ctx, "product removed", "product_id", productID)
	return nil
}

// UpdateProductAmount sets the quantity of a product already in the cart.
// Amounts below one are ignored.
func (s *Store) UpdateProductAmount(ctx context.Context, req UpdateProductAmount) error {
	if req.Amount <= 0 {
		return nil
	}
	ctx, span := otel.AddSpan(ctx, "cart.UpdateProductAmount",
		attribute.Int("product.id", req.ProductID),
		attribute.Int("product.amount", req.Amount),
	)
	defer span.End()

	s.write.Lock()
	defer s.write.Unlock()

	next, err := s.updated(ctx, req)
	if err != nil {
		otel.RecordError(span, err)
		return s.fail(ctx, OpUpdate, req.ProductID, err)
	}
	if err := s.commit(ctx, next); err != nil {
		otel.RecordError(span, err)
		return s.fail(ctx, OpUpdate, req.ProductID, err)
	}
	s.log.Info(ctx, "product amount updated", "product_id", req.ProductID, "amount", req.Amount)
	return nil
}

func (s *Store) added(ctx context.Context, productID int) ([]Product, error) {
	i := s.index(productID)
	stock, err := s.catalog.Stock(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}

	amount := 1
	if i >= 0 {
		amount = s.items[i].Amount + 1
	}
	if amount > stock.Amount {
		return nil, ErrOutOfStock
	}

	next := slices.Clone(s.items)
	if i >= 0 {
		next[i].Amount = amount
		return next, nil
	}

	p, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if p.ID != productID {
		return nil, fmt.Errorf("catalog returned product %d for %d", p.ID, productID)
	}
	p.Amount = 1
	return append(next, p), nil
}

func (s *Store) updated(ctx context.Context, req UpdateProductAmount) ([]Product, error) {
	stock, err := s.catalog.Stock(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	if req.Amount > stock.Amount {
		return nil, ErrOutOfStock
	}
	i := s.index(req.ProductID)
	if i < 0 {
		return nil, ErrNotFound
	}
	next := slices.Clone(s.items)
	next[i].Amount = req.Amount
	return next, nil
}

// commit writes next to Storage and then publishes it. Callers hold s.write.
func (s *Store) commit(ctx context.Context, next []Product) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	s.mu.Lock()
	s.items = next
	listeners := make([]func([]Product), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(slices.Clone(next))
	}
	return nil
}

func (s *Store) fail(ctx context.Context, op Op, productID int, err error) error {
	opErr := failure(op, err)
	s.log.Info(ctx, "cart operation failed", "op", op, "product_id", productID, "error", err)
	s.notifier.Notify(ctx, LevelError, opErr.Msg)
	return opErr
}

// index is only called with s.write held, so s.items is stable.
func (s *Store) index(productID int) int {
	return slices.IndexFunc(s.items, func(p Product) bool { return p.ID == productID })
}
