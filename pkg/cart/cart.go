// Package cart keeps the storefront shopping cart: the products a shopper
// intends to buy, each with a quantity bounded by the remote stock count.
package cart

import (
	"context"
	"errors"
)

// StorageKey is the slot the serialized cart lives under.
const StorageKey = "@RocketShoes:cart"

// Product represents an item held in the cart.
type Product struct {
	ID     int     `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Image  string  `json:"image"`
	Amount int     `json:"amount"`
}

// Stock is the maximum purchasable quantity of a product.
type Stock struct {
	ID     int `json:"id"`
	Amount int `json:"amount"`
}

// UpdateProductAmount carries the target quantity for a product.
type UpdateProductAmount struct {
	ProductID int `json:"productId"`
	Amount    int `json:"amount"`
}

// Storage persists the serialized cart.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Catalog answers stock and product metadata lookups.
type Catalog interface {
	Stock(ctx context.Context, productID int) (Stock, error)
	Product(ctx context.Context, productID int) (Product, error)
}

// Notifier delivers user-facing messages.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, level Level, message string)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, level Level, message string) {
	f(ctx, level, message)
}

// Level classifies a notification.
type Level string

// LevelError marks a failure message.
const LevelError Level = "error"

var (
	// ErrNoValue is returned by Storage implementations when the key is unset.
	ErrNoValue = errors.New("storage: no value")
	// ErrOutOfStock indicates the requested quantity exceeds the available stock.
	ErrOutOfStock = errors.New("requested amount out of stock")
	// ErrNotFound indicates the product is not in the cart.
	ErrNotFound = errors.New("product not in cart")
)

// User-facing messages.
const (
	MsgOutOfStock   = "Quantidade solicitada fora de estoque"
	MsgAddFailed    = "Erro na adição do produto"
	MsgRemoveFailed = "Erro na remoção do produto"
	MsgUpdateFailed = "Erro na alteração de quantidade do produto"
)

// Op names a cart operation.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpUpdate Op = "update"
)

// OperationError reports a failed cart operation. Its message is the text shown
// to the shopper; the cause stays reachable through errors.Is and errors.As.
type OperationError struct {
	Op  Op
	Msg string
	Err error
}

func (e *OperationError) Error() string { return e.Msg }

func (e *OperationError) Unwrap() error { return e.Err }

func failure(op Op, err error) *OperationError {
	if errors.Is(err, ErrOutOfStock) {
		return &OperationError{Op: op, Msg: MsgOutOfStock, Err: err}
	}
	msg := MsgAddFailed
	switch op {
	case OpRemove:
		msg = MsgRemoveFailed
	case OpUpdate:
		msg = MsgUpdateFailed
	}
	return &OperationError{Op: op, Msg: msg, Err: err}
}
