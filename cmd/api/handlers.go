package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel/trace"

	_ "rocketshoes/docs"
	"rocketshoes/pkg/cart"
	"rocketshoes/pkg/logger"
	"rocketshoes/pkg/otel"
	"rocketshoes/pkg/toast"
)

type app struct {
	store   *cart.Store
	toasts  *toast.Queue
	storage cart.Storage
	log     *logger.Logger
	tracer  trace.Tracer
}

type pinger interface {
	Ping(ctx context.Context) error
}

// cartResponse is the cart together with its totals.
type cartResponse struct {
	Items   []cart.Product `json:"items"`
	Summary cart.Summary   `json:"summary"`
}

// amountRequest carries the new quantity of a product.
type amountRequest struct {
	Amount int `json:"amount"`
}

// errorResponse carries the message shown to the shopper.
type errorResponse struct {
	Error string `json:"error"`
}

func (a *app) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("cart-api"))
	r.Use(a.traceMiddleware)
	r.Use(requestIDMiddleware)

	r.HandleFunc("/healthz", a.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/cart", a.getCartHandler).Methods(http.MethodGet)
	r.HandleFunc("/notifications", a.notificationsHandler).Methods(http.MethodGet)

	items := r.PathPrefix("/cart/items").Subrouter()
	items.HandleFunc("/{id:[0-9]+}", a.addProductHandler).Methods(http.MethodPost)
	items.HandleFunc("/{id:[0-9]+}", a.updateProductAmountHandler).Methods(http.MethodPut)
	items.HandleFunc("/{id:[0-9]+}", a.removeProductHandler).Methods(http.MethodDelete)

	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	return r
}

// getCartHandler returns the cart.
// @Summary Get cart
// @Produce json
// @Success 200 {object} cartResponse
// @Router /cart [get]
func (a *app) getCartHandler(w http.ResponseWriter, r *http.Request) {
	_, span := otel.AddSpan(r.Context(), "getCartHandler")
	defer span.End()

	a.writeCart(w)
}

// addProductHandler adds one unit of a product.
// @Summary Add product
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} cartResponse
// @Failure 409 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Router /cart/items/{id} [post]
func (a *app) addProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "addProductHandler")
	defer span.End()

	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := a.store.AddProduct(ctx, id); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeCart(w)
}

// updateProductAmountHandler sets the quantity of a product in the cart.
// @Summary Update product amount
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param amount body amountRequest true "Amount"
// @Success 200 {object} cartResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /cart/items/{id} [put]
func (a *app) updateProductAmountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "updateProductAmountHandler")
	defer span.End()

	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	err := a.store.UpdateProductAmount(ctx, cart.UpdateProductAmount{ProductID: id, Amount: req.Amount})
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeCart(w)
}

// removeProductHandler drops a product from the cart.
// @Summary Remove product
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} cartResponse
// @Failure 404 {object} errorResponse
// @Router /cart/items/{id} [delete]
func (a *app) removeProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "removeProductHandler")
	defer span.End()

	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	if err := a.store.RemoveProduct(ctx, id); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeCart(w)
}

// notificationsHandler drains pending toasts.
// @Summary Drain notifications
// @Produce json
// @Success 200 {array} toast.Toast
// @Router /notifications [get]
func (a *app) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.toasts.Drain())
}

func (a *app) healthHandler(w http.ResponseWriter, r *http.Request) {
	if p, ok := a.storage.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			a.log.Error(r.Context(), "storage ping", "error", err)
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) writeCart(w http.ResponseWriter) {
	items := a.store.Cart()
	writeJSON(w, http.StatusOK, cartResponse{Items: items, Summary: cart.Summarize(items)})
}

func (a *app) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		status = http.StatusConflict
	case errors.Is(err, cart.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (a *app) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.InjectTracing(r.Context(), a.tracer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestIDMiddleware echoes X-Request-ID, generating one when absent.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}
