// Package server serves the product catalog and stock levels read from a
// JSON document.
package server

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"rocketshoes/pkg/cart"
	"rocketshoes/pkg/logger"
)

//go:embed catalog.json
var defaultData []byte

// Data is the catalog document.
type Data struct {
	Products []cart.Product `json:"products"`
	Stock    []cart.Stock   `json:"stock"`
}

// Load reads a catalog document from path, or the built-in one when path is empty.
func Load(path string) (Data, error) {
	if path == "" {
		return Decode(bytes.NewReader(defaultData))
	}
	f, err := os.Open(path)
	if err != nil {
		return Data{}, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a catalog document.
func Decode(r io.Reader) (Data, error) {
	var d Data
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Data{}, fmt.Errorf("decode catalog: %w", err)
	}
	return d, nil
}

// Server answers catalog and stock lookups.
type Server struct {
	data     Data
	products map[int]cart.Product
	stock    map[int]cart.Stock
	log      *logger.Logger
}

// New indexes d for lookups.
func New(d Data, log *logger.Logger) *Server {
	s := &Server{
		data:     d,
		products: make(map[int]cart.Product, len(d.Products)),
		stock:    make(map[int]cart.Stock, len(d.Stock)),
		log:      log,
	}
	for _, p := range d.Products {
		p.Amount = 0
		s.products[p.ID] = p
	}
	for _, st := range d.Stock {
		s.stock[st.ID] = st
	}
	return s
}

// Register mounts the catalog routes on r.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/products", s.listProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/{id:[0-9]+}", s.getProduct).Methods(http.MethodGet)
	r.HandleFunc("/stock", s.listStock).Methods(http.MethodGet)
	r.HandleFunc("/stock/{id:[0-9]+}", s.getStock).Methods(http.MethodGet)
}

// listProducts lists the catalog.
// @Summary List products
// @Produce json
// @Success 200 {array} cart.Product
// @Router /products [get]
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.Products)
}

// getProduct returns one product.
// @Summary Get product
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} cart.Product
// @Failure 404
// @Router /products/{id} [get]
func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	p, ok := s.products[id]
	if !ok {
		s.log.Info(r.Context(), "product not found", "product_id", id)
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// listStock lists stock levels.
// @Summary List stock
// @Produce json
// @Success 200 {array} cart.Stock
// @Router /stock [get]
func (s *Server) listStock(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.data.Stock)
}

// getStock returns the stock of one product.
// @Summary Get stock
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} cart.Stock
// @Failure 404
// @Router /stock/{id} [get]
func (s *Server) getStock(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	st, ok := s.stock[id]
	if !ok {
		s.log.Info(r.Context(), "stock not found", "product_id", id)
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
