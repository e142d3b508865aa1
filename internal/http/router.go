package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

type RouterConfig struct {
	Carts          CartService
	Orders         OrderService
	Tokens         tokenValidator
	RequestTimeout time.Duration
	// TracerProvider defaults to the global provider when nil.
	TracerProvider trace.TracerProvider
}

// NewRouter builds the /api/v1 routes. Everything except /health needs a bearer token.
func NewRouter(cfg RouterConfig) http.Handler {
	cartHandler := NewCartHandler(cfg.Carts, cfg.RequestTimeout)
	orderHandler := NewOrderHandler(cfg.Orders, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(routeSpanName)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens))

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", cartHandler.CreateCart)
			r.Route("/{cart_id}", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.DeleteCart)
				r.Post("/items", cartHandler.AddItem)
				r.Patch("/items/{item_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{item_id}", cartHandler.RemoveItem)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.PlaceOrder)
			r.Get("/", orderHandler.ListOrders)
			r.Get("/{order_id}", orderHandler.GetOrder)
			r.Patch("/{order_id}", orderHandler.UpdatePaymentStatus)
		})

		r.Get("/customers/me", orderHandler.GetCustomer)
	})

	opts := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method
		}),
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	return otelhttp.NewHandler(r, "storefront", opts...)
}

// routeSpanName renames the request span to the matched route pattern once
// routing is done, so ids in the path do not end up in span names.
func routeSpanName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if pattern := chi.RouteContext(r.Context()).RoutePattern(); pattern != "" {
			trace.SpanFromContext(r.Context()).SetName(r.Method + " " + pattern)
		}
	})
}
