package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Noble200/nose-sub001/internal/service"
)

const maxBodyBytes = 1 << 20

type Config struct {
	AllowedOrigin      string
	RateLimitPerMinute int
	Production         bool
	RequestTimeout     time.Duration
	Logger             zerolog.Logger
}

type API struct {
	service *service.Service
	cfg     Config
	logger  zerolog.Logger
}

func New(svc *service.Service, cfg Config) *API {
	if cfg.RateLimitPerMinute < 1 {
		cfg.RateLimitPerMinute = 240
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &API{
		service: svc,
		cfg:     cfg,
		logger:  cfg.Logger.With().Str("component", "http").Logger(),
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		a.requestLogger,
		middleware.Recoverer,
		middleware.Timeout(a.cfg.RequestTimeout),
		a.secureHeaders(),
		a.cors,
		a.rateLimiter(),
		limitBody,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMethodNotAllowed(w)
	})

	r.Get("/healthz", a.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", a.handleHealth)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", a.handleListProducts)
			r.Post("/", a.handleCreateProduct)
			r.Get("/{productID}", a.handleGetProduct)
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", a.handleListPurchases)
			r.Post("/", a.handleCreatePurchase)
			r.Route("/{purchaseID}", func(r chi.Router) {
				r.Get("/", a.handleGetPurchase)
				r.Post("/approve", a.handleApprovePurchase)
				r.Post("/cancel", a.handleCancelPurchase)
				r.Get("/deliverable-items", a.handleDeliverableItems)
				r.Post("/deliveries", a.handleCreateDelivery)
				r.Post("/deliveries/{deliveryID}/complete", a.handleCompleteDelivery)
				r.Post("/deliveries/{deliveryID}/cancel", a.handleCancelDelivery)
			})
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", a.handleListExpenses)
			r.Post("/", a.handleCreateExpense)
			r.Get("/{expenseID}", a.handleGetExpense)
			r.Delete("/{expenseID}", a.handleDeleteExpense)
		})
	})
	return r
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().UTC(),
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// decodeOptionalJSON accepts an empty body as the zero value.
func decodeOptionalJSON(r *http.Request, dest any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := decodeJSON(r, dest)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", errors.New("method not allowed"))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
