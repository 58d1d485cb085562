package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vtuhub/walletledger/api/handlers"
	"github.com/vtuhub/walletledger/api/middleware"
	"github.com/vtuhub/walletledger/pkg/config"
	"github.com/vtuhub/walletledger/pkg/logger"
)

// NewRouter builds the ops surface shared by the worker processes. It carries
// no business endpoints.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	checks ...handlers.Check,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Get("/healthz", handlers.Healthz(cfg, logg))
	r.Get("/readyz", handlers.Readyz(cfg, logg, checks...))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
