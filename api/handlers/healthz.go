package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vtuhub/walletledger/api/responses"
	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
	"github.com/vtuhub/walletledger/pkg/config"
	"github.com/vtuhub/walletledger/pkg/logger"
)

const (
	envHeader    = "X-Walletledger-Env"
	readyTimeout = 3 * time.Second
)

// Check is a named dependency check used by Readyz.
type Check struct {
	Name string
	Ping func(context.Context) error
}

func Healthz(cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithFields(r.Context(), map[string]any{
			"env":  cfg.App.Env,
			"path": r.URL.Path,
		})
		logg.Debug(ctx, "health.check")

		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// Readyz pings every dependency and reports the first failure as 503.
func Readyz(cfg *config.Config, logg *logger.Logger, checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		for _, check := range checks {
			if check.Ping == nil {
				continue
			}
			if err := check.Ping(ctx); err != nil {
				typed := pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s not ready", check.Name)).
					WithDetails(map[string]any{"dependency": check.Name})
				responses.WriteError(r.Context(), logg, w, typed)
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
