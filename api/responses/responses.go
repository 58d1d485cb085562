package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
	"github.com/vtuhub/walletledger/pkg/logger"
)

// codes whose own message is safe to show callers
var publicMessageCodes = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:        true,
	pkgerrors.CodeNotFound:          true,
	pkgerrors.CodeConflict:          true,
	pkgerrors.CodeStateConflict:     true,
	pkgerrors.CodeInsufficientFunds: true,
	pkgerrors.CodeDependency:        true,
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, SuccessEnvelope{Data: data})
}

// WriteError maps err onto its public envelope and logs the full chain.
// Client errors log at warn, server errors at error.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	payload := ErrorEnvelope{
		Error: APIError{
			Code:    string(typed.Code()),
			Message: meta.PublicMessage,
		},
		RequestID: w.Header().Get(RequestIDHeader),
	}
	if m := typed.Message(); m != "" && publicMessageCodes[typed.Code()] {
		payload.Error.Message = m
	}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}

	fields := pkgerrors.Dump(err).Fields()
	fields["status"] = meta.HTTPStatus
	if dm, ok := typed.Details().(map[string]any); ok {
		if dep, ok := dm["dependency"]; ok {
			fields["dependency"] = dep
		}
	}
	logCtx := logg.WithFields(ctx, fields)
	if meta.HTTPStatus < http.StatusInternalServerError {
		logg.Warn(logCtx, "request.error")
	} else {
		logg.Error(logCtx, "request.error", err)
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
