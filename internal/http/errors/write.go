package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/eventgate/internal/observability/logger"
)

// errorResponse es el shape estable del API: {success:false, error}.
// Los stack traces internos nunca se exponen.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteError escribe la respuesta HTTP para el error dado.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)

	if appErr.HTTPStatus >= 500 {
		logger.From(r.Context()).Error("request failed",
			logger.Path(r.URL.Path),
			logger.String("code", appErr.Code),
			logger.Err(appErr.Err),
		)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{Success: false, Error: appErr.Message})
}
