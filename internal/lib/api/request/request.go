package request

import (
	"errors"
	"log/slog"
	"net/http"

	resp "uptask/internal/lib/api/response"
	sl "uptask/internal/lib/logger"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Decode reads the JSON body into dst and validates it. On failure it writes
// a 400 response and returns false.
func Decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		log.Error("Failed to decode request body", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("Failed to decode request"))

		return false
	}

	if err := validate.Struct(dst); err != nil {
		log.Info("Invalid request", sl.Err(err))

		render.Status(r, http.StatusBadRequest)

		var validateErr validator.ValidationErrors
		if errors.As(err, &validateErr) {
			render.JSON(w, r, resp.ValidationError(validateErr))
		} else {
			render.JSON(w, r, resp.Error("Invalid request"))
		}

		return false
	}

	return true
}
