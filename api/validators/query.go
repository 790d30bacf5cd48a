package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/fincore/pkg/errors"
)

// IntRange bounds an optional integer query parameter. Default is used when
// the parameter is absent.
type IntRange struct {
	Default, Min, Max int
}

// QueryInt reads key from the query string and enforces rng.
func QueryInt(r *http.Request, key string, rng IntRange) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return rng.Default, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fieldError(key, "must be an integer", nil)
	}
	if n < rng.Min || n > rng.Max {
		return 0, fieldError(key, "out of range", map[string]any{"min": rng.Min, "max": rng.Max})
	}
	return n, nil
}

// PathUUID reads a required uuid route parameter.
func PathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, fieldError(key, "is required", nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fieldError(key, "must be a uuid", nil)
	}
	return id, nil
}

func fieldError(key, problem string, extra map[string]any) *pkgerrors.Error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, key+" "+problem).WithDetails(details)
}
