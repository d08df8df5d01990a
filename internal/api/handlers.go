package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// Handler holds the store the views read and mutate.
type Handler struct {
	Store types.Storage
}

// Status handles GET /status.
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
}

// Stats handles GET /stats with one count per collection.
func (h *Handler) Stats(c echo.Context) error {
	out := make(map[string]int, len(types.Kinds))
	for _, k := range types.Kinds {
		out[k.Plural()] = h.Store.Count(k)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) list(k types.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		entities := h.Store.List(k)
		out := make([]map[string]any, 0, len(entities))
		for _, e := range entities {
			out = append(out, render(e))
		}
		return c.JSON(http.StatusOK, out)
	}
}

func (h *Handler) get(k types.Kind, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		e, ok := h.Store.Get(k, c.Param(param))
		if !ok {
			return notFound(c)
		}
		return c.JSON(http.StatusOK, render(e))
	}
}

func (h *Handler) remove(k types.Kind, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param(param)
		if _, ok := h.Store.Get(k, id); !ok {
			return notFound(c)
		}
		if err := h.Store.Remove(k, id); err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{})
	}
}

func (h *Handler) update(k types.Kind, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param(param)
		if _, ok := h.Store.Get(k, id); !ok {
			return notFound(c)
		}
		body, ok := readBody(c)
		if !ok {
			return notAJSON(c)
		}
		e, err := h.Store.Edit(k, id, body)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, render(e))
	}
}

// create handles top-level collections whose only preconditions are the
// presence of the required keys.
func (h *Handler) create(k types.Kind, required ...string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, ok := readBody(c)
		if !ok {
			return notAJSON(c)
		}
		if key := firstMissing(body, required...); key != "" {
			return missing(c, key)
		}
		return h.createWith(c, k, body)
	}
}

func (h *Handler) createWith(c echo.Context, k types.Kind, attrs map[string]any) error {
	e, err := h.Store.Create(k, attrs)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, render(e))
}

// related renders the children returned by fetch for the id in param.
func related[T types.Entity](c echo.Context, param string, fetch func(string) ([]T, error)) error {
	items, err := fetch(c.Param(param))
	if err != nil {
		return fail(c, err)
	}
	out := make([]map[string]any, 0, len(items))
	for _, e := range items {
		out = append(out, render(e))
	}
	return c.JSON(http.StatusOK, out)
}

// render returns the public dictionary form of e.
func render(e types.Entity) map[string]any {
	return types.PublicDict(e)
}

// readBody decodes a JSON object body. It reports false when the request
// is not JSON or the body is not an object.
func readBody(c echo.Context) (map[string]any, bool) {
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMEApplicationJSON) {
		return nil, false
	}
	var body map[string]any
	if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil || body == nil {
		return nil, false
	}
	return body, true
}

func firstMissing(body map[string]any, keys ...string) string {
	for _, k := range keys {
		if _, ok := body[k]; !ok {
			return k
		}
	}
	return ""
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
}

func notAJSON(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "Not a JSON"})
}

func missing(c echo.Context, field string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing " + field})
}

// fail maps store errors to responses.
func fail(c echo.Context, err error) error {
	var fe *types.FieldError
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrReferential):
		return notFound(c)
	case errors.As(err, &fe) && errors.Is(fe.Err, types.ErrMissingField):
		return missing(c, fe.Field)
	case errors.As(err, &fe):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, types.ErrHasDependents), errors.Is(err, types.ErrDuplicateID):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}
