package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// StateCities handles GET /states/:state_id/cities.
func (h *Handler) StateCities(c echo.Context) error {
	return related(c, "state_id", h.Store.Cities)
}

// CityPlaces handles GET /cities/:city_id/places.
func (h *Handler) CityPlaces(c echo.Context) error {
	return related(c, "city_id", h.Store.Places)
}

// PlaceReviews handles GET /places/:place_id/reviews.
func (h *Handler) PlaceReviews(c echo.Context) error {
	return related(c, "place_id", h.Store.Reviews)
}

// PlaceAmenities handles GET /places/:place_id/amenities.
func (h *Handler) PlaceAmenities(c echo.Context) error {
	return related(c, "place_id", h.Store.Amenities)
}

// UserPlaces handles GET /users/:user_id/places.
func (h *Handler) UserPlaces(c echo.Context) error {
	return related(c, "user_id", h.Store.UserPlaces)
}

// UserReviews handles GET /users/:user_id/reviews.
func (h *Handler) UserReviews(c echo.Context) error {
	return related(c, "user_id", h.Store.UserReviews)
}

// AmenityPlaces handles GET /amenities/:amenity_id/places.
func (h *Handler) AmenityPlaces(c echo.Context) error {
	return related(c, "amenity_id", h.Store.AmenityPlaces)
}

// CreateCity handles POST /states/:state_id/cities. The state comes from
// the route; a missing state is reported after body validation.
func (h *Handler) CreateCity(c echo.Context) error {
	body, ok := readBody(c)
	if !ok {
		return notAJSON(c)
	}
	if key := firstMissing(body, "name"); key != "" {
		return missing(c, key)
	}
	body["state_id"] = c.Param("state_id")
	return h.createWith(c, types.KindCity, body)
}

// CreatePlace handles POST /cities/:city_id/places. Both the city and the
// owning user must exist.
func (h *Handler) CreatePlace(c echo.Context) error {
	body, ok := readBody(c)
	if !ok {
		return notAJSON(c)
	}
	if key := firstMissing(body, "user_id", "name"); key != "" {
		return missing(c, key)
	}
	body["city_id"] = c.Param("city_id")
	return h.createWith(c, types.KindPlace, body)
}

// CreateReview handles POST /places/:place_id/reviews. The place is checked
// before the body, the author before the text.
func (h *Handler) CreateReview(c echo.Context) error {
	placeID := c.Param("place_id")
	if _, ok := h.Store.Get(types.KindPlace, placeID); !ok {
		return notFound(c)
	}
	body, ok := readBody(c)
	if !ok {
		return notAJSON(c)
	}
	if key := firstMissing(body, "user_id"); key != "" {
		return missing(c, key)
	}
	userID, _ := body["user_id"].(string)
	if _, ok := h.Store.Get(types.KindUser, userID); !ok {
		return notFound(c)
	}
	if key := firstMissing(body, "text"); key != "" {
		return missing(c, key)
	}
	body["place_id"] = placeID
	return h.createWith(c, types.KindReview, body)
}

// LinkAmenity handles POST /places/:place_id/amenities/:amenity_id. It
// answers 201 when the pair is new and 200 when it was already linked.
func (h *Handler) LinkAmenity(c echo.Context) error {
	placeID, amenityID := c.Param("place_id"), c.Param("amenity_id")
	created, err := h.Store.AddAmenity(placeID, amenityID)
	if err != nil {
		return fail(c, err)
	}
	amenity, ok := h.Store.Get(types.KindAmenity, amenityID)
	if !ok {
		return notFound(c)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, render(amenity))
}

// UnlinkAmenity handles DELETE /places/:place_id/amenities/:amenity_id. A
// pair that is not linked is reported as not found.
func (h *Handler) UnlinkAmenity(c echo.Context) error {
	removed, err := h.Store.RemoveAmenity(c.Param("place_id"), c.Param("amenity_id"))
	if err != nil {
		return fail(c, err)
	}
	if !removed {
		return notFound(c)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}
