package api

import (
	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// RegisterRoutes mounts every view under /api/v1.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/v1")

	g.GET("/status", h.Status)
	g.GET("/stats", h.Stats)

	g.GET("/states", h.list(types.KindState))
	g.POST("/states", h.create(types.KindState, "name"))
	g.GET("/states/:state_id", h.get(types.KindState, "state_id"))
	g.PUT("/states/:state_id", h.update(types.KindState, "state_id"))
	g.DELETE("/states/:state_id", h.remove(types.KindState, "state_id"))

	g.GET("/states/:state_id/cities", h.StateCities)
	g.POST("/states/:state_id/cities", h.CreateCity)
	g.GET("/cities/:city_id", h.get(types.KindCity, "city_id"))
	g.PUT("/cities/:city_id", h.update(types.KindCity, "city_id"))
	g.DELETE("/cities/:city_id", h.remove(types.KindCity, "city_id"))

	g.GET("/cities/:city_id/places", h.CityPlaces)
	g.POST("/cities/:city_id/places", h.CreatePlace)
	g.GET("/places/:place_id", h.get(types.KindPlace, "place_id"))
	g.PUT("/places/:place_id", h.update(types.KindPlace, "place_id"))
	g.DELETE("/places/:place_id", h.remove(types.KindPlace, "place_id"))

	g.GET("/users", h.list(types.KindUser))
	g.POST("/users", h.create(types.KindUser, "email", "password"))
	g.GET("/users/:user_id", h.get(types.KindUser, "user_id"))
	g.PUT("/users/:user_id", h.update(types.KindUser, "user_id"))
	g.DELETE("/users/:user_id", h.remove(types.KindUser, "user_id"))
	g.GET("/users/:user_id/places", h.UserPlaces)
	g.GET("/users/:user_id/reviews", h.UserReviews)

	g.GET("/amenities", h.list(types.KindAmenity))
	g.POST("/amenities", h.create(types.KindAmenity, "name"))
	g.GET("/amenities/:amenity_id", h.get(types.KindAmenity, "amenity_id"))
	g.PUT("/amenities/:amenity_id", h.update(types.KindAmenity, "amenity_id"))
	g.DELETE("/amenities/:amenity_id", h.remove(types.KindAmenity, "amenity_id"))
	g.GET("/amenities/:amenity_id/places", h.AmenityPlaces)

	g.GET("/places/:place_id/reviews", h.PlaceReviews)
	g.POST("/places/:place_id/reviews", h.CreateReview)
	g.GET("/reviews/:review_id", h.get(types.KindReview, "review_id"))
	g.PUT("/reviews/:review_id", h.update(types.KindReview, "review_id"))
	g.DELETE("/reviews/:review_id", h.remove(types.KindReview, "review_id"))

	g.GET("/places/:place_id/amenities", h.PlaceAmenities)
	g.POST("/places/:place_id/amenities/:amenity_id", h.LinkAmenity)
	g.DELETE("/places/:place_id/amenities/:amenity_id", h.UnlinkAmenity)
}
