package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"github.com/sitedaddy/daisy-dog/config"
	"github.com/sitedaddy/daisy-dog/metrics"
	"github.com/sitedaddy/daisy-dog/middleware"
	"github.com/sitedaddy/daisy-dog/models"
	"github.com/sitedaddy/daisy-dog/services"
)

// DetailsFetcher looks up one place. *services.PlacesService implements it.
type DetailsFetcher interface {
	FetchDetails(ctx context.Context, q models.PlaceQuery) ([]byte, error)
}

// PlacesHandler serves the place details routes.
type PlacesHandler struct {
	places         DetailsFetcher
	reviewsPlaceID string
	detailsPlaceID string
	log            *zap.Logger
}

// NewPlacesHandler binds places to the place ids configured in cfg.
func NewPlacesHandler(places DetailsFetcher, cfg config.PlacesConfig, log *zap.Logger) *PlacesHandler {
	return &PlacesHandler{
		places:         places,
		reviewsPlaceID: cfg.ReviewsPlaceID,
		detailsPlaceID: cfg.DetailsPlaceID,
		log:            log,
	}
}

// GetReviews relays rating and reviews for the configured reviews place.
func (h *PlacesHandler) GetReviews(c *gin.Context) {
	h.relay(c, "reviews", models.PlaceQuery{
		PlaceID: h.reviewsPlaceID,
		Fields:  models.ReviewFields,
	})
}

// GetPlace relays contact details for the configured place.
func (h *PlacesHandler) GetPlace(c *gin.Context) {
	h.relay(c, "place", models.PlaceQuery{
		PlaceID: h.detailsPlaceID,
		Fields:  models.PlaceFields,
	})
}

func (h *PlacesHandler) relay(c *gin.Context, route string, q models.PlaceQuery) {
	start := time.Now()
	body, err := h.places.FetchDetails(c.Request.Context(), q)
	metrics.RecordUpstream(route, Outcome(err), time.Since(start))

	if err != nil {
		h.log.Warn("Place details lookup failed",
			zap.String("route", route),
			zap.String("place_id", q.PlaceID),
			zap.String("outcome", Outcome(err)),
			zap.Error(err),
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		)
		respondError(c, ErrorMessage(err))
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}

// ErrorMessage is the text placed in the error envelope for err.
func ErrorMessage(err error) string {
	var httpErr *googleapi.Error
	var statusErr *services.StatusError

	switch {
	case errors.Is(err, services.ErrAPIKeyNotConfigured):
		return "API key not configured"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("HTTP error: %d", httpErr.Code)
	case errors.As(err, &statusErr):
		return "Google API error: " + statusErr.Status
	default:
		return "Server error: " + err.Error()
	}
}

// Outcome classifies a lookup result for metrics and logs.
func Outcome(err error) string {
	var httpErr *googleapi.Error
	var statusErr *services.StatusError

	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, services.ErrAPIKeyNotConfigured):
		return metrics.OutcomeNoAPIKey
	case errors.As(err, &httpErr):
		return metrics.OutcomeHTTPError
	case errors.As(err, &statusErr):
		return metrics.OutcomeAPIError
	default:
		return metrics.OutcomeServerError
	}
}

// respondError writes {"error": message} with status 500.
func respondError(c *gin.Context, message string) {
	c.Header("Content-Type", "application/json")
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}
