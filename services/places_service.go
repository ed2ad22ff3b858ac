package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/sitedaddy/daisy-dog/config"
	"github.com/sitedaddy/daisy-dog/models"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 8 << 20

// ErrAPIKeyNotConfigured is returned before any upstream call when the
// gateway has no Places API key.
var ErrAPIKeyNotConfigured = errors.New("API key not configured")

// StatusError is a 200 response whose status field is not "OK".
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	return "Google API error: " + e.Status
}

// PlacesService calls the Google Places place details endpoint.
type PlacesService struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

// NewPlacesService builds a service from the places settings. A nil client
// gets a default one bounded by cfg.Timeout.
func NewPlacesService(cfg config.PlacesConfig, client *http.Client) *PlacesService {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &PlacesService{
		client:   client,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
	}
}

// FetchDetails requests q from the upstream and returns the response body
// unchanged when the upstream reports success.
//
// Errors are ErrAPIKeyNotConfigured, a *googleapi.Error for a non-200 HTTP
// status, a *StatusError for a non-OK status field, or any other error for
// transport and decoding failures.
func (s *PlacesService) FetchDetails(ctx context.Context, q models.PlaceQuery) ([]byte, error) {
	if s.apiKey == "" {
		return nil, ErrAPIKeyNotConfigured
	}

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse places endpoint: %w", err)
	}
	params := url.Values{}
	params.Set("place_id", q.PlaceID)
	params.Set("fields", q.Fields)
	params.Set("key", s.apiKey)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.redact(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &googleapi.Error{
			Code:    resp.StatusCode,
			Message: http.StatusText(resp.StatusCode),
			Header:  resp.Header,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read places response: %w", s.redact(err))
	}

	var status *models.DetailsStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, err
	}
	if status == nil {
		return nil, errors.New("places response is not a JSON object")
	}
	if !status.OK() {
		return nil, &StatusError{Status: status.StatusText(), Message: status.Message()}
	}

	return body, nil
}

// redact strips the API key from URLs embedded in transport errors so it
// never reaches a client or a log line.
func (s *PlacesService) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, url.QueryEscape(s.apiKey), "REDACTED")
	}
	return err
}
