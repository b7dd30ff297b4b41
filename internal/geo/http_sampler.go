package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Thrusbalda/auto-work-log/internal/model"
)

const maxFixBodyBytes = 64 << 10

// HTTPSampler asks a location endpoint (a phone companion app or a geoclue
// bridge) for a fresh high-accuracy fix.
type HTTPSampler struct {
	httpClient *http.Client
	endpoint   string
	timeout    time.Duration
}

type fixResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func NewHTTPSampler(httpClient *http.Client, endpoint string, timeout time.Duration) *HTTPSampler {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultSampleTimeout
	}
	return &HTTPSampler{
		httpClient: httpClient,
		endpoint:   endpoint,
		timeout:    timeout,
	}
}

func (s *HTTPSampler) Sample(ctx context.Context) (model.Coordinate, error) {
	if s.endpoint == "" {
		return model.Coordinate{}, ErrUnavailable
	}

	reqURL, err := url.Parse(s.endpoint)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("parse location endpoint: %w", err)
	}
	q := reqURL.Query()
	q.Set("enableHighAccuracy", "true")
	q.Set("maximumAge", "0")
	q.Set("timeout", strconv.FormatInt(s.timeout.Milliseconds(), 10))
	reqURL.RawQuery = q.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("build location request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() != nil {
			return model.Coordinate{}, timeoutError(ctx, reqCtx)
		}
		return model.Coordinate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return model.Coordinate{}, ErrPermissionDenied
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return model.Coordinate{}, ErrTimeout
	case resp.StatusCode != http.StatusOK:
		return model.Coordinate{}, fmt.Errorf("%w: endpoint returned status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFixBodyBytes))
	if err != nil {
		if reqCtx.Err() != nil {
			return model.Coordinate{}, timeoutError(ctx, reqCtx)
		}
		return model.Coordinate{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	var fix fixResponse
	if err := json.Unmarshal(body, &fix); err != nil {
		return model.Coordinate{}, fmt.Errorf("%w: decode fix: %v", ErrUnavailable, err)
	}
	if fix.Latitude == nil || fix.Longitude == nil {
		return model.Coordinate{}, fmt.Errorf("%w: fix without coordinates", ErrUnavailable)
	}

	c := model.Coordinate{Latitude: *fix.Latitude, Longitude: *fix.Longitude}
	if !ValidCoordinate(c) {
		return model.Coordinate{}, errors.Join(ErrUnavailable, ErrInvalidCoordinate)
	}
	return c, nil
}
