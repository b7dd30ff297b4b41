package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thrusbalda/auto-work-log/internal/model"
)

func TestPushSampler_DeliversFixPushedAfterRequest(t *testing.T) {
	s := NewPushSampler(time.Second)
	want := model.Coordinate{Latitude: 35.68, Longitude: 139.76}

	// A fix pushed before anyone asks is not kept around.
	n, err := s.Push(model.Coordinate{Latitude: 1, Longitude: 1})
	require.NoError(t, err)
	assert.Zero(t, n)

	done := make(chan struct{})
	var got model.Coordinate
	var sampleErr error
	go func() {
		defer close(done)
		got, sampleErr = s.Sample(context.Background())
	}()

	require.Eventually(t, func() bool { return s.Pending() == 1 }, time.Second, time.Millisecond)
	n, err = s.Push(want)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	<-done
	require.NoError(t, sampleErr)
	assert.Equal(t, want, got)
	assert.Zero(t, s.Pending())
}

func TestPushSampler_TimesOut(t *testing.T) {
	s := NewPushSampler(20 * time.Millisecond)

	_, err := s.Sample(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Zero(t, s.Pending())
}

func TestPushSampler_ParentCancellation(t *testing.T) {
	s := NewPushSampler(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Sample(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPushSampler_RejectsInvalidFix(t *testing.T) {
	s := NewPushSampler(time.Second)

	_, err := s.Push(model.Coordinate{Latitude: 120})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestHTTPSampler_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("enableHighAccuracy"))
		assert.Equal(t, "0", r.URL.Query().Get("maximumAge"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"latitude": 52.52, "longitude": 13.405, "accuracy": 8}`)
	}))
	defer server.Close()

	s := NewHTTPSampler(server.Client(), server.URL, time.Second)
	got, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Coordinate{Latitude: 52.52, Longitude: 13.405}, got)
}

func TestHTTPSampler_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"permission denied", http.StatusForbidden, "", ErrPermissionDenied},
		{"gateway timeout", http.StatusGatewayTimeout, "", ErrTimeout},
		{"server error", http.StatusInternalServerError, "", ErrUnavailable},
		{"broken json", http.StatusOK, "{", ErrUnavailable},
		{"missing coordinates", http.StatusOK, `{"latitude": 1}`, ErrUnavailable},
		{"out of range", http.StatusOK, `{"latitude": 100, "longitude": 1}`, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			s := NewHTTPSampler(server.Client(), server.URL, time.Second)
			_, err := s.Sample(context.Background())
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestHTTPSampler_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	s := NewHTTPSampler(server.Client(), server.URL, 30*time.Millisecond)
	_, err := s.Sample(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestHTTPSampler_NoEndpoint(t *testing.T) {
	s := NewHTTPSampler(nil, "", time.Second)
	_, err := s.Sample(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}
