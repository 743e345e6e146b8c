package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func requestWithParam(key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestPathID(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		wantID   int64
		wantCode string
	}{
		{
			name:   "valid ID",
			value:  "123",
			wantID: 123,
		},
		{
			name:     "missing ID",
			value:    "",
			wantCode: "missing",
		},
		{
			name:     "invalid ID format",
			value:    "abc",
			wantCode: "invalid_format",
		},
		{
			name:     "negative ID",
			value:    "-1",
			wantCode: "invalid_value",
		},
		{
			name:     "zero ID",
			value:    "0",
			wantCode: "invalid_value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := pathID(requestWithParam("trackID", tt.value), "trackID", "track_id")

			if tt.wantCode != "" {
				if err == nil {
					t.Fatalf("pathID() expected error but got none")
				}
				if err.Code != tt.wantCode {
					t.Errorf("pathID() code = %q, want %q", err.Code, tt.wantCode)
				}
				if err.Field != "track_id" {
					t.Errorf("pathID() field = %q, want track_id", err.Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("pathID() unexpected error: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("pathID() = %v, want %v", id, tt.wantID)
			}
		})
	}
}

func TestQueryID(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantID    int64
		wantError bool
	}{
		{"absent", "/music-items", 0, false},
		{"present", "/music-items?genre_id=7", 7, false},
		{"not a number", "/music-items?genre_id=rock", 0, true},
		{"zero", "/music-items?genre_id=0", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			id, err := queryID(r, "genre_id")
			if tt.wantError != (err != nil) {
				t.Fatalf("queryID() error = %v, wantError %v", err, tt.wantError)
			}
			if id != tt.wantID {
				t.Errorf("queryID() = %v, want %v", id, tt.wantID)
			}
		})
	}
}

func TestValidateSearchQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantError bool
	}{
		{
			name:      "valid search query",
			query:     "Beatles",
			wantError: false,
		},
		{
			name:      "empty search query",
			query:     "",
			wantError: false,
		},
		{
			name:      "long search query",
			query:     string(make([]byte, 1001)),
			wantError: true,
		},
		{
			name:      "query with null byte",
			query:     "test\x00query",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSearchQuery(tt.query)
			if tt.wantError && err == nil {
				t.Errorf("validateSearchQuery() expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("validateSearchQuery() unexpected error: %v", err)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0B"},
		{512, "< 1KB"},
		{2048, "2KB"},
		{3 * 1024 * 1024, "3MB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
