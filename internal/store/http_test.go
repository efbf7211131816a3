package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPStore_ListUnprocessed(t *testing.T) {
	since := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/records" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("expected bearer token header, got %q", got)
		}
		query := r.URL.Query()
		for key, want := range map[string]string{
			"merge_status": "none",
			"since":        "2024-10-01T00:00:00Z",
			"sort":         "-date",
			"limit":        "50",
			"offset":       "100",
		} {
			if got := query.Get(key); got != want {
				t.Errorf("query %s: expected %q, got %q", key, want, got)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"records": [{"id": "r1", "source": "UKMTO"}, {"id": "r2", "source": "RECAAP"}]}`))
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, "secret-token", 5*time.Second)
	records, err := store.ListUnprocessed(context.Background(), since, 50, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[0].ID != "r1" || records[1].Source != "RECAAP" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestHTTPStore_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/records/r1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "r1", "source": "UKMTO", "vessel_imo": "9223485"}`))
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, "", 5*time.Second)
	record, err := store.Get(context.Background(), "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID != "r1" || record.VesselIMO != "9223485" {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestHTTPStore_GetNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "no such record"}`, http.StatusNotFound)
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, "", 5*time.Second)
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPStore_Patch(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/records/r1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected json content type, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, "", 5*time.Second)
	err := store.Patch(context.Background(), "r1", map[string]interface{}{
		"merge_status": "merged_into",
		"merged_into":  "r2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody["merge_status"] != "merged_into" || gotBody["merged_into"] != "r2" {
		t.Errorf("unexpected patch body: %v", gotBody)
	}
}

func TestHTTPStore_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "database unavailable"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, "", 5*time.Second)
	_, err := store.Get(context.Background(), "r1")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError || apiErr.Message != "database unavailable" {
		t.Errorf("unexpected error detail: %+v", apiErr)
	}
}

func TestHTTPStore_PlainTextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, "", 5*time.Second)
	err := store.Patch(context.Background(), "r1", map[string]interface{}{"merge_status": "merged"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "bad gateway" {
		t.Errorf("expected plain-text fallback message, got %q", apiErr.Message)
	}
}
