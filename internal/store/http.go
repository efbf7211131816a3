package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seawatch/seawatch/internal/database"
)

// HTTPStore talks to a remote grid-style record store over its JSON API.
type HTTPStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPStore creates a client for the record store API at baseURL.
// token, when non-empty, is sent as a bearer token on every request.
func NewHTTPStore(baseURL, token string, timeout time.Duration) *HTTPStore {
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the record store
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("record store API error: %s (status: %d)", e.Message, e.StatusCode)
}

type listResponse struct {
	Records []database.RawRecord `json:"records"`
}

func (s *HTTPStore) ListUnprocessed(ctx context.Context, since time.Time, limit, offset int) ([]database.RawRecord, error) {
	query := url.Values{}
	query.Set("merge_status", "none")
	query.Set("since", since.UTC().Format(time.RFC3339))
	query.Set("sort", "-date")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var resp listResponse
	if err := s.do(ctx, http.MethodGet, "/api/records?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (s *HTTPStore) Get(ctx context.Context, id string) (*database.RawRecord, error) {
	var record database.RawRecord
	if err := s.do(ctx, http.MethodGet, "/api/records/"+url.PathEscape(id), nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *HTTPStore) Patch(ctx context.Context, id string, fields map[string]interface{}) error {
	return s.do(ctx, http.MethodPatch, "/api/records/"+url.PathEscape(id), fields, nil)
}

// do sends one API request and decodes the response into out when non-nil
func (s *HTTPStore) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "unknown error"
	}
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(data))
}
