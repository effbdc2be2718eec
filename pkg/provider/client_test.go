package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(baseURL string, pageSize int) *Client {
	c := NewClient(Config{
		Code:      "generic",
		BaseURL:   baseURL,
		Email:     "test@example.com",
		APIKey:    "test-key",
		CompanyID: 42,
		PageSize:  pageSize,
	})
	c.SetAccessToken("test-token")
	return c
}

func TestAuthenticate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			t.Errorf("path = %s, expected /oauth/token", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("email"); got != "test@example.com" {
			t.Errorf("email = %s, expected test@example.com", got)
		}
		if got := r.PostForm.Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %s, expected test-key", got)
		}

		json.NewEncoder(w).Encode(TokenResponse{AccessToken: "issued-token", TokenType: "bearer", ExpiresIn: 3600})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 10)
	token, err := client.Authenticate()
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if token != "issued-token" {
		t.Errorf("token = %s, expected issued-token", token)
	}
}

func TestAuthenticateRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid_client", ErrorDescription: "bad api key"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 10)
	_, err := client.Authenticate()
	if !errors.Is(err, ErrAuth) {
		t.Errorf("Authenticate() error = %v, expected ErrAuth", err)
	}
}

func TestFetchAllDocumentsPagination(t *testing.T) {
	docs := []Document{
		{ID: "d1", Amount: mustDecimal(t, "100.00"), Currency: "CZK", IssueDate: "2026-01-10"},
		{ID: "d2", Amount: mustDecimal(t, "200.00"), Currency: "EUR", IssueDate: "2026-01-11"},
		{ID: "d3", Amount: mustDecimal(t, "300.00"), Currency: "CZK", IssueDate: "2026-01-12"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization = %s, expected Bearer test-token", got)
		}
		q := r.URL.Query()
		if got := q.Get("company_id"); got != "42" {
			t.Errorf("company_id = %s, expected 42", got)
		}
		if got := q.Get("type"); got != "sales" {
			t.Errorf("type = %s, expected sales", got)
		}
		if got := q.Get("issue_date_from"); got != "2026-01-01" {
			t.Errorf("issue_date_from = %s, expected 2026-01-01", got)
		}

		offset := 0
		fmt.Sscanf(q.Get("offset"), "%d", &offset)
		end := offset + 2
		if end > len(docs) {
			end = len(docs)
		}
		items := []json.RawMessage{}
		for _, d := range docs[offset:end] {
			raw, _ := json.Marshal(d)
			items = append(items, raw)
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)
	since, _ := time.Parse("2006-01-02", "2026-01-01")
	got, err := client.FetchAllDocuments(WireTypeSales, since, time.Time{})
	if err != nil {
		t.Fatalf("FetchAllDocuments() error = %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("fetched %d documents, expected 3", len(got))
	}
	for i, d := range got {
		if d.ID != docs[i].ID {
			t.Errorf("document %d id = %s, expected %s", i, d.ID, docs[i].ID)
		}
		if len(d.Raw) == 0 {
			t.Errorf("document %s missing raw payload", d.ID)
		}
		if !strings.Contains(string(d.Raw), d.ID) {
			t.Errorf("document %s raw payload does not contain its id: %s", d.ID, d.Raw)
		}
	}
}

func TestFetchAllAuthenticatesLazily(t *testing.T) {
	var tokenHits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			tokenHits.Add(1)
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "issued-token"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer issued-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "invalid_token"})
			return
		}
		items := []json.RawMessage{json.RawMessage(`{"id":"c1","name":"Alfa"}`)}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
	defer server.Close()

	// No SetAccessToken: the first fetch must obtain a token on its own.
	client := NewClient(Config{
		BaseURL:   server.URL,
		Email:     "test@example.com",
		APIKey:    "test-key",
		CompanyID: 42,
		PageSize:  10,
	})

	contacts, err := client.FetchAllContacts()
	if err != nil {
		t.Fatalf("FetchAllContacts() error = %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("fetched %d contacts, expected 1", len(contacts))
	}
	if tokenHits.Load() != 1 {
		t.Errorf("token endpoint hit %d times, expected 1", tokenHits.Load())
	}
}

func TestFetchAllReauthenticatesOnRejectedToken(t *testing.T) {
	var tokenHits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			tokenHits.Add(1)
			json.NewEncoder(w).Encode(TokenResponse{AccessToken: "fresh-token"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "token_expired"})
			return
		}
		items := []json.RawMessage{json.RawMessage(`{"id":"c1","name":"Alfa"}`)}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 10)
	client.SetAccessToken("stale-token")

	contacts, err := client.FetchAllContacts()
	if err != nil {
		t.Fatalf("FetchAllContacts() error = %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("fetched %d contacts, expected 1", len(contacts))
	}
	if tokenHits.Load() != 1 {
		t.Errorf("token endpoint hit %d times, expected 1", tokenHits.Load())
	}
}

func TestFetchAllDocumentsAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "token_expired"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 10)
	_, err := client.FetchAllDocuments(WireTypeSales, time.Time{}, time.Time{})
	if !errors.Is(err, ErrAuth) {
		t.Errorf("FetchAllDocuments() error = %v, expected ErrAuth", err)
	}
}

func TestFetchAllPastDeadline(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"items": []json.RawMessage{}})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 10)
	deadline := time.Now().Add(-time.Minute)
	docs, err := client.FetchAllDocuments(WireTypeSales, time.Time{}, deadline)
	if err != nil {
		t.Fatalf("FetchAllDocuments() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("fetched %d documents, expected 0", len(docs))
	}
	if hits.Load() != 0 {
		t.Errorf("server received %d requests, expected 0", hits.Load())
	}
}

func TestFetchAllSkipsMalformedRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := []json.RawMessage{
			json.RawMessage(`{"id":"d1","amount":"100.00","currency":"CZK"}`),
			json.RawMessage(`{"id":"d2","amount":{"nested":true}}`),
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 10)
	docs, err := client.FetchAllDocuments(WireTypeSales, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("FetchAllDocuments() error = %v", err)
	}

	if len(docs) != 1 {
		t.Fatalf("fetched %d documents, expected 1", len(docs))
	}
	if docs[0].ID != "d1" {
		t.Errorf("document id = %s, expected d1", docs[0].ID)
	}
}

func TestGetPageRetriesServerError(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		items := []json.RawMessage{json.RawMessage(`{"id":"c1","name":"Alfa"}`)}
		json.NewEncoder(w).Encode(map[string]any{"items": items})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 10)
	contacts, err := client.FetchAllContacts()
	if err != nil {
		t.Fatalf("FetchAllContacts() error = %v", err)
	}

	if len(contacts) != 1 {
		t.Fatalf("fetched %d contacts, expected 1", len(contacts))
	}
	if hits.Load() != 2 {
		t.Errorf("server received %d requests, expected 2", hits.Load())
	}
}

func TestFetchAllGivesUpAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "not_found"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 10)
	_, err := client.FetchAllContacts()
	if err == nil {
		t.Fatal("FetchAllContacts() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "consecutive failed pages") {
		t.Errorf("error = %v, expected consecutive-failure abort", err)
	}
}
