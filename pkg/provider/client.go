package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrAuth reports an authentication failure. It is fatal for the
	// current sync attempt and is never retried.
	ErrAuth = errors.New("provider authentication failed")

	// errMalformedPage reports a page that could not be decoded. The
	// caller skips the page and continues; partial results are acceptable.
	errMalformedPage = errors.New("malformed provider page")
)

const defaultPageSize = 100

// maxRetries bounds transient-error retries per request.
const maxRetries = 3

// Config represents the configuration for the provider API client.
type Config struct {
	Code      string
	BaseURL   string
	Email     string
	APIKey    string
	CompanyID int64
	PageSize  int
	Timeout   time.Duration // Default: 30 seconds
}

// Client is an accounting provider API client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	email       string
	apiKey      string
	companyID   int64
	pageSize    int
	accessToken string
}

// NewClient creates a new provider API client.
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	pageSize := config.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   config.BaseURL,
		email:     config.Email,
		apiKey:    config.APIKey,
		companyID: config.CompanyID,
		pageSize:  pageSize,
	}
}

// SetAccessToken sets the access token for API requests.
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

// Authenticate obtains an access token from the provider.
func (c *Client) Authenticate() (string, error) {
	tokenURL := fmt.Sprintf("%s/oauth/token", c.baseURL)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("email", c.email)
	data.Set("api_key", c.apiKey)

	req, err := http.NewRequest("POST", tokenURL, bytes.NewBufferString(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: %s", ErrAuth, readError(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider token error: %s", readError(resp))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	return c.accessToken, nil
}

// page is the provider's pagination envelope. Items stay raw so the
// original payload of each record can be preserved alongside the decoded
// shape.
type page struct {
	Items []json.RawMessage `json:"items"`
}

// getPage fetches one page from an endpoint. A missing token is obtained
// first, and a rejected token is refreshed once before the failure counts
// as fatal. Transient failures (network, 5xx) are retried a bounded number
// of times with exponential backoff.
func (c *Client) getPage(endpoint string, params map[string]string, limit, offset int) (*page, error) {
	if c.accessToken == "" {
		if _, err := c.Authenticate(); err != nil {
			return nil, err
		}
	}

	queryParams := url.Values{}
	queryParams.Set("company_id", fmt.Sprintf("%d", c.companyID))
	queryParams.Set("limit", fmt.Sprintf("%d", limit))
	queryParams.Set("offset", fmt.Sprintf("%d", offset))
	for k, v := range params {
		queryParams.Set(k, v)
	}

	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, queryParams.Encode())

	var result page
	reauthed := false
	operation := func() error {
		req, err := http.NewRequest("GET", requestURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to make request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			if !reauthed {
				// The token may have expired mid-run; refresh it once.
				reauthed = true
				if _, err := c.Authenticate(); err != nil {
					return backoff.Permanent(err)
				}
				return fmt.Errorf("retrying with refreshed token")
			}
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrAuth, readError(resp)))
		case resp.StatusCode >= 500:
			return fmt.Errorf("provider server error (status %d)", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("provider API error: %s", readError(resp)))
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", errMalformedPage, err))
		}

		return nil
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}

	return &result, nil
}

// fetchAll follows pagination until exhaustion or the deadline. A zero
// deadline means unbounded. Each raw item is handed to decode; items that
// fail to decode are logged and skipped. A malformed page is skipped as a
// whole and the fetch continues with the next offset.
func (c *Client) fetchAll(endpoint string, params map[string]string, deadline time.Time, decode func(raw json.RawMessage) error) error {
	offset := 0
	consecutiveFailures := 0

	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			slog.Info("fetch deadline reached", "endpoint", endpoint, "offset", offset)
			return nil
		}

		pg, err := c.getPage(endpoint, params, c.pageSize, offset)
		if err != nil {
			if errors.Is(err, ErrAuth) {
				return err
			}

			consecutiveFailures++
			if consecutiveFailures >= 3 {
				return fmt.Errorf("giving up after %d consecutive failed pages: %w", consecutiveFailures, err)
			}

			// Skip this page and continue best-effort.
			slog.Warn("skipping page", "endpoint", endpoint, "offset", offset, "error", err)
			offset += c.pageSize
			continue
		}
		consecutiveFailures = 0

		if len(pg.Items) == 0 {
			return nil
		}

		for _, raw := range pg.Items {
			if err := decode(raw); err != nil {
				slog.Warn("skipping malformed record", "endpoint", endpoint, "error", err)
			}
		}

		if len(pg.Items) < c.pageSize {
			return nil
		}

		offset += c.pageSize
	}
}

// FetchAllDocuments fetches all documents of a type, optionally bounded to
// issue dates at or after since.
func (c *Client) FetchAllDocuments(docType string, since time.Time, deadline time.Time) ([]Document, error) {
	params := map[string]string{"type": docType}
	if !since.IsZero() {
		params["issue_date_from"] = since.Format("2006-01-02")
	}

	var docs []Document
	err := c.fetchAll("/api/v2/documents", params, deadline, func(raw json.RawMessage) error {
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		doc.Raw = append([]byte(nil), raw...)
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents (type=%s): %w", docType, err)
	}

	return docs, nil
}

// FetchAllJournalLines fetches all journal lines in a date range.
func (c *Client) FetchAllJournalLines(from, to time.Time, deadline time.Time) ([]JournalLine, error) {
	params := map[string]string{
		"date_from": from.Format("2006-01-02"),
		"date_to":   to.Format("2006-01-02"),
	}

	var lines []JournalLine
	err := c.fetchAll("/api/v2/journal", params, deadline, func(raw json.RawMessage) error {
		var line JournalLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return err
		}
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch journal lines: %w", err)
	}

	return lines, nil
}

// FetchAllContacts fetches all contacts.
func (c *Client) FetchAllContacts() ([]Contact, error) {
	var contacts []Contact
	err := c.fetchAll("/api/v2/contacts", nil, time.Time{}, func(raw json.RawMessage) error {
		var contact Contact
		if err := json.Unmarshal(raw, &contact); err != nil {
			return err
		}
		contacts = append(contacts, contact)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}

	return contacts, nil
}

// FetchAllReceivables fetches paid amounts of sales documents.
func (c *Client) FetchAllReceivables() ([]PaymentStatus, error) {
	return c.fetchPayments("/api/v2/receivables")
}

// FetchAllPayables fetches paid amounts of purchase documents.
func (c *Client) FetchAllPayables() ([]PaymentStatus, error) {
	return c.fetchPayments("/api/v2/payables")
}

func (c *Client) fetchPayments(endpoint string) ([]PaymentStatus, error) {
	var payments []PaymentStatus
	err := c.fetchAll(endpoint, nil, time.Time{}, func(raw json.RawMessage) error {
		var p PaymentStatus
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		payments = append(payments, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments (%s): %w", endpoint, err)
	}

	return payments, nil
}

// readError reads and formats an error response body.
func readError(resp *http.Response) string {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("status %d: failed to read error response", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))
	}

	if errResp.ErrorDescription != "" {
		return fmt.Sprintf("%s - %s", errResp.Error, errResp.ErrorDescription)
	}

	return errResp.Error
}
