package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	orderPath                   = "api/order"
	defaultTimeout              = 30 * time.Second
	responseBodyReadLimit int64 = 64 * 1024
)

var (
	errBaseURLRequired = errors.New("fulfillment base url is required")
	errAPIKeyRequired  = errors.New("fulfillment api key is required")
)

// Submitter is the surface the order service depends on.
type Submitter interface {
	Submit(ctx context.Context, order Order, diner Diner) (Result, error)
}

// Client talks to the external factory that prepares orders.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the overall request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds the factory client.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimSpace(baseURL)
	if trimmedURL == "" {
		return nil, errBaseURLRequired
	}
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    trimmedURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Diner identifies who placed the order.
type Diner struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Item is a line of the submitted order.
type Item struct {
	MenuID      uint64          `json:"menuId"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// Order is the payload the factory prepares.
type Order struct {
	ID          uint64    `json:"id"`
	FranchiseID uint64    `json:"franchiseId"`
	StoreID     uint64    `json:"storeId"`
	Date        time.Time `json:"date"`
	Items       []Item    `json:"items"`
}

// Result is the factory's verdict. ReportURL may be set on both outcomes.
type Result struct {
	Accepted  bool
	ReportURL string
	JWT       string
}

type submitRequest struct {
	Diner Diner `json:"diner"`
	Order Order `json:"order"`
}

type submitResponse struct {
	ReportURL string `json:"reportUrl"`
	JWT       string `json:"jwt"`
	Message   string `json:"message"`
}

// Submit sends the order in a single attempt. A non-2xx answer is a
// rejection and is returned as Result{Accepted: false} with a nil error;
// errors are reserved for requests that got no usable answer.
func (c *Client) Submit(ctx context.Context, order Order, diner Diner) (Result, error) {
	if c == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeDependency, "fulfillment client not configured")
	}

	payload, err := json.Marshal(submitRequest{Diner: diner, Order: order})
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal fulfillment request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(orderPath), bytes.NewReader(payload))
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build fulfillment request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute fulfillment request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read fulfillment response")
	}

	var apiResp submitResponse
	decodeErr := json.Unmarshal(body, &apiResp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// rejection bodies are best effort; keep whatever report url we can
		return Result{Accepted: false, ReportURL: apiResp.ReportURL}, nil
	}
	if decodeErr != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %w", resp.StatusCode, decodeErr), "decode fulfillment response")
	}

	return Result{
		Accepted:  true,
		ReportURL: apiResp.ReportURL,
		JWT:       apiResp.JWT,
	}, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
