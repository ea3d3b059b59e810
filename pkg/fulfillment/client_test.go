package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/pizzeria-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) roundTripFunc {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{},
		}, nil
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("http://factory.test/", "factory-key", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func sampleOrder() (Order, Diner) {
	return Order{
			ID:          11,
			FranchiseID: 1,
			StoreID:     2,
			Date:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Items: []Item{
				{MenuID: 1, Description: "Veggie", Price: decimal.RequireFromString("0.0038")},
			},
		}, Diner{
			ID:    5,
			Name:  "pizza diner",
			Email: "d@jwt.com",
		}
}

func TestSubmitAccepted(t *testing.T) {
	var capturedURL, capturedAuth string
	var payload map[string]json.RawMessage

	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuth = req.Header.Get("Authorization")
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return respond(http.StatusOK, `{"reportUrl":"http://factory.test/report/1","jwt":"signed-receipt"}`)(req)
	})

	order, diner := sampleOrder()
	result, err := client.Submit(context.Background(), order, diner)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if capturedURL != "http://factory.test/api/order" {
		t.Fatalf("unexpected url %q", capturedURL)
	}
	if capturedAuth != "Bearer factory-key" {
		t.Fatalf("unexpected auth header %q", capturedAuth)
	}
	if _, ok := payload["diner"]; !ok {
		t.Fatalf("diner missing from payload")
	}
	if !strings.Contains(string(payload["order"]), `"price":"0.0038"`) {
		t.Fatalf("expected decimal price to survive encoding, got %s", payload["order"])
	}
	if !result.Accepted || result.JWT != "signed-receipt" || result.ReportURL != "http://factory.test/report/1" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSubmitRejectedKeepsReportURL(t *testing.T) {
	client := newTestClient(t, respond(http.StatusInternalServerError, `{"message":"chaos","reportUrl":"http://factory.test/report/chaos"}`))

	order, diner := sampleOrder()
	result, err := client.Submit(context.Background(), order, diner)
	if err != nil {
		t.Fatalf("rejection should not be an error: %v", err)
	}
	if result.Accepted {
		t.Fatal("expected rejection")
	}
	if result.ReportURL != "http://factory.test/report/chaos" {
		t.Fatalf("unexpected report url %q", result.ReportURL)
	}
}

func TestSubmitRejectedWithGarbageBody(t *testing.T) {
	client := newTestClient(t, respond(http.StatusBadGateway, `<html>bad gateway</html>`))
	order, diner := sampleOrder()
	result, err := client.Submit(context.Background(), order, diner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Accepted || result.ReportURL != "" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	order, diner := sampleOrder()
	_, err := client.Submit(context.Background(), order, diner)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestSubmitUndecodableSuccess(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `not json`))
	order, diner := sampleOrder()
	if _, err := client.Submit(context.Background(), order, diner); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "key"); err == nil {
		t.Fatal("expected missing base url error")
	}
	if _, err := NewClient("http://factory.test", "  "); err == nil {
		t.Fatal("expected missing api key error")
	}
}
