//go:build integration

package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestRequestID(t *testing.T) {
	t.Run("Generated", func(t *testing.T) {
		resp := doGet(t, "/livez")
		defer resp.Body.Close()

		if !uuidPattern.MatchString(resp.Header.Get("X-Request-ID")) {
			t.Fatalf("X-Request-ID: got %q, want a UUID", resp.Header.Get("X-Request-ID"))
		}
	})
	t.Run("Echoed", func(t *testing.T) {
		resp := doGet(t, "/api/products", header{"X-Request-ID", "shop-req-42"})
		defer resp.Body.Close()

		if got := resp.Header.Get("X-Request-ID"); got != "shop-req-42" {
			t.Errorf("X-Request-ID: got %q, want %q", got, "shop-req-42")
		}
	})
	t.Run("Oversized", func(t *testing.T) {
		resp := doGet(t, "/livez", header{"X-Request-ID", strings.Repeat("x", 200)})
		defer resp.Body.Close()

		if !uuidPattern.MatchString(resp.Header.Get("X-Request-ID")) {
			t.Errorf("oversized id must be replaced, got %q", resp.Header.Get("X-Request-ID"))
		}
	})
}

func TestCORS_Preflight(t *testing.T) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, baseURL+"/api/orders", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Origin", "http://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-User-ID")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusNoContent)

	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("Access-Control-Allow-Origin header not present")
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "POST") {
		t.Errorf("Access-Control-Allow-Methods: got %q", resp.Header.Get("Access-Control-Allow-Methods"))
	}
	if !strings.Contains(strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers")), "x-user-id") {
		t.Errorf("Access-Control-Allow-Headers: got %q", resp.Header.Get("Access-Control-Allow-Headers"))
	}
}

func TestCORS_ExposesRequestID(t *testing.T) {
	resp := doGet(t, "/api/products", header{"Origin", "http://shop.example.com"})
	defer resp.Body.Close()

	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("Access-Control-Allow-Origin header not present")
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Expose-Headers"), "X-Request-ID") {
		t.Errorf("Access-Control-Expose-Headers: got %q", resp.Header.Get("Access-Control-Expose-Headers"))
	}
}

func TestRateLimit_Headers(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	for _, h := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"} {
		if resp.Header.Get(h) == "" {
			t.Errorf("%s header not present", h)
		}
	}
}

func TestBodyLimit(t *testing.T) {
	huge := guestOrder(orderItemRequest{ProductID: "cap-logo", Quantity: 1})
	huge.PaymentReference = strings.Repeat("x", 1<<20+4096)

	resp := doPost(t, "/api/orders", huge)
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusRequestEntityTooLarge)
}

func TestUnknownRoute(t *testing.T) {
	resp := doGet(t, "/api/does-not-exist")
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusNotFound)
}
