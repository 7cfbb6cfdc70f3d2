//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusOK)

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 9 {
		t.Fatalf("expected 9 products, got %d", len(products))
	}
}

func TestListProducts_Category(t *testing.T) {
	resp := doGet(t, "/api/products?category=Home")
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusOK)

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 2 {
		t.Fatalf("expected 2 Home products, got %d", len(products))
	}
	for _, p := range products {
		if p.Category != "Home" {
			t.Errorf("product %s: category %q", p.ID, p.Category)
		}
	}
}

func TestListProducts_Normalized(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusOK)

	byID := make(map[string]productResponse)
	for _, p := range decodeJSON[[]productResponse](t, resp) {
		byID[p.ID] = p
	}

	// Seeded as {"_id": ..., "price": "54.50", "category": {"name": ...}, "sizes": {"S": 3, ...}}.
	hoodie, ok := byID["hoodie-zip"]
	if !ok {
		t.Fatal("hoodie-zip not found")
	}
	if hoodie.Price != 54.5 {
		t.Errorf("price: got %v, want 54.5", hoodie.Price)
	}
	if hoodie.Category != "Apparel" {
		t.Errorf("category: got %q, want Apparel", hoodie.Category)
	}
	if !hoodie.HasSizes || len(hoodie.Sizes) != 3 {
		t.Errorf("sizes: got hasSizes=%v %v", hoodie.HasSizes, hoodie.Sizes)
	}
	if hoodie.DiscountPercentage != 10 {
		t.Errorf("discount: got %v, want 10", hoodie.DiscountPercentage)
	}
	if hoodie.Image == "" {
		t.Error("image is empty")
	}

	// Seeded with a numeric id.
	if _, ok := byID["1005"]; !ok {
		t.Error("numeric id 1005 not normalized to a string")
	}

	// Seeded with bare size names and no stock.
	socks := byID["socks-wool"]
	for _, s := range socks.Sizes {
		if s.Stock != 0 {
			t.Errorf("socks size %s: stock %d, want 0", s.Size, s.Stock)
		}
	}
}

func TestGetProduct(t *testing.T) {
	p := getProduct(t, "cap-logo")
	if p.Name != "Logo Cap" {
		t.Errorf("name: got %q, want %q", p.Name, "Logo Cap")
	}
	if p.HasSizes {
		t.Error("cap-logo must not have sizes")
	}
	if p.Price != 14 {
		t.Errorf("price: got %v, want 14", p.Price)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/does-not-exist")
	defer resp.Body.Close()

	expectStatus(t, resp, http.StatusNotFound)

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}
