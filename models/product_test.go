package models

import "testing"

func TestNewProduct(t *testing.T) {
	p := NewProduct(50, "https://example.com/file")

	if p.Price != 50 {
		t.Errorf("Expected price 50, got %d", p.Price)
	}
	if p.CurrencyCode != CurrencyStars {
		t.Errorf("Expected currency %s, got %s", CurrencyStars, p.CurrencyCode)
	}
	if p.DeliveryURL != "https://example.com/file" {
		t.Errorf("Unexpected delivery URL %s", p.DeliveryURL)
	}
	if p.Title == "" || p.Description == "" {
		t.Error("Expected title and description to be set")
	}
}
