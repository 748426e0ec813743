package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func restServer(t *testing.T, handler http.HandlerFunc) *RESTProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRESTProvider(srv.URL, "test-key", "")
}

func TestFetchPricesStatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		check     func(t *testing.T, err error)
	}{
		{"not found", http.StatusNotFound, func(t *testing.T, err error) {
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		}},
		{"rate limited", http.StatusTooManyRequests, func(t *testing.T, err error) {
			if !errors.Is(err, ErrRateLimited) {
				t.Errorf("expected ErrRateLimited, got %v", err)
			}
		}},
		{"server error", http.StatusBadGateway, func(t *testing.T, err error) {
			if !IsTransient(err) {
				t.Errorf("5xx must be transient, got %v", err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := restServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := p.FetchPrices(context.Background(), "AAPL", 500)
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestFetchPricesParsesAndOrdersBars(t *testing.T) {
	p := restServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header, got %q", got)
		}
		// Out of order, with a null holiday bar to drop.
		w.Write([]byte(`[
			{"timestamp": 1736208000, "open": 101, "high": 103, "low": 100, "close": 102, "volume": 900},
			{"timestamp": 1736121600, "open": 100, "high": 102, "low": 99, "close": 101, "volume": 1000},
			{"timestamp": 1736294400, "close": 0}
		]`))
	})

	series, err := p.FetchPrices(context.Background(), "AAPL", 500)
	if err != nil {
		t.Fatal(err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 bars after dropping the null bar, got %d", series.Len())
	}
	if !series.Valid() {
		t.Error("bars must come back ordered and valid")
	}
	if series.LastClose() != 102 {
		t.Errorf("expected last close 102, got %f", series.LastClose())
	}
}

func TestFetchPricesEmptyResponse(t *testing.T) {
	p := restServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	})
	_, err := p.FetchPrices(context.Background(), "AAPL", 500)
	var dq *DataQualityError
	if !errors.As(err, &dq) {
		t.Fatalf("expected DataQualityError, got %v", err)
	}
}

func TestFetchUniverseDeduplicates(t *testing.T) {
	p := restServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[
			{"symbol": "AAPL", "last_price": 182.5, "avg_volume": 58000000},
			{"symbol": "MSFT", "last_price": 410.0, "avg_volume": 22000000},
			{"symbol": "AAPL", "last_price": 182.5, "avg_volume": 58000000},
			{"symbol": ""}
		]`))
	})

	entries, err := p.FetchUniverse(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 unique entries, got %d", len(entries))
	}
	if entries[0].Symbol != "AAPL" || entries[1].Symbol != "MSFT" {
		t.Errorf("source order must be preserved, got %v", entries)
	}
}

func TestFetchFundamentalsAbsence(t *testing.T) {
	p := restServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	})
	_, err := p.FetchFundamentals(context.Background(), "AAPL")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("all-null fundamentals must read as unavailable, got %v", err)
	}
}

func TestFetchFundamentalsParses(t *testing.T) {
	p := restServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"revenue_yoy": -0.08, "revenue_qoq": -0.02, "eps_yoy": 0.05, "inventory_qoq": 0.25}`))
	})
	f, err := p.FetchFundamentals(context.Background(), "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if !f.RevenueDeclining() {
		t.Error("expected declining revenue")
	}
	if f.EPSDeclining() {
		t.Error("EPS is growing year over year")
	}
	if !f.InventoryBuilding() {
		t.Error("expected inventory building above 20%")
	}
}
