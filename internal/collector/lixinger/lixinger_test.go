package lixinger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/intrinsic/internal/collector"
	"github.com/newthinker/intrinsic/internal/core"
)

func TestLixinger_ImplementsQuoteSource(t *testing.T) {
	var _ collector.QuoteSource = (*Lixinger)(nil)
}

func TestLixinger_Name(t *testing.T) {
	l := New("test-key", "")
	if l.Name() != "lixinger" {
		t.Errorf("expected 'lixinger', got %s", l.Name())
	}
}

func TestLixinger_Quote_RequiresAPIKey(t *testing.T) {
	l := New("", "")
	_, err := l.Quote(context.Background(), "600519")
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

func TestLixinger_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cn/stock/real-time" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload struct {
			Token      string   `json:"token"`
			StockCodes []string `json:"stockCodes"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.Token != "test-key" || len(payload.StockCodes) != 1 || payload.StockCodes[0] != "600519" {
			t.Errorf("unexpected payload %+v", payload)
		}
		w.Write([]byte(`{"code":0,"data":[{"stockCode":"600519","close":1680.5,"preClose":1659.8,"pctChange":1.25}]}`))
	}))
	defer srv.Close()

	l := New("test-key", srv.URL)
	q, err := l.Quote(context.Background(), "600519")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 1680.5 || q.PrevClose != 1659.8 || q.ChangePercent != 1.25 {
		t.Errorf("unexpected quote %+v", q)
	}
	if q.Source != "lixinger" {
		t.Errorf("expected source lixinger, got %s", q.Source)
	}
}

func TestLixinger_Quote_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":1,"message":"invalid token"}`))
	}))
	defer srv.Close()

	_, err := New("bad", srv.URL).Quote(context.Background(), "600519")
	if !errors.Is(err, core.ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestLixinger_Quote_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":[]}`))
	}))
	defer srv.Close()

	_, err := New("test-key", srv.URL).Quote(context.Background(), "600519")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
