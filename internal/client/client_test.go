package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tunecrawl/internal/client"
)

func newServer(t *testing.T, handler http.HandlerFunc) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return client.New(srv.URL+"/", nil)
}

func TestListDecodesRecords(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/catalog" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"id":"x-1","title":"A","artist":"B","url":"u","source":"S","genre":"g","duration":"3:00","popularity":5,"crawledAt":"2024-03-01T12:00:00Z","verified":true}]`))
	})
	records, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Title != "A" || !records[0].Verified {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestCrawlFailureReturnsBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Crawl failed","message":"disk full","records":[{"id":"a"}]}`))
	})
	resp, err := c.Crawl(context.Background())
	var statusErr *client.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status error, got %v", err)
	}
	if statusErr.Message != "disk full" {
		t.Fatalf("unexpected message %q", statusErr.Message)
	}
	if resp == nil || len(resp.Records) != 1 || resp.Success {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestStatusAndReset(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/catalog/status":
			_, _ = w.Write([]byte(`{"totalTracks":3,"lastAggregation":null,"aggregationCount":0,"createdAt":"2024-03-01T12:00:00.000Z","sources":["S"],"genres":["g"]}`))
		case "/api/catalog/reset":
			_, _ = w.Write([]byte(`{"message":"Catalog reset successfully"}`))
		default:
			http.NotFound(w, r)
		}
	})
	st, err := c.Status(context.Background())
	if err != nil || st.TotalTracks != 3 || st.LastAggregation != nil {
		t.Fatalf("Status: %+v, %v", st, err)
	}
	msg, err := c.Reset(context.Background())
	if err != nil || msg.Message != "Catalog reset successfully" {
		t.Fatalf("Reset: %+v, %v", msg, err)
	}
}

func TestUnavailableDaemon(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := client.New(url, nil).Status(context.Background())
	if !errors.Is(err, client.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHealthDegradedReturnsReport(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"degraded","store":"redis:tunecrawl:catalog","storeError":"connection refused"}`))
	})
	health, err := c.Health(context.Background())
	if err == nil {
		t.Fatal("expected error for degraded health")
	}
	if health == nil || health.Status != "degraded" || health.StoreError == "" {
		t.Fatalf("unexpected health: %+v", health)
	}
}
