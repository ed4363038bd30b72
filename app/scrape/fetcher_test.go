package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetcher_Fetch(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	fetcher := NewFetcher("dining-comb-test/1.0", 0)

	body, err := fetcher.Fetch(context.Background(), server.URL+"/menu")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Errorf("Expected page body, got %q", body)
	}
	if gotAgent != "dining-comb-test/1.0" {
		t.Errorf("Expected configured user agent, got %q", gotAgent)
	}

	if _, err := fetcher.Fetch(context.Background(), server.URL+"/broken"); err == nil {
		t.Error("Expected error for non-200 response")
	}
}
