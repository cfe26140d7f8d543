package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSourceFetchesCollectionDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/ingredients.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"category":"Bread","options":[{"name":"simple"}]}]`))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/data/", nil)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	raw, err := src.Fetch(context.Background(), "ingredients")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	groups, ok := raw.([]any)
	if !ok || len(groups) != 1 {
		t.Fatalf("expected one group, got %#v", raw)
	}
}

func TestHTTPSourceSurfacesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/", nil)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if _, err := src.Fetch(context.Background(), "menu"); err == nil {
		t.Fatal("expected error for missing document")
	}
}

func TestStaticSource(t *testing.T) {
	src := NewStatic(map[string]string{"menu": `[{"name":"classic"}]`})
	raw, err := src.Fetch(context.Background(), "menu")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, ok := raw.([]any); !ok {
		t.Fatalf("expected list, got %#v", raw)
	}
	if _, err := src.Fetch(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown identifier")
	}
}
