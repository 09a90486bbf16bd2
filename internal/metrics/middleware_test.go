package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Post("/post", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/rejected", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	ok := httpRequestsTotal.WithLabelValues("POST", "200")
	bad := httpRequestsTotal.WithLabelValues("POST", "400")
	beforeOK := testutil.ToFloat64(ok)
	beforeBad := testutil.ToFloat64(bad)

	ts := httptest.NewServer(r)
	defer ts.Close()

	for _, path := range []string{"/post", "/rejected"} {
		resp, err := http.Post(ts.URL+path, "text/plain", nil)
		if err != nil {
			t.Fatal(err)
		}
		if errInner := resp.Body.Close(); errInner != nil {
			t.Log(errInner)
		}
	}

	if val := testutil.ToFloat64(ok) - beforeOK; val != 1 {
		t.Errorf("Expected httpRequestsTotal for POST 200 to grow by 1, got %f", val)
	}
	if val := testutil.ToFloat64(bad) - beforeBad; val != 1 {
		t.Errorf("Expected httpRequestsTotal for POST 400 to grow by 1, got %f", val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val <= 0 {
		t.Errorf("Expected httpRequestDurationSeconds to be observed, got %d", val)
	}
}
