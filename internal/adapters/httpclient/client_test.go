package httpclient_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"app_reviews/internal/adapters/httpclient"
)

func TestClient_Get_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer ts.Close()

	cl := httpclient.New("test", time.Second, 100) // high RPS for tests
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := cl.Get(ctx, ts.URL+"/x", nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", body)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", hits)
	}
}

func TestClient_SingleAttemptSurfacesStatus(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(503)
	}))
	defer ts.Close()

	cl := httpclient.New("test", time.Second, 100, httpclient.WithAttempts(1))
	_, err := cl.Get(context.Background(), ts.URL, nil)

	var se *httpclient.StatusError
	if !errors.As(err, &se) || se.StatusCode != 503 {
		t.Fatalf("expected StatusError 503, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected exactly one call, got %d", hits)
	}
}

func TestClient_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl := httpclient.New("test", time.Second, 100)
	if _, err := cl.Get(context.Background(), ts.URL, nil); !errors.Is(err, httpclient.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_PostSendsBodyAndHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodPost || string(b) != "a=1" ||
			r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" ||
			r.Header.Get("X-Test") != "yes" {
			w.WriteHeader(400)
			return
		}
		_, _ = w.Write([]byte("done"))
	}))
	defer ts.Close()

	cl := httpclient.New("test", time.Second, 100)
	body, err := cl.Post(context.Background(), ts.URL, "application/x-www-form-urlencoded",
		[]byte("a=1"), http.Header{"X-Test": {"yes"}})
	if err != nil || string(body) != "done" {
		t.Fatalf("post: %q, %v", body, err)
	}
}

type mapCache struct{ m map[string]string }

func (c *mapCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.m[key]
	if ok {
		*(dst.(*string)) = v
	}
	return ok, nil
}
func (c *mapCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.m[key] = v.(string)
	return nil
}
func (c *mapCache) Del(ctx context.Context, key string) error { delete(c.m, key); return nil }

func TestClient_GetUsesCache(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("payload"))
	}))
	defer ts.Close()

	cl := httpclient.New("test", time.Second, 100, httpclient.WithCache(&mapCache{m: map[string]string{}}, time.Minute))
	for i := 0; i < 3; i++ {
		body, err := cl.Get(context.Background(), ts.URL, nil)
		if err != nil || string(body) != "payload" {
			t.Fatalf("get %d: %q, %v", i, body, err)
		}
	}
	if hits != 1 {
		t.Fatalf("expected one upstream call, got %d", hits)
	}
}
