package connection

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    string
		wantErr bool
	}{
		{"default base URL", Options{Store: newFakeStore("")}, DefaultBaseURL, false},
		{"trailing slash trimmed", Options{BaseURL: "https://fin.example.com/api/", Store: newFakeStore("")}, "https://fin.example.com/api", false},
		{"scheme added", Options{BaseURL: "localhost:5000/api", Store: newFakeStore("")}, "http://localhost:5000/api", false},
		{"unsupported scheme", Options{BaseURL: "ftp://host/api", Store: newFakeStore("")}, "", true},
		{"missing store", Options{BaseURL: DefaultBaseURL}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && c.BaseURL() != tt.want {
				t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), tt.want)
			}
		})
	}
}

func TestNew_DefaultLoginPath(t *testing.T) {
	c, err := New(Options{Store: newFakeStore("")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.LoginPath() != "/login" {
		t.Errorf("LoginPath() = %q, want %q", c.LoginPath(), "/login")
	}
}

func TestAuthenticate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/api/auth" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/api/auth")
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want none on /auth", got)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "ana@example.com" || body["password"] != "s3cret" {
			t.Errorf("body = %v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-123","user":{"name":"Ana"}}`))
	}))
	defer srv.Close()

	store := newFakeStore("old-token")
	c := newTestClient(t, srv, store, nil)

	res, err := c.Authenticate(context.Background(), map[string]string{
		"email":    "ana@example.com",
		"password": "s3cret",
	})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if res.Token() != "tok-123" {
		t.Errorf("Token() = %q, want %q", res.Token(), "tok-123")
	}
	if _, ok := res["user"]; !ok {
		t.Error("result should keep the other body fields")
	}
	if store.sets.Load() != 0 || store.clears.Load() != 0 {
		t.Error("Authenticate must not touch the credential store")
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantAuthErr bool
	}{
		{"message from body", http.StatusUnauthorized, `{"message":"Invalid credentials"}`, "Invalid credentials", true},
		{"server error message", http.StatusInternalServerError, `{"message":"db down"}`, "db down", true},
		{"no message field", http.StatusBadRequest, `{"error":"bad"}`, DefaultAuthMessage, true},
		{"empty message", http.StatusBadRequest, `{"message":""}`, DefaultAuthMessage, true},
		{"non-string message", http.StatusBadRequest, `{"message":42}`, DefaultAuthMessage, true},
		{"array body", http.StatusConflict, `["taken"]`, DefaultAuthMessage, true},
		{"malformed body", http.StatusBadRequest, `<html>oops</html>`, "", false},
		{"malformed success body", http.StatusOK, `not json`, "", false},
		{"empty body", http.StatusUnauthorized, ``, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := newTestClient(t, srv, newFakeStore(""), nil)
			res, err := c.Authenticate(context.Background(), map[string]string{"email": "x"})
			if err == nil {
				t.Fatalf("Authenticate() = %v, want error", res)
			}

			var authErr *AuthenticationError
			isAuth := errors.As(err, &authErr)
			if isAuth != tt.wantAuthErr {
				t.Fatalf("error %v: AuthenticationError = %v, want %v", err, isAuth, tt.wantAuthErr)
			}
			if isAuth {
				if err.Error() != tt.wantMessage {
					t.Errorf("Error() = %q, want %q", err.Error(), tt.wantMessage)
				}
				if authErr.Status != tt.status {
					t.Errorf("Status = %d, want %d", authErr.Status, tt.status)
				}
			}
		})
	}
}

func TestAuthenticate_SuccessNotObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `"tok"`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, newFakeStore(""), nil)
	if _, err := c.Authenticate(context.Background(), struct{}{}); err == nil {
		t.Error("Authenticate() with a non-object body should fail")
	}
}

func TestAuthenticate_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(t, srv, newFakeStore(""), nil)
	srv.Close()

	_, err := c.Authenticate(context.Background(), struct{}{})
	var urlErr interface{ Timeout() bool }
	if !errors.As(err, &urlErr) {
		t.Errorf("Authenticate() error = %v, want transport error", err)
	}
}

func TestRequest_BearerHeader(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"stored token", "tok-abc", "Bearer tok-abc"},
		{"no token", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			var present bool
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
				_, present = r.Header["Authorization"]
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			c := newTestClient(t, srv, newFakeStore(tt.token), nil)
			resp, err := c.Request(context.Background(), "/x", nil)
			if err != nil {
				t.Fatalf("Request() error = %v", err)
			}
			resp.Body.Close()

			if got != tt.want {
				t.Errorf("Authorization = %q, want %q", got, tt.want)
			}
			if tt.want == "" && present {
				t.Error("Authorization header should be absent without a token")
			}
		})
	}
}

func TestRequest_MethodPathBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		if r.URL.Path != "/api/transactions/abc" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/api/transactions/abc")
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"amount":12.5}` {
			t.Errorf("body = %q", body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, newFakeStore("t"), nil)
	resp, err := c.Request(context.Background(), "/transactions/abc", &RequestOptions{
		Method: http.MethodPut,
		Body:   `{"amount":12.5}`,
	})
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	resp.Body.Close()
}

func TestRequest_DefaultMethodIsGET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		if r.ContentLength > 0 {
			t.Errorf("GET without body sent %d bytes", r.ContentLength)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, newFakeStore(""), nil)
	resp, err := c.Request(context.Background(), "/dashboard/summary", &RequestOptions{})
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	resp.Body.Close()
}

func TestRequest_HeaderOverrides(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	c := newTestClient(t, srv, newFakeStore("tok"), nil)
	resp, err := c.Request(context.Background(), "/x", &RequestOptions{
		Header: http.Header{
			"content-type":  {"text/csv"},
			"Authorization": {"Bearer other"},
			"X-Trace":       {"abc"},
		},
	})
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	resp.Body.Close()

	checks := map[string]string{
		"Content-Type":  "text/csv",
		"Authorization": "Bearer other",
		"X-Trace":       "abc",
	}
	for k, want := range checks {
		if v := got.Values(k); len(v) != 1 || v[0] != want {
			t.Errorf("%s = %q, want [%q]", k, v, want)
		}
	}
}

func TestRequest_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"jwt expired"}`)
	}))
	defer srv.Close()

	store := newFakeStore("stale")
	rec := &expiryRecorder{}
	c := newTestClient(t, srv, store, rec)

	resp, err := c.Request(context.Background(), "/x", nil)
	if resp != nil {
		t.Errorf("Request() returned a response on 401: %d", resp.StatusCode)
	}

	var expired *SessionExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("Request() error = %v, want *SessionExpiredError", err)
	}
	if !errors.Is(err, ErrSessionExpired) {
		t.Error("errors.Is(err, ErrSessionExpired) = false")
	}
	if expired.Path != "/x" || expired.LoginPath != DefaultLoginPath {
		t.Errorf("error = %+v", expired)
	}
	if _, ok := store.token(); ok {
		t.Error("token should be cleared after 401")
	}
	if n := rec.calls.Load(); n != 1 {
		t.Errorf("session-expired callback ran %d times, want 1", n)
	}
	if rec.paths[0] != DefaultLoginPath {
		t.Errorf("callback loginPath = %q, want %q", rec.paths[0], DefaultLoginPath)
	}
}

func TestRequest_UnauthorizedWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	rec := &expiryRecorder{}
	c := newTestClient(t, srv, newFakeStore(""), rec)

	if _, err := c.Request(context.Background(), "/x", nil); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Request() error = %v, want session expired", err)
	}
	if rec.calls.Load() != 1 {
		t.Errorf("callback calls = %d, want 1", rec.calls.Load())
	}
}

func TestRequest_NonUnauthorizedPassThrough(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Custom", "kept")
				w.WriteHeader(status)
				io.WriteString(w, `{"raw":true}`)
			}))
			defer srv.Close()

			store := newFakeStore("tok")
			rec := &expiryRecorder{}
			c := newTestClient(t, srv, store, rec)

			resp, err := c.Request(context.Background(), "/x", nil)
			if err != nil {
				t.Fatalf("Request() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != status {
				t.Errorf("status = %d, want %d", resp.StatusCode, status)
			}
			if resp.Header.Get("X-Custom") != "kept" {
				t.Error("response headers were altered")
			}
			body, _ := io.ReadAll(resp.Body)
			if string(body) != `{"raw":true}` {
				t.Errorf("body = %q, want raw body", body)
			}
			if tok, ok := store.token(); !ok || tok != "tok" {
				t.Errorf("token = %q/%v, want untouched", tok, ok)
			}
			if store.sets.Load() != 0 || store.clears.Load() != 0 {
				t.Error("store mutated on non-401 response")
			}
			if rec.calls.Load() != 0 {
				t.Error("session-expired callback ran on non-401 response")
			}
		})
	}
}

func TestRequest_ConcurrentUnauthorized(t *testing.T) {
	release := make(chan struct{})
	var arrived sync.WaitGroup
	arrived.Add(2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived.Done()
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := newFakeStore("tok")
	rec := &expiryRecorder{}
	c := newTestClient(t, srv, store, rec)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := c.Request(context.Background(), "/x", nil)
			if resp != nil {
				resp.Body.Close()
			}
			errs[i] = err
		}(i)
	}
	arrived.Wait()
	close(release)
	wg.Wait()

	for i, err := range errs {
		var expired *SessionExpiredError
		if !errors.As(err, &expired) {
			t.Errorf("call %d error = %v, want *SessionExpiredError", i, err)
		}
		if expired != nil && expired.Err != nil {
			t.Errorf("call %d clear error = %v, want nil", i, expired.Err)
		}
	}
	if _, ok := store.token(); ok {
		t.Error("token should be absent after concurrent 401s")
	}
	if n := rec.calls.Load(); n != 2 {
		t.Errorf("callback calls = %d, want 2", n)
	}
}

func TestRequest_StoreReadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent when the store fails")
	}))
	defer srv.Close()

	store := newFakeStore("")
	store.getErr = errors.New("keyring locked")
	c := newTestClient(t, srv, store, nil)

	if _, err := c.Request(context.Background(), "/x", nil); err == nil || !strings.Contains(err.Error(), "keyring locked") {
		t.Errorf("Request() error = %v, want store error", err)
	}
}

type failingClearStore struct{ *fakeStore }

func (failingClearStore) Clear(string) error { return errors.New("read-only") }

func TestRequest_ClearFailureStillExpires(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	rec := &expiryRecorder{}
	c := newTestClient(t, srv, failingClearStore{newFakeStore("tok")}, rec)

	_, err := c.Request(context.Background(), "/x", nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Request() error = %v, want session expired", err)
	}
	var expired *SessionExpiredError
	errors.As(err, &expired)
	if expired.Err == nil || expired.Err.Error() != "read-only" {
		t.Errorf("Unwrap() = %v, want clear failure", expired.Err)
	}
	if rec.calls.Load() != 1 {
		t.Errorf("callback calls = %d, want 1", rec.calls.Load())
	}
}

func TestRequest_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := newTestClient(t, srv, newFakeStore("tok"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Request(ctx, "/x", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Request() error = %v, want context.Canceled", err)
	}
}
