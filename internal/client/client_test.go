package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type staticCreds struct {
	token string
}

func (s staticCreds) Get() (string, bool) {
	return s.token, s.token != ""
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Get(t *testing.T) {
	var gotAuth, gotRequestID string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{"status":"ok","nfts":[{"id":1,"name":"Wave","price":300}]}`))
	})

	c := New(srv.URL, time.Second, staticCreds{token: "tok"})

	var out struct {
		NFTs []struct {
			ID    int64 `json:"id"`
			Price int64 `json:"price"`
		} `json:"nfts"`
	}
	if err := c.Get(context.Background(), "/nft/all", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header missing")
	}
	if len(out.NFTs) != 1 || out.NFTs[0].Price != 300 {
		t.Errorf("Get() decoded = %+v", out)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantHook int32
		wantMsg  string
	}{
		{name: "unauthorized", status: 401, body: ``, wantErr: ErrUnauthorized, wantHook: 1},
		{name: "forbidden", status: 403, body: `{"status":"error","error":"admins only"}`, wantErr: ErrForbidden, wantMsg: "no admin rights"},
		{name: "bad request", status: 400, body: `{"status":"error","error":"NFT already owned"}`, wantErr: ErrRequestFailed, wantMsg: "NFT already owned"},
		{name: "ok status missing", status: 200, body: `{"error":"nope"}`, wantErr: ErrRequestFailed, wantMsg: "nope"},
		{name: "malformed", status: 200, body: `<html>`, wantErr: ErrRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			var hooks atomic.Int32
			c := New(srv.URL, time.Second, staticCreds{token: "tok"})
			c.OnUnauthorized(func(token string) {
				if token != "tok" {
					t.Errorf("hook token = %q, want tok", token)
				}
				hooks.Add(1)
			})

			err := c.Post(context.Background(), "/nft/buy", map[string]int{"nftId": 1}, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Post() error = %v, want %v", err, tt.wantErr)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
				t.Errorf("Post() error is not an APIError with status %d: %v", tt.status, err)
			}
			if hooks.Load() != tt.wantHook {
				t.Errorf("unauthorized hook calls = %d, want %d", hooks.Load(), tt.wantHook)
			}
			if tt.wantMsg != "" && Message(err) != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", Message(err), tt.wantMsg)
			}
		})
	}
}

func TestClient_PublicUnauthorizedSkipsHook(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("public call carried an Authorization header")
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	var hooks atomic.Int32
	c := New(srv.URL, time.Second, staticCreds{token: "tok"})
	c.OnUnauthorized(func(string) { hooks.Add(1) })

	err := c.PostPublic(context.Background(), "/auth/telegram", map[string]string{"initData": "x"}, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("PostPublic() error = %v, want ErrUnauthorized", err)
	}
	if hooks.Load() != 0 {
		t.Errorf("unauthorized hook fired %d times for a public call", hooks.Load())
	}
}

func TestClient_NoCredential(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	c := New(srv.URL, time.Second, staticCreds{})
	if err := c.Get(context.Background(), "/auth/me", nil); !errors.Is(err, ErrNoCredential) {
		t.Errorf("Get() error = %v, want ErrNoCredential", err)
	}
	if hits.Load() != 0 {
		t.Errorf("server hits = %d, want 0", hits.Load())
	}
}

func TestClient_TimeoutAndCancel(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	c := New(srv.URL, 50*time.Millisecond, staticCreds{token: "tok"})
	if err := c.Get(context.Background(), "/slow", nil); !errors.Is(err, ErrTimeout) {
		t.Errorf("Get() error = %v, want ErrTimeout", err)
	}

	c = New(srv.URL, time.Minute, staticCreds{token: "tok"})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	if err := c.Get(ctx, "/slow", nil); !errors.Is(err, ErrCanceled) {
		t.Errorf("Get() error = %v, want ErrCanceled", err)
	}
}

func TestClient_Transport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, staticCreds{token: "tok"})
	err := c.Get(context.Background(), "/nft/all", nil)
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Get() error = %v, want ErrTransport", err)
	}
	if Message(err) != "Cannot connect to server" {
		t.Errorf("Message() = %q", Message(err))
	}
}

func TestClient_DeleteSendsBody(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodDelete || string(body) != `{"id":4}` {
			t.Errorf("got %s %s", r.Method, body)
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	c := New(srv.URL, time.Second, staticCreds{token: "tok"})
	if err := c.Delete(context.Background(), "/admin/code/delete", map[string]int{"id": 4}, nil); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestClient_PostMultipart(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		if r.FormValue("name") != "Wave" || r.FormValue("price") != "300" {
			t.Errorf("fields = %v", r.MultipartForm.Value)
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "wave.png" || string(data) != "png-bytes" {
			t.Errorf("file = %s %q", hdr.Filename, data)
		}
		if !strings.HasPrefix(hdr.Header.Get("Content-Type"), "image/png") {
			t.Errorf("file content type = %q", hdr.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	c := New(srv.URL, time.Second, staticCreds{token: "tok"})
	err := c.PostMultipart(context.Background(), "/admin/nft/create",
		map[string]string{"name": "Wave", "price": "300"},
		&FilePart{Field: "image", FileName: "wave.png", ContentType: "image/png", Data: []byte("png-bytes")},
		nil)
	if err != nil {
		t.Errorf("PostMultipart() error = %v", err)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrPlatformUnavailable, "Telegram data unavailable. The app must run in Telegram"},
		{&APIError{Status: 500, Kind: ErrAuthRejected}, "Auth error: 500"},
		{ErrInsufficientFunds, "insufficient funds"},
		{Invalid("code", "enter a code"), "enter a code"},
	}

	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}

	if !errors.Is(Invalid("code", "x"), ErrValidation) {
		t.Error("Invalid() does not match ErrValidation")
	}
}
