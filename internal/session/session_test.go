package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"zg-client/internal/client"
	"zg-client/internal/domain"
	"zg-client/pkg/jwt"
)

type mockPoster struct {
	reply *domain.AuthResponse
	err   error
	calls int
	last  domain.AuthRequest
}

func (m *mockPoster) PostPublic(ctx context.Context, path string, body, out interface{}) error {
	m.calls++
	m.last = body.(domain.AuthRequest)
	if m.err != nil {
		return m.err
	}
	data, _ := json.Marshal(m.reply)
	return json.Unmarshal(data, out)
}

type mockSink struct {
	profiles []*domain.UserProfile
}

func (m *mockSink) Replace(p *domain.UserProfile) {
	m.profiles = append(m.profiles, p)
}

func TestStore(t *testing.T) {
	s := NewStore()

	if _, ok := s.Get(); ok {
		t.Error("Get() on a new store reported a token")
	}

	s.Set("first")
	s.Set("second")
	if tok, ok := s.Get(); !ok || tok != "second" {
		t.Errorf("Get() = %q, %v, want second, true", tok, ok)
	}

	s.Clear()
	if _, ok := s.Get(); ok {
		t.Error("Get() after Clear() reported a token")
	}
}

func TestStore_ClearIf(t *testing.T) {
	tests := []struct {
		name   string
		held   string
		clear  string
		want   bool
		remain string
	}{
		{name: "same token", held: "t1", clear: "t1", want: true, remain: ""},
		{name: "replaced token", held: "t2", clear: "t1", want: false, remain: "t2"},
		{name: "empty store", held: "", clear: "t1", want: false, remain: ""},
		{name: "empty token", held: "t1", clear: "", want: false, remain: "t1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.Set(tt.held)
			if got := s.ClearIf(tt.clear); got != tt.want {
				t.Errorf("ClearIf(%q) = %v, want %v", tt.clear, got, tt.want)
			}
			if tok, _ := s.Get(); tok != tt.remain {
				t.Errorf("Get() = %q, want %q", tok, tt.remain)
			}
		})
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Set(fmt.Sprintf("tok-%d", i))
			s.Get()
		}(i)
	}
	wg.Wait()

	if _, ok := s.Get(); !ok {
		t.Error("Get() lost the last write")
	}
}

func TestAuthenticator_Authenticate(t *testing.T) {
	adminToken, _ := jwt.GenerateRoleToken("7", "ADMIN", time.Hour, "s")

	tests := []struct {
		name      string
		initData  string
		poster    *mockPoster
		wantErr   error
		wantCalls int
		wantRole  domain.Role
		wantToken string
	}{
		{
			name:     "blank init data",
			initData: "   ",
			poster:   &mockPoster{},
			wantErr:  client.ErrPlatformUnavailable,
		},
		{
			name:      "success with role",
			initData:  "query_id=1&hash=abc",
			poster:    &mockPoster{reply: &domain.AuthResponse{Token: "tok", UserID: 7, Username: "alice", Balance: 500, Role: domain.RoleUser}},
			wantCalls: 1,
			wantRole:  domain.RoleUser,
			wantToken: "tok",
		},
		{
			name:      "role read from token",
			initData:  "query_id=1&hash=abc",
			poster:    &mockPoster{reply: &domain.AuthResponse{Token: adminToken, UserID: 7, Username: "alice"}},
			wantCalls: 1,
			wantRole:  domain.RoleAdmin,
			wantToken: adminToken,
		},
		{
			name:      "server rejected",
			initData:  "query_id=1&hash=bad",
			poster:    &mockPoster{err: &client.APIError{Status: 401, Kind: client.ErrUnauthorized}},
			wantErr:   client.ErrAuthRejected,
			wantCalls: 1,
		},
		{
			name:      "network error",
			initData:  "query_id=1&hash=abc",
			poster:    &mockPoster{err: fmt.Errorf("%w: dial tcp", client.ErrTransport)},
			wantErr:   client.ErrTransport,
			wantCalls: 1,
		},
		{
			name:      "empty token",
			initData:  "query_id=1&hash=abc",
			poster:    &mockPoster{reply: &domain.AuthResponse{UserID: 7}},
			wantErr:   client.ErrAuthRejected,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			store.Set("stale")
			sink := &mockSink{}
			auth := NewAuthenticator(tt.poster, store, sink)

			profile, err := auth.Authenticate(context.Background(), tt.initData)

			if tt.poster.calls != tt.wantCalls {
				t.Errorf("Authenticate() issued %d requests, want %d", tt.poster.calls, tt.wantCalls)
			}

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				if _, ok := store.Get(); ok {
					t.Error("Authenticate() left a token after failure")
				}
				if len(sink.profiles) != 0 {
					t.Error("Authenticate() replaced the profile after failure")
				}
				return
			}

			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if profile.Role != tt.wantRole {
				t.Errorf("Authenticate() role = %v, want %v", profile.Role, tt.wantRole)
			}
			if tok, _ := store.Get(); tok != tt.wantToken {
				t.Errorf("store token = %q, want %q", tok, tt.wantToken)
			}
			if len(sink.profiles) != 1 || sink.profiles[0].ID != 7 {
				t.Errorf("sink got %d profiles", len(sink.profiles))
			}
			if tt.poster.last.InitData != tt.initData {
				t.Errorf("sent initData = %q, want %q", tt.poster.last.InitData, tt.initData)
			}
		})
	}
}

func TestAuthenticator_RejectedKeepsStatus(t *testing.T) {
	poster := &mockPoster{err: &client.APIError{Status: 500, Message: "Invalid Telegram initData", Kind: client.ErrRequestFailed}}
	auth := NewAuthenticator(poster, NewStore(), nil)

	_, err := auth.Authenticate(context.Background(), "x=1")

	if got := client.Message(err); got != "Auth error: 500" {
		t.Errorf("Message() = %q, want Auth error: 500", got)
	}
}
