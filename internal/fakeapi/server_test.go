package fakeapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"zg-client/internal/config"
	"zg-client/pkg/telegram"
)

func newTestServer(t *testing.T, cors config.CORSConfig) *Server {
	t.Helper()
	return NewServer(config.FakeAPIConfig{
		BotToken:        testBotToken,
		BotUsername:     "zg_test_bot",
		JWTSecret:       "test-secret",
		TokenExpiration: time.Hour,
		SeedCatalog:     true,
	}, cors)
}

func serve(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *Server, telegramID int64, username string) (string, int64) {
	t.Helper()
	raw, err := s.InitData(telegram.User{ID: telegramID, Username: username})
	if err != nil {
		t.Fatalf("InitData() error = %v", err)
	}
	rec := serve(t, s, "POST", "/api/auth/telegram", "", map[string]string{"initData": raw})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /auth/telegram status = %d, body %s", rec.Code, rec.Body)
	}
	var out struct {
		Token  string `json:"token"`
		UserID int64  `json:"userId"`
	}
	json.NewDecoder(rec.Body).Decode(&out)
	return out.Token, out.UserID
}

func TestServer_Auth(t *testing.T) {
	s := newTestServer(t, config.CORSConfig{})

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       interface{}
		wantStatus int
	}{
		{name: "health", method: "GET", path: "/health", wantStatus: http.StatusOK},
		{name: "bad initData", method: "POST", path: "/api/auth/telegram", body: map[string]string{"initData": "user=%7B%7D&hash=00"}, wantStatus: http.StatusUnauthorized},
		{name: "no token", method: "GET", path: "/api/auth/me", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", method: "GET", path: "/api/nft/all", token: "not-a-jwt", wantStatus: http.StatusUnauthorized},
		{name: "unknown route", method: "GET", path: "/api/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, s, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestServer_ShopFlow(t *testing.T) {
	s := newTestServer(t, config.CORSConfig{})
	token, _ := login(t, s, 1, "alice")
	if _, err := s.SetBalance("alice", 1000); err != nil {
		t.Fatalf("SetBalance() error = %v", err)
	}

	rec := serve(t, s, "GET", "/api/nft/all", token, nil)
	var list struct {
		Status string `json:"status"`
		NFTs   []struct {
			ID    int64 `json:"id"`
			Price int64 `json:"price"`
		} `json:"nfts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Status != "ok" || len(list.NFTs) != 4 {
		t.Fatalf("GET /nft/all = %+v", list)
	}

	rec = serve(t, s, "POST", "/api/nft/buy", token, map[string]int64{"nftId": list.NFTs[0].ID})
	var bought struct {
		NewBalance int64 `json:"newBalance"`
	}
	json.NewDecoder(rec.Body).Decode(&bought)
	if rec.Code != http.StatusOK || bought.NewBalance != 1000-list.NFTs[0].Price {
		t.Errorf("POST /nft/buy = %d, %+v", rec.Code, bought)
	}

	rec = serve(t, s, "POST", "/api/nft/buy", token, map[string]int64{"nftId": list.NFTs[0].ID})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "NFT already sold") {
		t.Errorf("second buy = %d %s", rec.Code, rec.Body)
	}

	rec = serve(t, s, "POST", "/api/nft/buy", token, map[string]int64{"nftId": 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("buy with zero id status = %d, want 400", rec.Code)
	}

	if n := s.Hits("POST", "/nft/buy"); n != 3 {
		t.Errorf("Hits(POST /nft/buy) = %d, want 3", n)
	}
}

func TestServer_RevokedToken(t *testing.T) {
	s := newTestServer(t, config.CORSConfig{})
	token, id := login(t, s, 1, "alice")

	if rec := serve(t, s, "GET", "/api/auth/me", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("GET /auth/me status = %d", rec.Code)
	}

	s.RevokeTokens(id)

	if rec := serve(t, s, "GET", "/api/auth/me", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /auth/me after revoke status = %d, want 401", rec.Code)
	}
}

func TestServer_Admin(t *testing.T) {
	s := newTestServer(t, config.CORSConfig{})
	userToken, aliceID := login(t, s, 1, "alice")

	rec := serve(t, s, "GET", "/api/admin/code/all", userToken, nil)
	if rec.Code != http.StatusForbidden || !strings.Contains(rec.Body.String(), "no admin rights") {
		t.Fatalf("GET /admin/code/all as user = %d %s", rec.Code, rec.Body)
	}

	id, err := s.Register(2, "boss", 0)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.MakeAdmin(id); err != nil {
		t.Fatalf("MakeAdmin() error = %v", err)
	}
	adminToken, _ := login(t, s, 2, "boss")

	rec = serve(t, s, "POST", "/api/admin/user/balance", adminToken, map[string]interface{}{"username": "alice", "newBalance": 4242})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /admin/user/balance status = %d %s", rec.Code, rec.Body)
	}
	if acc, _ := s.Me(aliceID); acc == nil || acc.Balance != 4242 {
		t.Errorf("alice = %+v, want balance 4242", acc)
	}

	rec = serve(t, s, "POST", "/api/admin/code/create", adminToken, map[string]interface{}{"code": "SPRING", "reward": 10, "maxUses": 5})
	var created struct {
		Code struct {
			Code string `json:"code"`
		} `json:"code"`
	}
	json.NewDecoder(rec.Body).Decode(&created)
	if rec.Code != http.StatusOK || created.Code.Code != "SPRING" {
		t.Errorf("POST /admin/code/create = %d %+v", rec.Code, created)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("name", "Comet")
	mw.WriteField("price", "250")
	mw.WriteField("amount", "2")
	part, _ := mw.CreateFormFile("image", "comet.png")
	part.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/admin/nft/create", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var minted struct {
		NFTs []struct {
			ImageURL string `json:"imageURL"`
		} `json:"nfts"`
	}
	json.NewDecoder(rec.Body).Decode(&minted)
	if rec.Code != http.StatusOK || len(minted.NFTs) != 2 {
		t.Fatalf("POST /admin/nft/create = %d %+v", rec.Code, minted)
	}

	img := serve(t, s, "GET", minted.NFTs[0].ImageURL, "", nil)
	if img.Code != http.StatusOK || img.Header().Get("Content-Type") != "image/png" {
		t.Errorf("GET %s = %d %q", minted.NFTs[0].ImageURL, img.Code, img.Header().Get("Content-Type"))
	}
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t, config.CORSConfig{
		AllowedOrigins: "https://app.example.com",
		AllowedMethods: "GET,POST,DELETE,OPTIONS",
		AllowedHeaders: "Content-Type,Authorization",
	})

	req := httptest.NewRequest("OPTIONS", "/api/nft/all", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
