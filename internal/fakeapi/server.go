// Package fakeapi is an in-memory implementation of the marketplace HTTP
// API. It backs the client's tests and can run standalone for development.
package fakeapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"zg-client/internal/config"
	"zg-client/internal/domain"
	"zg-client/internal/middleware"
	"zg-client/pkg/response"
	"zg-client/pkg/telegram"

	"github.com/gorilla/mux"
)

const prefix = "/api"

type Server struct {
	*Service
	router   *mux.Router
	botToken string

	hitsMu sync.Mutex
	hits   map[string]int
}

func NewServer(cfg config.FakeAPIConfig, cors config.CORSConfig) *Server {
	svc := NewService(Options{
		BotToken:        cfg.BotToken,
		BotUsername:     cfg.BotUsername,
		JWTSecret:       cfg.JWTSecret,
		TokenExpiration: cfg.TokenExpiration,
		InitDataMaxAge:  cfg.InitDataMaxAge,
		AdminTelegramID: cfg.AdminTelegramID,
		Seed:            cfg.SeedCatalog,
	})

	s := &Server{
		Service:  svc,
		botToken: cfg.BotToken,
		hits:     make(map[string]int),
	}
	s.router = s.routes(cfg.JWTSecret, cors)
	return s
}

func (s *Server) routes(secret string, cors config.CORSConfig) *mux.Router {
	h := NewHandler(s.Service)

	r := mux.NewRouter()
	r.Use(s.count)
	r.Use(middleware.LoggerMiddleware())
	if cors.AllowedOrigins != "" {
		r.Use(middleware.CORSMiddleware(cors.AllowedOrigins, cors.AllowedMethods, cors.AllowedHeaders))
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, response.Fields{"status": "healthy", "service": "zg-fakeapi"})
	}).Methods("GET")

	api := r.PathPrefix(prefix).Subrouter()
	api.HandleFunc("/auth/telegram", h.AuthTelegram).Methods("POST", "OPTIONS")
	api.HandleFunc("/uploads/{name}", h.Image).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(secret, s.Service))

	protected.HandleFunc("/auth/me", h.Me).Methods("GET", "OPTIONS")

	protected.HandleFunc("/nft/all", h.ListNFTs).Methods("GET", "OPTIONS")
	protected.HandleFunc("/nft/my", h.MyNFTs).Methods("GET", "OPTIONS")
	protected.HandleFunc("/nft/buy", h.BuyNFT).Methods("POST", "OPTIONS")
	protected.HandleFunc("/nft/pin", h.PinNFT).Methods("POST", "OPTIONS")
	protected.HandleFunc("/nft/sell", h.SellNFT).Methods("POST", "OPTIONS")
	protected.HandleFunc("/nft/transfer", h.TransferNFT).Methods("POST", "OPTIONS")

	protected.HandleFunc("/auction/all", h.ListAuctions).Methods("GET", "OPTIONS")
	protected.HandleFunc("/auction/my", h.MyAuctions).Methods("GET", "OPTIONS")
	protected.HandleFunc("/auction/create", h.CreateAuction).Methods("POST", "OPTIONS")
	protected.HandleFunc("/auction/buy", h.BuyAuction).Methods("POST", "OPTIONS")
	protected.HandleFunc("/auction/cancel", h.CancelAuction).Methods("POST", "OPTIONS")

	protected.HandleFunc("/task/all", h.ListTasks).Methods("GET", "OPTIONS")
	protected.HandleFunc("/task/complete", h.CompleteTask).Methods("POST", "OPTIONS")
	protected.HandleFunc("/code/redeem", h.RedeemCode).Methods("POST", "OPTIONS")
	protected.HandleFunc("/user/stats", h.Stats).Methods("GET", "OPTIONS")
	protected.HandleFunc("/referral/link", h.ReferralLink).Methods("GET", "OPTIONS")
	protected.HandleFunc("/referral/list", h.Referrals).Methods("GET", "OPTIONS")
	protected.HandleFunc("/leaderboard/users", h.Leaderboard).Methods("GET", "OPTIONS")
	protected.HandleFunc("/leaderboard/user/{id:[0-9]+}", h.UserDetails).Methods("GET", "OPTIONS")

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminMiddleware())

	admin.HandleFunc("/user/balance", h.AdminBalance).Methods("POST", "OPTIONS")
	admin.HandleFunc("/nft/all", h.AdminNFTs).Methods("GET", "OPTIONS")
	admin.HandleFunc("/nft/create", h.AdminCreateNFT).Methods("POST", "OPTIONS")
	admin.HandleFunc("/nft/delete", h.AdminDeleteNFT).Methods("DELETE", "OPTIONS")
	admin.HandleFunc("/code/all", h.AdminCodes).Methods("GET", "OPTIONS")
	admin.HandleFunc("/code/create", h.AdminCreateCode).Methods("POST", "OPTIONS")
	admin.HandleFunc("/code/delete", h.AdminDeleteCode).Methods("DELETE", "OPTIONS")
	admin.HandleFunc("/task/all", h.AdminTasks).Methods("GET", "OPTIONS")
	admin.HandleFunc("/task/create", h.AdminCreateTask).Methods("POST", "OPTIONS")
	admin.HandleFunc("/task/delete", h.AdminDeleteTask).Methods("DELETE", "OPTIONS")

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hitsMu.Lock()
		s.hits[r.Method+" "+strings.TrimPrefix(r.URL.Path, prefix)]++
		s.hitsMu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Hits reports how many requests reached method and path, the path given
// relative to /api.
func (s *Server) Hits(method, path string) int {
	s.hitsMu.Lock()
	defer s.hitsMu.Unlock()
	return s.hits[method+" "+path]
}

// InitData signs a Telegram initData string this server accepts.
func (s *Server) InitData(u telegram.User) (string, error) {
	return telegram.Sign(u, "", time.Now(), s.botToken)
}

// Register signs in a Telegram user once, creating the account, and sets
// its balance. It returns the account id.
func (s *Server) Register(telegramID int64, username string, balance int64) (int64, error) {
	raw, err := s.InitData(telegram.User{ID: telegramID, Username: username})
	if err != nil {
		return 0, err
	}
	resp, err := s.Authenticate(raw)
	if err != nil {
		return 0, err
	}
	if _, err := s.SetBalance(username, balance); err != nil {
		return 0, err
	}
	return resp.UserID, nil
}

func (s *Server) MakeAdmin(userID int64) error {
	return s.SetRole(userID, domain.RoleAdmin)
}
