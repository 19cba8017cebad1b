package fakeapi

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"zg-client/internal/domain"
	"zg-client/pkg/jwt"
	"zg-client/pkg/telegram"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// RuleError is a business rule violation; the handlers answer it with 400
// and its message.
type RuleError struct {
	msg string
}

func (e *RuleError) Error() string {
	return e.msg
}

func rule(msg string) error {
	return &RuleError{msg: msg}
}

// Users
var (
	ErrInvalidInitData  = errors.New("invalid Telegram initData") // 401
	ErrUserNotFound     = rule("user not found")
	ErrReceiverNotFound = rule("receiver not found")
)

// Collectibles
var (
	ErrNFTNotFound       = rule("NFT not found")
	ErrAlreadySold       = rule("NFT already sold")
	ErrInsufficientFunds = rule("insufficient funds")
	ErrNotOwner          = rule("you do not own this NFT")
	ErrOnAuction         = rule("cannot sell an NFT with an active auction, cancel the auction first")
	ErrTransferFee       = rule(fmt.Sprintf("insufficient funds for transfer (%d coins)", domain.TransferFee))
	ErrSelfTransfer      = rule("cannot transfer an NFT to yourself")
	ErrBadImage          = rule("image must be a JPEG, PNG, GIF or WebP file up to 5MB")
	ErrNameRequired      = rule("name is required")
)

// Auctions
var (
	ErrAuctionNotFound = rule("auction not found")
	ErrAuctionInactive = rule("auction is not active")
	ErrOwnAuction      = rule("cannot buy from your own auction")
	ErrAlreadyListed   = rule("NFT is already on auction")
	ErrNotSeller       = rule("only the seller can cancel an auction")
	ErrInvalidPrice    = rule("price must be greater than 0")
)

// Tasks and codes
var (
	ErrTaskNotFound  = rule("task not found")
	ErrTaskCompleted = rule("task already completed")
	ErrCodeNotFound  = rule("code not found or inactive")
	ErrCodeUsed      = rule("you have already used this code")
	ErrCodeExhausted = rule("code exhausted")
	ErrCodeExists    = rule("code already exists")
)

type Options struct {
	BotToken        string
	BotUsername     string
	JWTSecret       string
	TokenExpiration time.Duration
	InitDataMaxAge  time.Duration
	AdminTelegramID int64
	Seed            bool
}

// Service implements the marketplace rules over an in-memory store.
type Service struct {
	opts Options

	mu sync.Mutex
	st *store
}

func NewService(opts Options) *Service {
	if opts.TokenExpiration <= 0 {
		opts.TokenExpiration = 24 * time.Hour
	}
	s := &Service{opts: opts, st: newStore()}
	if opts.Seed {
		s.st.seed()
	}
	return s
}

// Authenticate verifies initData, registers unknown users and issues a
// token. A pending referral is applied once, on registration.
func (s *Service) Authenticate(initData string) (*domain.AuthResponse, error) {
	data, err := telegram.Validate(initData, s.opts.BotToken, s.opts.InitDataMaxAge, time.Now())
	if err != nil {
		log.Printf("[FakeAPI] initData rejected: %v", err)
		return nil, ErrInvalidInitData
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tg := data.User
	var u *user
	if id, ok := s.st.byTelegram[tg.ID]; ok {
		u = s.st.users[id]
		if tg.PhotoURL != "" {
			u.account.AvatarURL = tg.PhotoURL
		}
	} else {
		u = s.register(tg)
	}

	token, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	return &domain.AuthResponse{
		Token:     token,
		UserID:    u.account.ID,
		Username:  u.account.Username,
		Balance:   u.account.Balance,
		AvatarURL: u.account.AvatarURL,
		Role:      u.account.Role,
	}, nil
}

func (s *Service) register(tg telegram.User) *user {
	username := tg.Username
	if username == "" {
		username = "user" + strconv.FormatInt(tg.ID, 10)
	}
	role := domain.RoleUser
	if s.opts.AdminTelegramID != 0 && tg.ID == s.opts.AdminTelegramID {
		role = domain.RoleAdmin
	}
	u := s.st.addUser(tg.ID, username, tg.PhotoURL, role)

	if refTG, ok := s.st.pendingReferrals[tg.ID]; ok {
		delete(s.st.pendingReferrals, tg.ID)
		if refID, ok := s.st.byTelegram[refTG]; ok && refID != u.account.ID {
			ref := s.st.users[refID]
			ref.account.Balance += domain.ReferralBonus
			ref.account.ReferralCount++
			u.referredBy = refID
			log.Printf("[FakeAPI] user %d referred by %d", u.account.ID, refID)
		}
	}

	log.Printf("[FakeAPI] registered user %d (%s, %s)", u.account.ID, u.account.Username, u.account.Role)
	return u
}

func (s *Service) issue(u *user) (string, error) {
	token, err := jwt.GenerateRoleToken(strconv.FormatInt(u.account.ID, 10), string(u.account.Role), s.opts.TokenExpiration, s.opts.JWTSecret)
	if err != nil {
		return "", err
	}
	claims, err := jwt.ParseUnverified(token)
	if err != nil {
		return "", err
	}
	s.st.issued[claims.ID] = u.account.ID
	return token, nil
}

func (s *Service) IsRevoked(claims *jwt.Claims) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.revoked[claims.ID]
}

func (s *Service) RevokeTokens(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, id := range s.st.issued {
		if id == userID {
			s.st.revoked[jti] = true
		}
	}
}

func (s *Service) TrackReferral(newTelegramID, referrerTelegramID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.pendingReferrals[newTelegramID] = referrerTelegramID
}

func (s *Service) Me(userID int64) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	acc := s.st.accountOf(u)
	return &acc, nil
}

func (s *Service) user(id int64) (*user, error) {
	u, ok := s.st.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *Service) ownedNFT(u *user, nftID int64) (*domain.Collectible, error) {
	n, ok := s.st.nfts[nftID]
	if !ok {
		return nil, ErrNFTNotFound
	}
	if !n.OwnedBy(u.account.ID) {
		return nil, ErrNotOwner
	}
	return n, nil
}

// Collectibles

func (s *Service) ShopNFTs() []domain.Collectible {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Collectible{}
	for _, id := range sortedKeys(s.st.nfts) {
		if n := s.st.nfts[id]; n.OwnerID == nil {
			out = append(out, *n.Clone())
		}
	}
	return out
}

// MyNFTs lists what the user owns minus anything listed on an auction.
func (s *Service) MyNFTs(userID int64) []domain.Collectible {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Collectible{}
	for _, id := range sortedKeys(s.st.nfts) {
		n := s.st.nfts[id]
		if !n.OwnedBy(userID) {
			continue
		}
		if _, listed := s.st.activeAuctionFor(id); listed {
			continue
		}
		out = append(out, *n.Clone())
	}
	return out
}

func (s *Service) BuyNFT(userID, nftID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.user(userID)
	if err != nil {
		return 0, err
	}
	n, ok := s.st.nfts[nftID]
	if !ok {
		return 0, ErrNFTNotFound
	}
	if n.OwnerID != nil {
		return 0, ErrAlreadySold
	}
	if u.account.Balance < n.Price {
		return 0, ErrInsufficientFunds
	}

	u.account.Balance -= n.Price
	s.st.setOwner(n, userID)
	return u.account.Balance, nil
}

func (s *Service) PinNFT(userID, nftID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.user(userID)
	if err != nil {
		return err
	}
	if _, err := s.ownedNFT(u, nftID); err != nil {
		return err
	}
	u.pinned = nftID
	return nil
}

// SellNFT destroys the collectible and refunds part of its price.
func (s *Service) SellNFT(userID, nftID int64) (refund, balance int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.user(userID)
	if err != nil {
		return 0, 0, err
	}
	n, err := s.ownedNFT(u, nftID)
	if err != nil {
		return 0, 0, err
	}
	if _, listed := s.st.activeAuctionFor(nftID); listed {
		return 0, 0, ErrOnAuction
	}

	refund = n.Price * domain.SaleRefundPercent / 100
	u.account.Balance += refund
	s.st.unpin(nftID)
	delete(s.st.nfts, nftID)
	return refund, u.account.Balance, nil
}

func (s *Service) TransferNFT(userID, nftID int64, receiverName string) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.user(userID)
	if err != nil {
		return "", 0, err
	}
	receiver, ok := s.st.userByName(strings.TrimPrefix(receiverName, "@"))
	if !ok {
		return "", 0, ErrReceiverNotFound
	}
	n, err := s.ownedNFT(sender, nftID)
	if err != nil {
		return "", 0, err
	}
	if sender.account.Balance < domain.TransferFee {
		return "", 0, ErrTransferFee
	}
	if receiver.account.ID == sender.account.ID {
		return "", 0, ErrSelfTransfer
	}

	sender.account.Balance -= domain.TransferFee
	if sender.pinned == nftID {
		sender.pinned = 0
	}
	s.st.setOwner(n, receiver.account.ID)
	return receiver.account.Username, sender.account.Balance, nil
}

// Auctions

func (s *Service) CreateAuction(userID, nftID, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.user(userID)
	if err != nil {
		return err
	}
	if _, err := s.ownedNFT(u, nftID); err != nil {
		return err
	}
	if price <= 0 {
		return ErrInvalidPrice
	}
	if _, listed := s.st.activeAuctionFor(nftID); listed {
		return ErrAlreadyListed
	}

	a := &auction{
		id:        s.st.nextID(),
		nftID:     nftID,
		sellerID:  userID,
		price:     price,
		createdAt: time.Now(),
		active:    true,
	}
	s.st.auctions[a.id] = a
	return nil
}

func (s *Service) Auctions(sellerID int64) []domain.Auction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Auction{}
	for _, id := range sortedKeys(s.st.auctions) {
		a := s.st.auctions[id]
		if !a.active || (sellerID != 0 && a.sellerID != sellerID) {
			continue
		}
		out = append(out, s.st.auctionOf(a))
	}
	return out
}

func (s *Service) BuyAuction(userID, auctionID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buyer, err := s.user(userID)
	if err != nil {
		return 0, err
	}
	a, ok := s.st.auctions[auctionID]
	if !ok {
		return 0, ErrAuctionNotFound
	}
	if !a.active {
		return 0, ErrAuctionInactive
	}
	if a.sellerID == userID {
		return 0, ErrOwnAuction
	}
	if buyer.account.Balance < a.price {
		return 0, ErrInsufficientFunds
	}
	n, ok := s.st.nfts[a.nftID]
	if !ok {
		return 0, ErrNFTNotFound
	}

	buyer.account.Balance -= a.price
	if seller, ok := s.st.users[a.sellerID]; ok {
		seller.account.Balance += a.price
	}
	s.st.unpin(n.ID)
	s.st.setOwner(n, userID)
	a.active = false
	return buyer.account.Balance, nil
}

func (s *Service) CancelAuction(userID, auctionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.st.auctions[auctionID]
	if !ok {
		return ErrAuctionNotFound
	}
	if a.sellerID != userID {
		return ErrNotSeller
	}
	if !a.active {
		return ErrAuctionInactive
	}
	a.active = false
	return nil
}

// Tasks, codes, stats

func (s *Service) Tasks(userID int64) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.st.users[userID]
	out := []domain.Task{}
	for _, id := range sortedKeys(s.st.tasks) {
		t := *s.st.tasks[id]
		if !t.Active {
			continue
		}
		t.Completed = u != nil && u.tasks[id]
		out = append(out, t)
	}
	return out
}

func (s *Service) CompleteTask(userID, taskID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.user(userID)
	if err != nil {
		return 0, err
	}
	t, ok := s.st.tasks[taskID]
	if !ok || !t.Active {
		return 0, ErrTaskNotFound
	}
	if u.tasks[taskID] {
		return 0, ErrTaskCompleted
	}
	u.tasks[taskID] = true
	u.account.Balance += t.Reward
	return t.Reward, nil
}

func (s *Service) RedeemCode(userID int64, code string) (reward, balance int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.user(userID)
	if err != nil {
		return 0, 0, err
	}

	var c *domain.Code
	for _, x := range s.st.codes {
		if x.Active && x.Code == code {
			c = x
			break
		}
	}
	if c == nil {
		return 0, 0, ErrCodeNotFound
	}
	if u.codes[c.ID] {
		return 0, 0, ErrCodeUsed
	}
	if c.Exhausted() {
		return 0, 0, ErrCodeExhausted
	}

	c.CurrentUses++
	u.codes[c.ID] = true
	u.account.Balance += c.Reward
	return c.Reward, u.account.Balance, nil
}

func (s *Service) Stats(userID int64) (*domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	return &domain.UserStats{TasksCompleted: len(u.tasks), CodesActivated: len(u.codes)}, nil
}

// Leaderboard and referrals

func (s *Service) Leaderboard() []domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Account, 0, len(s.st.users))
	for _, id := range sortedKeys(s.st.users) {
		out = append(out, s.st.accountOf(s.st.users[id]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Balance > out[j].Balance })
	return out
}

func (s *Service) UserDetails(userID int64) (*domain.UserDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	out := &domain.UserDetails{User: s.st.accountOf(u), NFTs: []domain.Collectible{}}
	for _, id := range sortedKeys(s.st.nfts) {
		if n := s.st.nfts[id]; n.OwnedBy(userID) {
			out.NFTs = append(out.NFTs, *n.Clone())
		}
	}
	return out, nil
}

func (s *Service) ReferralLink(userID int64) (*domain.ReferralLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	return &domain.ReferralLink{
		Link:  fmt.Sprintf("https://t.me/%s?start=%d", s.opts.BotUsername, u.account.TelegramID),
		Count: u.account.ReferralCount,
	}, nil
}

func (s *Service) Referrals(userID int64) ([]domain.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.user(userID); err != nil {
		return nil, err
	}
	out := []domain.Referral{}
	for _, id := range sortedKeys(s.st.users) {
		u := s.st.users[id]
		if u.referredBy == userID {
			out = append(out, domain.Referral{Username: u.account.Username, AvatarURL: u.account.AvatarURL, Balance: u.account.Balance})
		}
	}
	return out, nil
}

// Admin

func (s *Service) SetBalance(username string, balance int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.userByName(username)
	if !ok {
		return 0, ErrUserNotFound
	}
	u.account.Balance = balance
	return balance, nil
}

func (s *Service) SetRole(userID int64, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.user(userID)
	if err != nil {
		return err
	}
	u.account.Role = role
	return nil
}

func (s *Service) AllNFTs() []domain.Collectible {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Collectible{}
	for _, id := range sortedKeys(s.st.nfts) {
		out = append(out, *s.st.nfts[id].Clone())
	}
	return out
}

// CreateNFT stores the image once and mints amount identical collectibles.
func (s *Service) CreateNFT(n domain.Collectible, amount int, img []byte) ([]domain.Collectible, error) {
	if len(img) == 0 || len(img) > domain.MaxImageSize {
		return nil, ErrBadImage
	}
	mt := mimetype.Detect(img)
	if !mimetype.EqualsAny(mt.String(), domain.AllowedImageTypes...) {
		return nil, ErrBadImage
	}
	if strings.TrimSpace(n.Name) == "" {
		return nil, ErrNameRequired
	}
	if n.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	if amount <= 0 {
		amount = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := uuid.New().String() + mt.Extension()
	s.st.images[name] = image{contentType: mt.String(), data: img}
	n.ImageURL = "/api/uploads/" + name

	out := make([]domain.Collectible, 0, amount)
	for i := 0; i < amount; i++ {
		out = append(out, *s.st.addNFT(n))
	}
	return out, nil
}

func (s *Service) AddNFT(name string, price int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.addNFT(domain.Collectible{Name: name, Description: name, Price: price}).ID
}

func (s *Service) DeleteNFT(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.st.nfts[id]
	if !ok {
		return ErrNFTNotFound
	}
	s.st.unpin(id)
	for aid, a := range s.st.auctions {
		if a.nftID == id {
			delete(s.st.auctions, aid)
		}
	}
	if name, ok := strings.CutPrefix(n.ImageURL, "/api/uploads/"); ok {
		shared := false
		for _, other := range s.st.nfts {
			if other.ID != id && other.ImageURL == n.ImageURL {
				shared = true
				break
			}
		}
		if !shared {
			delete(s.st.images, name)
		}
	}
	delete(s.st.nfts, id)
	return nil
}

func (s *Service) Image(name string) (string, []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.st.images[name]
	return img.contentType, img.data, ok
}

func (s *Service) AllCodes() []domain.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Code{}
	for _, id := range sortedKeys(s.st.codes) {
		out = append(out, *s.st.codes[id])
	}
	return out
}

func (s *Service) CreateCode(req domain.CodeCreateRequest) (*domain.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = "CODE" + strings.ToUpper(uuid.New().String()[:8])
	}
	for _, c := range s.st.codes {
		if c.Code == code {
			return nil, ErrCodeExists
		}
	}

	now := domain.LocalTime{Time: time.Now()}
	c := &domain.Code{
		ID:        s.st.nextID(),
		Code:      code,
		Reward:    req.Reward,
		MaxUses:   req.MaxUses,
		Active:    true,
		CreatedAt: &now,
	}
	s.st.codes[c.ID] = c
	out := *c
	return &out, nil
}

func (s *Service) DeleteCode(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.codes[id]; !ok {
		return ErrCodeNotFound
	}
	delete(s.st.codes, id)
	for _, u := range s.st.users {
		delete(u.codes, id)
	}
	return nil
}

func (s *Service) AllTasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Task{}
	for _, id := range sortedKeys(s.st.tasks) {
		out = append(out, *s.st.tasks[id])
	}
	return out
}

func (s *Service) CreateTask(req domain.TaskCreateRequest) *domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := domain.LocalTime{Time: time.Now()}
	t := &domain.Task{
		ID:          s.st.nextID(),
		Title:       req.Title,
		Description: req.Description,
		Link:        req.Link,
		Reward:      req.Reward,
		Active:      true,
		CreatedAt:   &now,
	}
	s.st.tasks[t.ID] = t
	out := *t
	return &out
}

func (s *Service) DeleteTask(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(s.st.tasks, id)
	for _, u := range s.st.users {
		delete(u.tasks, id)
	}
	return nil
}
