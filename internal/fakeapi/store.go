package fakeapi

import (
	"sort"
	"time"

	"zg-client/internal/domain"
)

type user struct {
	account    domain.Account
	pinned     int64
	referredBy int64
	tasks      map[int64]bool
	codes      map[int64]bool
}

type auction struct {
	id        int64
	nftID     int64
	sellerID  int64
	price     int64
	createdAt time.Time
	active    bool
}

type image struct {
	contentType string
	data        []byte
}

// store is the in-memory state of the API. It does no locking of its own;
// Service holds the lock around every rule.
type store struct {
	users      map[int64]*user
	byTelegram map[int64]int64
	nfts       map[int64]*domain.Collectible
	auctions   map[int64]*auction
	tasks      map[int64]*domain.Task
	codes      map[int64]*domain.Code
	images     map[string]image

	// telegram id of a not yet registered user -> referrer telegram id
	pendingReferrals map[int64]int64

	// jti -> user id
	issued  map[string]int64
	revoked map[string]bool

	seq int64
}

func newStore() *store {
	return &store{
		users:            make(map[int64]*user),
		byTelegram:       make(map[int64]int64),
		nfts:             make(map[int64]*domain.Collectible),
		auctions:         make(map[int64]*auction),
		tasks:            make(map[int64]*domain.Task),
		codes:            make(map[int64]*domain.Code),
		images:           make(map[string]image),
		pendingReferrals: make(map[int64]int64),
		issued:           make(map[string]int64),
		revoked:          make(map[string]bool),
	}
}

func (s *store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *store) addUser(telegramID int64, username, avatarURL string, role domain.Role) *user {
	u := &user{
		account: domain.Account{
			ID:         s.nextID(),
			TelegramID: telegramID,
			Username:   username,
			AvatarURL:  avatarURL,
			Role:       role,
		},
		tasks: make(map[int64]bool),
		codes: make(map[int64]bool),
	}
	s.users[u.account.ID] = u
	s.byTelegram[telegramID] = u.account.ID
	return u
}

func (s *store) userByName(username string) (*user, bool) {
	for _, u := range s.users {
		if u.account.Username == username {
			return u, true
		}
	}
	return nil, false
}

func (s *store) addNFT(n domain.Collectible) *domain.Collectible {
	n.ID = s.nextID()
	n.OwnerID = nil
	n.IsOwned = false
	s.nfts[n.ID] = &n
	return &n
}

func (s *store) setOwner(n *domain.Collectible, userID int64) {
	id := userID
	n.OwnerID = &id
	n.IsOwned = true
}

func (s *store) activeAuctionFor(nftID int64) (*auction, bool) {
	for _, a := range s.auctions {
		if a.active && a.nftID == nftID {
			return a, true
		}
	}
	return nil, false
}

func (s *store) unpin(nftID int64) {
	for _, u := range s.users {
		if u.pinned == nftID {
			u.pinned = 0
		}
	}
}

func (s *store) accountOf(u *user) domain.Account {
	acc := u.account
	acc.PinnedNFT = nil
	if n, ok := s.nfts[u.pinned]; ok && u.pinned != 0 {
		acc.PinnedNFT = n.Clone()
	}
	return acc
}

func (s *store) auctionOf(a *auction) domain.Auction {
	out := domain.Auction{
		ID:        a.id,
		Price:     a.price,
		CreatedAt: domain.LocalTime{Time: a.createdAt},
		Active:    a.active,
	}
	if n, ok := s.nfts[a.nftID]; ok {
		out.NFT = *n.Clone()
	}
	if u, ok := s.users[a.sellerID]; ok {
		out.Seller = s.accountOf(u)
	}
	return out
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (s *store) seed() {
	catalog := []domain.Collectible{
		{Name: "Golden Frog", Description: "A frog that found the treasury", Price: 300, GradientColor1: "#f6d365", GradientColor2: "#fda085"},
		{Name: "Night Owl", Description: "Awake when the market is not", Price: 500, GradientColor1: "#667eea", GradientColor2: "#764ba2"},
		{Name: "Blue Whale", Description: "Moves the leaderboard", Price: 1200, GradientColor1: "#4facfe", GradientColor2: "#00f2fe"},
		{Name: "Red Panda", Description: "Rare and slightly smug", Price: 800, GradientColor1: "#ff9a9e", GradientColor2: "#fecfef"},
	}
	for _, n := range catalog {
		s.addNFT(n)
	}

	now := domain.LocalTime{Time: time.Now()}
	for _, t := range []domain.Task{
		{Title: "Join the channel", Description: "Subscribe to the announcements channel", Link: "https://t.me/zg_news", Reward: 150},
		{Title: "Invite a friend", Description: "Share your referral link", Link: "https://t.me/zg_nft_bot", Reward: 200},
	} {
		t.ID = s.nextID()
		t.Active = true
		t.CreatedAt = &now
		task := t
		s.tasks[task.ID] = &task
	}

	code := domain.Code{ID: s.nextID(), Code: "WELCOME", Reward: 100, MaxUses: 1000, Active: true, CreatedAt: &now}
	s.codes[code.ID] = &code
}
