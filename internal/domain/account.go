package domain

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Account is the user record as the API serialises it from /auth/me, the
// leaderboard and auction sellers.
type Account struct {
	ID            int64        `json:"id"`
	TelegramID    int64        `json:"telegramId"`
	Username      string       `json:"username"`
	Balance       int64        `json:"balance"`
	AvatarURL     string       `json:"avatarURL,omitempty"`
	Role          Role         `json:"role,omitempty"`
	PinnedNFT     *Collectible `json:"pinnedNFT,omitempty"`
	ReferralCount int          `json:"referralCount"`
}

func (a *Account) Profile() *UserProfile {
	role := a.Role
	if role == "" {
		role = RoleUser
	}
	return &UserProfile{
		ID:            a.ID,
		TelegramID:    a.TelegramID,
		Username:      a.Username,
		Balance:       a.Balance,
		AvatarURL:     a.AvatarURL,
		PinnedNFT:     a.PinnedNFT.Clone(),
		Role:          role,
		ReferralCount: a.ReferralCount,
	}
}

// UserProfile is the client's snapshot of the signed-in user. It is only
// ever replaced as a whole.
type UserProfile struct {
	ID            int64
	TelegramID    int64
	Username      string
	Balance       int64
	AvatarURL     string
	PinnedNFT     *Collectible
	Role          Role
	ReferralCount int
}

func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.PinnedNFT = p.PinnedNFT.Clone()
	return &c
}

func (p *UserProfile) CanAfford(price int64) bool {
	return p != nil && p.Balance >= price
}

func (p *UserProfile) HasPinned(nftID int64) bool {
	return p != nil && p.PinnedNFT != nil && p.PinnedNFT.ID == nftID
}

type AuthRequest struct {
	InitData string `json:"initData" validate:"required"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	UserID    int64        `json:"userId"`
	Username  string       `json:"username"`
	Balance   int64        `json:"balance"`
	AvatarURL string       `json:"avatarUrl,omitempty"`
	PinnedNFT *Collectible `json:"pinnedNFT,omitempty"`
	Role      Role         `json:"role,omitempty"`
}

func (r *AuthResponse) Profile() *UserProfile {
	return &UserProfile{
		ID:        r.UserID,
		Username:  r.Username,
		Balance:   r.Balance,
		AvatarURL: r.AvatarURL,
		PinnedNFT: r.PinnedNFT.Clone(),
		Role:      r.Role,
	}
}

type UserStats struct {
	TasksCompleted int `json:"tasksCompleted"`
	CodesActivated int `json:"codesActivated"`
}

type ReferralLink struct {
	Link  string `json:"referralLink"`
	Count int    `json:"referralCount"`
}

type Referral struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Balance   int64  `json:"balance"`
}

type UserDetails struct {
	User Account       `json:"user"`
	NFTs []Collectible `json:"nfts"`
}
