package domain

type Collectible struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Price          int64  `json:"price"`
	GradientColor1 string `json:"gradientColor1,omitempty"`
	GradientColor2 string `json:"gradientColor2,omitempty"`
	ImageURL       string `json:"imageURL,omitempty"`
	IsOwned        bool   `json:"isOwned"`
	OwnerID        *int64 `json:"ownerId,omitempty"`
}

func (c *Collectible) Clone() *Collectible {
	if c == nil {
		return nil
	}
	n := *c
	if c.OwnerID != nil {
		id := *c.OwnerID
		n.OwnerID = &id
	}
	return &n
}

func (c *Collectible) Gradient() [2]string {
	return [2]string{c.GradientColor1, c.GradientColor2}
}

func (c *Collectible) OwnedBy(userID int64) bool {
	return c.OwnerID != nil && *c.OwnerID == userID
}

type Auction struct {
	ID        int64       `json:"id"`
	NFT       Collectible `json:"nft"`
	Seller    Account     `json:"seller"`
	Price     int64       `json:"price"`
	CreatedAt LocalTime   `json:"createdAt"`
	Active    bool        `json:"active"`
}

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Link        string     `json:"link"`
	Reward      int64      `json:"reward"`
	Completed   bool       `json:"completed"`
	Active      bool       `json:"active,omitempty"`
	CreatedAt   *LocalTime `json:"createdAt,omitempty"`
}

type Code struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	Reward      int64      `json:"reward"`
	MaxUses     int        `json:"maxUses"`
	CurrentUses int        `json:"currentUses"`
	Active      bool       `json:"active"`
	CreatedAt   *LocalTime `json:"createdAt,omitempty"`
}

func (c *Code) Exhausted() bool {
	return c.CurrentUses >= c.MaxUses
}
