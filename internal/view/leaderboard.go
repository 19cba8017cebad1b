package view

import (
	"context"
	"fmt"
	"sort"

	"zg-client/internal/domain"
)

type Leaderboard struct {
	base
	users *Collection[domain.Account]
}

func NewLeaderboard(deps Deps) *Leaderboard {
	l := &Leaderboard{base: newBase(deps)}
	l.users = NewCollection(l.life, "leaderboard", deps.Bus, func(ctx context.Context) ([]domain.Account, error) {
		var out struct {
			Users []domain.Account `json:"users"`
		}
		if err := deps.API.Get(ctx, "/leaderboard/users", &out); err != nil {
			return nil, err
		}
		sort.SliceStable(out.Users, func(i, j int) bool {
			return out.Users[i].Balance > out.Users[j].Balance
		})
		return out.Users, nil
	})
	return l
}

func (l *Leaderboard) Load(ctx context.Context) error {
	return l.users.Load(ctx)
}

func (l *Leaderboard) Items() []domain.Account {
	return l.users.Items()
}

// Rank is 1-based; 0 means the user is not on the board.
func (l *Leaderboard) Rank(userID int64) int {
	for i, u := range l.users.Items() {
		if u.ID == userID {
			return i + 1
		}
	}
	return 0
}

func (l *Leaderboard) Details(ctx context.Context, userID int64) (*domain.UserDetails, error) {
	ctx, stop := bind(ctx, l.life)
	defer stop()

	var out domain.UserDetails
	if err := l.deps.API.Get(ctx, fmt.Sprintf("/leaderboard/user/%d", userID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
