package view

import (
	"context"
	"sort"
	"strings"
	"sync"

	"zg-client/internal/client"
	"zg-client/internal/domain"

	"golang.org/x/sync/errgroup"
)

// Profile is the owned-collectibles screen plus stats and referrals.
type Profile struct {
	base
	owned *Collection[domain.Collectible]

	mu        sync.RWMutex
	stats     domain.UserStats
	link      domain.ReferralLink
	referrals []domain.Referral
}

func NewProfile(deps Deps) *Profile {
	p := &Profile{base: newBase(deps)}
	p.owned = NewCollection(p.life, "profile", deps.Bus, func(ctx context.Context) ([]domain.Collectible, error) {
		var out struct {
			NFTs []domain.Collectible `json:"nfts"`
		}
		if err := deps.API.Get(ctx, "/nft/my", &out); err != nil {
			return nil, err
		}
		return out.NFTs, nil
	})
	return p
}

// Load fetches owned collectibles, stats and the referral link in parallel.
func (p *Profile) Load(ctx context.Context) error {
	ctx, stop := bind(ctx, p.life)
	defer stop()

	var stats domain.UserStats
	var link domain.ReferralLink

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.owned.Load(gctx)
	})
	g.Go(func() error {
		return p.deps.API.Get(gctx, "/user/stats", &stats)
	})
	g.Go(func() error {
		return p.deps.API.Get(gctx, "/referral/link", &link)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	p.mu.Lock()
	p.stats = stats
	p.link = link
	p.mu.Unlock()
	return nil
}

// Owned lists the user's collectibles with the pinned one first.
func (p *Profile) Owned() []domain.Collectible {
	items := p.owned.Items()
	var pinned int64
	if me, ok := p.deps.Profile.Current(); ok && me.PinnedNFT != nil {
		pinned = me.PinnedNFT.ID
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ID == pinned && items[j].ID != pinned
	})
	return items
}

func (p *Profile) Stats() domain.UserStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

func (p *Profile) ReferralLink() domain.ReferralLink {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.link
}

func (p *Profile) LoadReferrals(ctx context.Context) ([]domain.Referral, error) {
	ctx, stop := bind(ctx, p.life)
	defer stop()

	var out struct {
		Referrals []domain.Referral `json:"referrals"`
	}
	if err := p.deps.API.Get(ctx, "/referral/list", &out); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.referrals = out.Referrals
	p.mu.Unlock()
	return out.Referrals, nil
}

func (p *Profile) Referrals() []domain.Referral {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Referral, len(p.referrals))
	copy(out, p.referrals)
	return out
}

func (p *Profile) owns(id int64) error {
	if _, ok := p.owned.Find(func(c domain.Collectible) bool { return c.ID == id }); !ok {
		return client.ErrNotOwner
	}
	return nil
}

func (p *Profile) Pin(ctx context.Context, id int64) error {
	return p.action(ctx, "pin", domain.NFTActionRequest{NFTID: id})
}

func (p *Profile) Sell(ctx context.Context, id int64) error {
	return p.action(ctx, "sell", domain.NFTActionRequest{NFTID: id})
}

func (p *Profile) Transfer(ctx context.Context, id int64, receiver string) error {
	receiver = strings.TrimPrefix(strings.TrimSpace(receiver), "@")
	req := domain.TransferRequest{NFTID: id, ReceiverUsername: receiver}
	if err := p.check(req); err != nil {
		return err
	}

	me, err := p.profile()
	if err != nil {
		return err
	}
	if strings.EqualFold(receiver, me.Username) {
		return client.Invalid("receiverUsername", "cannot transfer to yourself")
	}
	if !me.CanAfford(domain.TransferFee) {
		return client.ErrInsufficientFunds
	}

	return p.action(ctx, "transfer", domain.NFTActionRequest{NFTID: id, ReceiverUsername: receiver})
}

func (p *Profile) CreateAuction(ctx context.Context, id, price int64) error {
	req := domain.AuctionCreateRequest{NFTID: id, Price: price}
	if err := p.check(req); err != nil {
		return err
	}
	if err := p.owns(id); err != nil {
		return err
	}

	return p.owned.Mutate(ctx, key("nft", id), func(ctx context.Context) error {
		return p.deps.API.Post(ctx, "/auction/create", req, nil)
	})
}

func (p *Profile) action(ctx context.Context, name string, req domain.NFTActionRequest) error {
	if err := p.check(req); err != nil {
		return err
	}
	if err := p.owns(req.NFTID); err != nil {
		return err
	}

	return p.owned.Mutate(ctx, key("nft", req.NFTID), func(ctx context.Context) error {
		return p.deps.API.Post(ctx, "/nft/"+name, req, nil)
	})
}
