package view

import (
	"context"
	"log"

	"zg-client/internal/client"
	"zg-client/internal/domain"

	"golang.org/x/sync/errgroup"
)

type AuctionHouse struct {
	base
	all  *Collection[domain.Auction]
	mine *Collection[domain.Auction]
}

func NewAuctionHouse(deps Deps) *AuctionHouse {
	a := &AuctionHouse{base: newBase(deps)}
	a.all = NewCollection(a.life, "auction", deps.Bus, auctionLoader(deps.API, "/auction/all"))
	a.mine = NewCollection(a.life, "auction-mine", deps.Bus, auctionLoader(deps.API, "/auction/my"))
	return a
}

func auctionLoader(api API, path string) Loader[domain.Auction] {
	return func(ctx context.Context) ([]domain.Auction, error) {
		var out struct {
			Auctions []domain.Auction `json:"auctions"`
		}
		if err := api.Get(ctx, path, &out); err != nil {
			return nil, err
		}
		return out.Auctions, nil
	}
}

func (a *AuctionHouse) Load(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.all.Load(ctx) })
	g.Go(func() error { return a.mine.Load(ctx) })
	return g.Wait()
}

func (a *AuctionHouse) Items() []domain.Auction {
	return a.all.Items()
}

// Cancelable lists only the current user's own active auctions; cancel is
// never offered for anything else.
func (a *AuctionHouse) Cancelable() []domain.Auction {
	return a.mine.Items()
}

func (a *AuctionHouse) CanBuy(id int64) error {
	auc, ok := a.all.Find(func(x domain.Auction) bool { return x.ID == id })
	if !ok {
		return client.ErrNotFound
	}
	p, err := a.profile()
	if err != nil {
		return err
	}
	if auc.Seller.ID == p.ID {
		return client.ErrOwnAuction
	}
	if !p.CanAfford(auc.Price) {
		return client.ErrInsufficientFunds
	}
	if a.all.Pending(key("buy", id)) {
		return client.ErrBusy
	}
	return nil
}

func (a *AuctionHouse) CanCancel(id int64) error {
	if _, ok := a.mine.Find(func(x domain.Auction) bool { return x.ID == id }); !ok {
		return client.ErrNotOwner
	}
	if a.mine.Pending(key("cancel", id)) {
		return client.ErrBusy
	}
	return nil
}

func (a *AuctionHouse) Buy(ctx context.Context, id int64) error {
	if err := a.CanBuy(id); err != nil {
		return err
	}
	req := domain.AuctionActionRequest{AuctionID: id}
	if err := a.check(req); err != nil {
		return err
	}

	return a.all.Mutate(ctx, key("buy", id), func(ctx context.Context) error {
		return a.deps.API.Post(ctx, "/auction/buy", req, nil)
	})
}

func (a *AuctionHouse) Cancel(ctx context.Context, id int64) error {
	if err := a.CanCancel(id); err != nil {
		return err
	}
	req := domain.AuctionActionRequest{AuctionID: id}
	if err := a.check(req); err != nil {
		return err
	}

	err := a.mine.Mutate(ctx, key("cancel", id), func(ctx context.Context) error {
		return a.deps.API.Post(ctx, "/auction/cancel", req, nil)
	})
	if err != nil {
		return err
	}
	if err := a.all.Load(ctx); err != nil {
		log.Printf("[View] auction reload after cancel %d failed: %v", id, err)
	}
	return nil
}
