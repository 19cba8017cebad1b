package view

import (
	"context"

	"zg-client/internal/client"
	"zg-client/internal/domain"
)

type Shop struct {
	base
	nfts *Collection[domain.Collectible]
}

func NewShop(deps Deps) *Shop {
	s := &Shop{base: newBase(deps)}
	s.nfts = NewCollection(s.life, "shop", deps.Bus, func(ctx context.Context) ([]domain.Collectible, error) {
		var out struct {
			NFTs []domain.Collectible `json:"nfts"`
		}
		if err := deps.API.Get(ctx, "/nft/all", &out); err != nil {
			return nil, err
		}
		return out.NFTs, nil
	})
	return s
}

func (s *Shop) Load(ctx context.Context) error {
	return s.nfts.Load(ctx)
}

func (s *Shop) Items() []domain.Collectible {
	return s.nfts.Items()
}

// CanBuy reports why the buy control for id would be disabled, or nil.
func (s *Shop) CanBuy(id int64) error {
	nft, ok := s.nfts.Find(func(c domain.Collectible) bool { return c.ID == id })
	if !ok {
		return client.ErrNotFound
	}
	p, err := s.profile()
	if err != nil {
		return err
	}
	if !p.CanAfford(nft.Price) {
		return client.ErrInsufficientFunds
	}
	if s.nfts.Pending(key("buy", id)) {
		return client.ErrBusy
	}
	return nil
}

func (s *Shop) Buy(ctx context.Context, id int64) (*domain.NFTBuyResponse, error) {
	if err := s.CanBuy(id); err != nil {
		return nil, err
	}

	req := domain.NFTBuyRequest{NFTID: id}
	if err := s.check(req); err != nil {
		return nil, err
	}

	var out domain.NFTBuyResponse
	err := s.nfts.Mutate(ctx, key("buy", id), func(ctx context.Context) error {
		return s.deps.API.Post(ctx, "/nft/buy", req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
