package view

import (
	"context"
	"strings"
	"sync"

	"zg-client/internal/client"
	"zg-client/internal/domain"
)

const redeemKey = "redeem"

// Home carries the promo-code entry of the landing screen.
type Home struct {
	base
	flight *inflight

	mu    sync.Mutex
	input string
}

func NewHome(deps Deps) *Home {
	return &Home{
		base:   newBase(deps),
		flight: newInflight(),
	}
}

func (h *Home) SetInput(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.input = code
}

func (h *Home) Input() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.input
}

func (h *Home) Pending() bool {
	return h.flight.busy(redeemKey)
}

// Redeem submits the current input. On success the input is cleared and a
// single profile refresh is requested.
func (h *Home) Redeem(ctx context.Context) (*domain.CodeRedeemResponse, string, error) {
	req := domain.CodeRedeemRequest{Code: strings.TrimSpace(h.Input())}
	if req.Code == "" {
		return nil, "", client.Invalid("code", "enter a code")
	}
	if err := h.check(req); err != nil {
		return nil, "", err
	}

	if !h.flight.acquire(redeemKey) {
		return nil, "", client.ErrBusy
	}
	defer h.flight.release(redeemKey)

	ctx, stop := bind(ctx, h.life)
	defer stop()

	var out struct {
		domain.CodeRedeemResponse
		Message string `json:"message"`
	}
	if err := h.deps.API.Post(ctx, "/code/redeem", req, &out); err != nil {
		return nil, "", err
	}

	h.SetInput("")
	h.announce("home")
	return &out.CodeRedeemResponse, out.Message, nil
}
