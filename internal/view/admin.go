package view

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"zg-client/internal/client"
	"zg-client/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gosimple/slug"
	"golang.org/x/sync/errgroup"
)

const (
	defaultGradient1 = "#667eea"
	defaultGradient2 = "#764ba2"
)

// Admin is the management panel. Once the server answers 403 the panel
// stays denied and issues no further requests.
type Admin struct {
	base
	nfts   *Collection[domain.Collectible]
	codes  *Collection[domain.Code]
	tasks  *Collection[domain.Task]
	flight *inflight
	denied atomic.Bool
}

func NewAdmin(deps Deps) *Admin {
	a := &Admin{base: newBase(deps), flight: newInflight()}

	a.nfts = NewCollection(a.life, "admin-nft", deps.Bus, func(ctx context.Context) ([]domain.Collectible, error) {
		var out struct {
			NFTs []domain.Collectible `json:"nfts"`
		}
		return out.NFTs, a.observe(deps.API.Get(ctx, "/admin/nft/all", &out))
	})
	a.codes = NewCollection(a.life, "admin-code", deps.Bus, func(ctx context.Context) ([]domain.Code, error) {
		var out struct {
			Codes []domain.Code `json:"codes"`
		}
		return out.Codes, a.observe(deps.API.Get(ctx, "/admin/code/all", &out))
	})
	a.tasks = NewCollection(a.life, "admin-task", deps.Bus, func(ctx context.Context) ([]domain.Task, error) {
		var out struct {
			Tasks []domain.Task `json:"tasks"`
		}
		return out.Tasks, a.observe(deps.API.Get(ctx, "/admin/task/all", &out))
	})
	return a
}

func (a *Admin) Denied() bool {
	return a.denied.Load()
}

func (a *Admin) access() error {
	if a.denied.Load() {
		return client.ErrForbidden
	}
	p, err := a.profile()
	if err != nil {
		return err
	}
	if !p.Role.IsAdmin() {
		a.denied.Store(true)
		return client.ErrForbidden
	}
	return nil
}

func (a *Admin) observe(err error) error {
	if errors.Is(err, client.ErrForbidden) && !a.denied.Swap(true) {
		log.Printf("[View] admin access denied by server")
	}
	return err
}

func (a *Admin) Load(ctx context.Context) error {
	if err := a.access(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.nfts.Load(gctx) })
	g.Go(func() error { return a.codes.Load(gctx) })
	g.Go(func() error { return a.tasks.Load(gctx) })
	return g.Wait()
}

func (a *Admin) NFTs() []domain.Collectible {
	return a.nfts.Items()
}

func (a *Admin) Codes() []domain.Code {
	return a.codes.Items()
}

func (a *Admin) Tasks() []domain.Task {
	return a.tasks.Items()
}

func (a *Admin) UpdateBalance(ctx context.Context, username string, newBalance int64) (*domain.BalanceUpdateResponse, error) {
	req := domain.BalanceUpdateRequest{Username: strings.TrimSpace(username), NewBalance: newBalance}
	if err := a.check(req); err != nil {
		return nil, err
	}
	if err := a.access(); err != nil {
		return nil, err
	}

	k := "balance:" + req.Username
	if !a.flight.acquire(k) {
		return nil, client.ErrBusy
	}
	defer a.flight.release(k)

	ctx, stop := bind(ctx, a.life)
	defer stop()

	var out domain.BalanceUpdateResponse
	if err := a.observe(a.deps.API.Post(ctx, "/admin/user/balance", req, &out)); err != nil {
		return nil, err
	}
	a.announce("admin")
	return &out, nil
}

func (a *Admin) CreateCode(ctx context.Context, req domain.CodeCreateRequest) (*domain.Code, error) {
	req.Code = strings.TrimSpace(req.Code)
	if err := a.check(req); err != nil {
		return nil, err
	}
	if err := a.access(); err != nil {
		return nil, err
	}

	var out domain.CodeCreateResponse
	err := a.codes.Mutate(ctx, "code:new", func(ctx context.Context) error {
		return a.observe(a.deps.API.Post(ctx, "/admin/code/create", req, &out))
	})
	if err != nil {
		return nil, err
	}
	return &out.Code, nil
}

func (a *Admin) DeleteCode(ctx context.Context, id int64) error {
	return a.remove(ctx, a.codes.Mutate, "code", id)
}

func (a *Admin) CreateTask(ctx context.Context, req domain.TaskCreateRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Link = strings.TrimSpace(req.Link)
	if err := a.check(req); err != nil {
		return err
	}
	if err := a.access(); err != nil {
		return err
	}

	return a.tasks.Mutate(ctx, "task:new", func(ctx context.Context) error {
		return a.observe(a.deps.API.Post(ctx, "/admin/task/create", req, nil))
	})
}

func (a *Admin) DeleteTask(ctx context.Context, id int64) error {
	return a.remove(ctx, a.tasks.Mutate, "task", id)
}

func (a *Admin) CreateNFT(ctx context.Context, req domain.NFTCreateRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := a.check(req); err != nil {
		return err
	}
	file, err := imagePart(req.Name, req.Image)
	if err != nil {
		return err
	}
	if err := a.access(); err != nil {
		return err
	}

	if req.GradientColor1 == "" {
		req.GradientColor1 = defaultGradient1
	}
	if req.GradientColor2 == "" {
		req.GradientColor2 = defaultGradient2
	}
	if req.Amount == 0 {
		req.Amount = 1
	}

	fields := map[string]string{
		"name":           req.Name,
		"description":    req.Description,
		"price":          strconv.FormatInt(req.Price, 10),
		"gradientColor1": req.GradientColor1,
		"gradientColor2": req.GradientColor2,
		"amount":         strconv.Itoa(req.Amount),
	}

	return a.nfts.Mutate(ctx, "nft:new", func(ctx context.Context) error {
		return a.observe(a.deps.API.PostMultipart(ctx, "/admin/nft/create", fields, file, nil))
	})
}

func (a *Admin) DeleteNFT(ctx context.Context, id int64) error {
	return a.remove(ctx, a.nfts.Mutate, "nft", id)
}

type mutateFunc func(ctx context.Context, key string, fn func(ctx context.Context) error) error

func (a *Admin) remove(ctx context.Context, mutate mutateFunc, kind string, id int64) error {
	req := domain.DeleteRequest{ID: id}
	if err := a.check(req); err != nil {
		return err
	}
	if err := a.access(); err != nil {
		return err
	}

	return mutate(ctx, key(kind, id), func(ctx context.Context) error {
		return a.observe(a.deps.API.Delete(ctx, "/admin/"+kind+"/delete", req, nil))
	})
}

// imagePart checks the upload by content, not by name, and gives it a
// clean file name derived from the collectible's name.
func imagePart(name string, img *domain.Upload) (*client.FilePart, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, client.Invalid("image", "choose an image")
	}
	if len(img.Data) > domain.MaxImageSize {
		return nil, client.Invalid("image", "image must be 5MB or smaller")
	}

	mt := mimetype.Detect(img.Data)
	if !mimetype.EqualsAny(mt.String(), domain.AllowedImageTypes...) {
		return nil, client.Invalid("image", "image must be JPEG, PNG, GIF or WebP")
	}

	base := strings.TrimSuffix(filepath.Base(img.FileName), filepath.Ext(img.FileName))
	if base == "" || base == "." {
		base = name
	}
	fileName := slug.Make(base)
	if fileName == "" {
		fileName = "image"
	}

	return &client.FilePart{
		Field:       "image",
		FileName:    fileName + mt.Extension(),
		ContentType: mt.String(),
		Data:        img.Data,
	}, nil
}
