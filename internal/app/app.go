// Package app wires the session, the profile cache and the views into one
// injectable application context.
package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"zg-client/internal/client"
	"zg-client/internal/config"
	"zg-client/internal/domain"
	"zg-client/internal/events"
	"zg-client/internal/profile"
	"zg-client/internal/session"
	"zg-client/internal/shell"
	"zg-client/internal/view"
)

type State int

const (
	StateAuthenticating State = iota
	StateAuthenticated
	StateUnauthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Status is what the shell renders: the state plus, for Failed and
// Unauthenticated, the reason and its user-facing message.
type Status struct {
	State   State
	Err     error
	Message string
}

// Retryable reports whether a manual retry can change the outcome. A
// missing platform blob never can.
func (s Status) Retryable() bool {
	switch s.State {
	case StateFailed:
		return !errors.Is(s.Err, client.ErrPlatformUnavailable)
	case StateUnauthenticated:
		return true
	}
	return false
}

type Options struct {
	BaseURL         string
	Timeout         time.Duration
	RefreshDebounce time.Duration
	EventBuffer     int
	Debug           bool
	HTTPClient      *http.Client
}

type App struct {
	Store     *session.Store
	Client    *client.Client
	Bus       *events.Bus
	Cache     *profile.Cache
	Refresher *profile.Refresher
	Nav       *shell.Nav

	auth *session.Authenticator

	mu       sync.Mutex
	status   Status
	initData string
	watchers map[chan Status]struct{}
}

func New(opts Options) *App {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RefreshDebounce <= 0 {
		opts.RefreshDebounce = 250 * time.Millisecond
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 16
	}

	clientOpts := []client.Option{client.WithDebug(opts.Debug)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(opts.HTTPClient))
	}

	a := &App{
		Store:    session.NewStore(),
		Bus:      events.NewBus(opts.EventBuffer),
		Nav:      shell.NewNav(),
		status:   Status{State: StateUnauthenticated},
		watchers: make(map[chan Status]struct{}),
	}
	a.Client = client.New(opts.BaseURL, opts.Timeout, a.Store, clientOpts...)
	a.Client.OnUnauthorized(a.expire)
	a.Cache = profile.NewCache(a.Client, a.Store)
	a.Refresher = profile.NewRefresher(a.Cache, a.Bus, opts.RefreshDebounce)
	a.auth = session.NewAuthenticator(a.Client, a.Store, a.Cache)
	return a
}

func FromConfig(cfg *config.Config) *App {
	return New(Options{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		RefreshDebounce: cfg.Session.RefreshDebounce,
		EventBuffer:     cfg.Session.EventBuffer,
		Debug:           cfg.Logging.Debug(),
	})
}

// Start runs the profile refresher until ctx is done.
func (a *App) Start(ctx context.Context) {
	go a.Refresher.Run(ctx)
}

// Authenticate runs the identity exchange. Success replaces the cached
// profile wholesale and re-arms the one-shot 401 transition.
func (a *App) Authenticate(ctx context.Context, initData string) (*domain.UserProfile, error) {
	a.mu.Lock()
	a.initData = initData
	a.mu.Unlock()

	a.setStatus(Status{State: StateAuthenticating})

	p, err := a.auth.Authenticate(ctx, initData)
	if err != nil {
		a.Cache.Invalidate()
		a.setStatus(Status{State: StateFailed, Err: err, Message: client.Message(err)})
		return nil, err
	}

	a.setStatus(Status{State: StateAuthenticated})
	return p, nil
}

// Retry re-runs authentication with the blob of the last attempt. It is
// the only retry there is.
func (a *App) Retry(ctx context.Context) (*domain.UserProfile, error) {
	a.mu.Lock()
	initData := a.initData
	a.mu.Unlock()
	return a.Authenticate(ctx, initData)
}

func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Watch delivers state transitions. Only the newest unread status is
// kept per watcher.
func (a *App) Watch() <-chan Status {
	ch := make(chan Status, 1)
	a.mu.Lock()
	a.watchers[ch] = struct{}{}
	a.mu.Unlock()
	return ch
}

func (a *App) Unwatch(w <-chan Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for ch := range a.watchers {
		if ch == w {
			delete(a.watchers, ch)
			close(ch)
			return
		}
	}
}

func (a *App) deps() view.Deps {
	return view.Deps{API: a.Client, Profile: a.Cache, Bus: a.Bus}
}

func (a *App) Shop() *view.Shop { return view.NewShop(a.deps()) }
func (a *App) Auctions() *view.AuctionHouse { return view.NewAuctionHouse(a.deps()) }
func (a *App) Leaderboard() *view.Leaderboard { return view.NewLeaderboard(a.deps()) }
func (a *App) Tasks() *view.Tasks { return view.NewTasks(a.deps()) }
func (a *App) Home() *view.Home { return view.NewHome(a.deps()) }
func (a *App) Profile() *view.Profile { return view.NewProfile(a.deps()) }
func (a *App) Admin() *view.Admin { return view.NewAdmin(a.deps()) }

// expire handles a 401 from an authenticated call made with token. Only
// the first one of a session has any effect, and a 401 for a token that
// has since been replaced is ignored.
func (a *App) expire(token string) {
	a.mu.Lock()
	if a.status.State != StateAuthenticated || !a.Store.ClearIf(token) {
		a.mu.Unlock()
		return
	}
	a.status = Status{State: StateUnauthenticated, Err: client.ErrUnauthorized, Message: client.Message(client.ErrUnauthorized)}
	a.notifyLocked()
	a.mu.Unlock()

	a.Cache.Invalidate()
	a.Bus.Publish(events.Event{Type: events.SessionExpired, Source: "client"})
	log.Printf("[Session] credential expired, signed out")
}

func (a *App) setStatus(s Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
	a.notifyLocked()
}

func (a *App) notifyLocked() {
	for ch := range a.watchers {
		select {
		case ch <- a.status:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- a.status:
			default:
			}
		}
	}
}
