package session

import (
	"context"
	"errors"
	"log"
	"strings"

	"zg-client/internal/client"
	"zg-client/internal/domain"
	"zg-client/pkg/jwt"

	"github.com/go-playground/validator/v10"
)

const authPath = "/auth/telegram"

type PublicPoster interface {
	PostPublic(ctx context.Context, path string, body, out interface{}) error
}

// ProfileSink receives the profile snapshot that comes back with a token.
type ProfileSink interface {
	Replace(p *domain.UserProfile)
}

type Authenticator struct {
	api       PublicPoster
	store     *Store
	sink      ProfileSink
	validator *validator.Validate
}

func NewAuthenticator(api PublicPoster, store *Store, sink ProfileSink) *Authenticator {
	return &Authenticator{
		api:       api,
		store:     store,
		sink:      sink,
		validator: validator.New(),
	}
}

// Authenticate exchanges the host-provided initData for a bearer token. On
// any failure the store is left empty.
func (a *Authenticator) Authenticate(ctx context.Context, initData string) (*domain.UserProfile, error) {
	req := domain.AuthRequest{InitData: strings.TrimSpace(initData)}
	if err := a.validator.Struct(req); err != nil {
		a.store.Clear()
		return nil, client.ErrPlatformUnavailable
	}

	var resp domain.AuthResponse
	if err := a.api.PostPublic(ctx, authPath, req, &resp); err != nil {
		a.store.Clear()

		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			log.Printf("[Session] authentication rejected with status %d", apiErr.Status)
			return nil, &client.APIError{Status: apiErr.Status, Message: apiErr.Message, Kind: client.ErrAuthRejected}
		}
		log.Printf("[Session] authentication failed: %v", err)
		return nil, err
	}

	if resp.Token == "" {
		a.store.Clear()
		return nil, &client.APIError{Status: 200, Message: "no token in response", Kind: client.ErrAuthRejected}
	}

	profile := resp.Profile()
	if profile.Role == "" {
		profile.Role = roleFromToken(resp.Token)
	}

	a.store.Set(resp.Token)
	if a.sink != nil {
		a.sink.Replace(profile)
	}

	log.Printf("[Session] authenticated user %d (%s, %s)", profile.ID, profile.Username, profile.Role)
	return profile.Clone(), nil
}

func roleFromToken(token string) domain.Role {
	claims, err := jwt.ParseUnverified(token)
	if err != nil || claims.Role == "" {
		return domain.RoleUser
	}
	return domain.Role(claims.Role)
}
