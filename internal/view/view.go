// Package view implements the resource views of the mini-app. Each view
// owns the collection it renders, guards its mutations client-side and
// announces successful mutations on the event bus.
package view

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"zg-client/internal/client"
	"zg-client/internal/domain"
	"zg-client/internal/events"

	"github.com/go-playground/validator/v10"
)

// API is the subset of *client.Client the views need.
type API interface {
	Get(ctx context.Context, path string, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
	Delete(ctx context.Context, path string, body, out interface{}) error
	PostMultipart(ctx context.Context, path string, fields map[string]string, file *client.FilePart, out interface{}) error
}

type ProfileSource interface {
	Current() (*domain.UserProfile, bool)
}

type Deps struct {
	API     API
	Profile ProfileSource
	Bus     *events.Bus
}

type base struct {
	deps     Deps
	life     context.Context
	cancel   context.CancelFunc
	validate *validator.Validate
}

func newBase(deps Deps) base {
	life, cancel := context.WithCancel(context.Background())
	return base{
		deps:     deps,
		life:     life,
		cancel:   cancel,
		validate: newValidator(),
	}
}

// Close cancels every request the view still has in flight.
func (b *base) Close() {
	b.cancel()
}

func (b *base) profile() (*domain.UserProfile, error) {
	p, ok := b.deps.Profile.Current()
	if !ok {
		return nil, client.ErrNoCredential
	}
	return p, nil
}

func (b *base) announce(source string) {
	if b.deps.Bus != nil {
		b.deps.Bus.Publish(events.Event{Type: events.ProfileChanged, Source: source})
	}
}

func (b *base) check(form interface{}) error {
	err := b.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return client.Invalid("", err.Error())
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return client.Invalid(field, fmt.Sprintf("%s is required", field))
	case "gt":
		return client.Invalid(field, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
	case "gte":
		return client.Invalid(field, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
	case "hexcolor":
		return client.Invalid(field, fmt.Sprintf("%s must be a hex colour", field))
	}
	return client.Invalid(field, fmt.Sprintf("%s is invalid", field))
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return strings.ToLower(fld.Name[:1]) + fld.Name[1:]
		}
		return name
	})
	return v
}

func key(action string, id int64) string {
	return fmt.Sprintf("%s:%d", action, id)
}
