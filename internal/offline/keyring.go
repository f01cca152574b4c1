package offline

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keyring service name entries are stored under.
const DefaultKeyringService = "riptide-offline"

// Keyring stores locations in the OS keystore, one secret per cache key.
type Keyring struct {
	service string
}

func NewKeyring(service string) *Keyring {
	if service == "" {
		service = DefaultKeyringService
	}
	return &Keyring{service: service}
}

func (k *Keyring) Put(ctx context.Context, key, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return keyring.Set(k.service, key, location)
}

func (k *Keyring) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	loc, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return loc, err
}

func (k *Keyring) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := keyring.Delete(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

var _ Locations = (*Keyring)(nil)
