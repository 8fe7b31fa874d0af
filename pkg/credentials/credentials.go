// Package credentials provides access to the store endpoint and API keys
// used to authenticate list requests.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Settings keys shared with the settings collaborator.
const (
	KeyEndpointURL = "endpoint_url"
	KeyAPIKey      = "api_key"
	KeyAPISecret   = "api_secret"
)

// Keys lists every settings key a complete configuration needs.
var Keys = []string{KeyEndpointURL, KeyAPIKey, KeyAPISecret}

// NotConfiguredMessage is the user-facing text carried by NotConfiguredError.
const NotConfiguredMessage = "WooCommerce settings are not configured. Please set them with `woo-lister settings set`."

// ErrNotConfigured matches any NotConfiguredError via errors.Is.
var ErrNotConfigured = errors.New("credentials not configured")

// NotConfiguredError is returned when one or more settings are absent or empty.
type NotConfiguredError struct {
	Missing []string
}

// Error implements the error interface.
func (e *NotConfiguredError) Error() string {
	return NotConfiguredMessage
}

// Is reports whether target is ErrNotConfigured.
func (e *NotConfiguredError) Is(target error) bool {
	return target == ErrNotConfigured
}

// Credentials is the endpoint and Basic-Auth pair for one fetch attempt.
type Credentials struct {
	// BaseURL is the store root, without a trailing slash.
	BaseURL string

	// Username is the consumer key.
	Username string

	// Password is the consumer secret.
	Password string
}

// Wipe clears all fields. Called when a scoped acquisition ends.
func (c *Credentials) Wipe() {
	*c = Credentials{}
}

// String redacts the secret so credentials can be logged safely.
func (c Credentials) String() string {
	secret := "<empty>"
	if c.Password != "" {
		secret = "****"
	}
	return fmt.Sprintf("%s (key=%s, secret=%s)", c.BaseURL, mask(c.Username), secret)
}

// Provider returns the currently configured credentials.
type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StoreProvider reads credentials from a settings Store.
type StoreProvider struct {
	store  Store
	logger zerolog.Logger
}

// NewStoreProvider creates a provider backed by store.
func NewStoreProvider(store Store) *StoreProvider {
	if store == nil {
		panic("settings store cannot be nil")
	}
	return &StoreProvider{
		store:  store,
		logger: log.With().Str("component", "credentials").Logger(),
	}
}

// Credentials reads the three settings values as one snapshot.
// Any absent or blank value yields a *NotConfiguredError.
func (p *StoreProvider) Credentials(ctx context.Context) (Credentials, error) {
	values := make(map[string]string, len(Keys))
	var missing []string

	for _, key := range Keys {
		value, err := p.store.Get(ctx, key)
		if err != nil && !errors.Is(err, ErrKeyNotFound) {
			return Credentials{}, fmt.Errorf("read setting %s: %w", key, err)
		}
		value = strings.TrimSpace(value)
		if value == "" {
			missing = append(missing, key)
			continue
		}
		values[key] = value
	}

	if len(missing) > 0 {
		p.logger.Debug().Strs("missing", missing).Msg("Settings incomplete")
		return Credentials{}, &NotConfiguredError{Missing: missing}
	}

	return Credentials{
		BaseURL:  strings.TrimRight(values[KeyEndpointURL], "/"),
		Username: values[KeyAPIKey],
		Password: values[KeyAPISecret],
	}, nil
}

// Use acquires credentials from p, hands them to fn and wipes them once fn
// returns. Callers must not retain the value passed to fn.
func Use(ctx context.Context, p Provider, fn func(Credentials) error) error {
	creds, err := p.Credentials(ctx)
	if err != nil {
		return err
	}
	defer creds.Wipe()

	return fn(creds)
}

// StaticProvider always returns the same credentials. Useful for one-off
// commands that take credentials from flags.
type StaticProvider Credentials

// Credentials implements Provider.
func (s StaticProvider) Credentials(ctx context.Context) (Credentials, error) {
	c := Credentials(s)
	var missing []string
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, KeyEndpointURL)
	}
	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, KeyAPIKey)
	}
	if strings.TrimSpace(c.Password) == "" {
		missing = append(missing, KeyAPISecret)
	}
	if len(missing) > 0 {
		return Credentials{}, &NotConfiguredError{Missing: missing}
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c, nil
}

// mask keeps a short prefix so an operator can tell keys apart.
func mask(s string) string {
	if s == "" {
		return "<empty>"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
