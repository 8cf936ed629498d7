package webhooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// SettingsDoctype is the doctype holding Stripe gateway configuration.
const SettingsDoctype = "Stripe Settings"

// StripeSettings is the subset of a Stripe Settings record the desk shows after
// a reload.
type StripeSettings struct {
	Name             string `mapstructure:"name" json:"name"`
	GatewayName      string `mapstructure:"gateway_name" json:"gateway_name"`
	PublishableKey   string `mapstructure:"publishable_key" json:"publishable_key,omitempty"`
	WebhookSecretKey string `mapstructure:"webhook_secret_key" json:"-"`
	Modified         string `mapstructure:"modified" json:"modified,omitempty"`
}

// WebhookConfigured reports whether the site stored a signing secret, which
// it only does after a successful webhook creation.
func (s StripeSettings) WebhookConfigured() bool {
	return s.WebhookSecretKey != ""
}

// DecodeSettings maps a raw document onto StripeSettings.
func DecodeSettings(doc map[string]any) (StripeSettings, error) {
	var out StripeSettings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return StripeSettings{}, err
	}
	if err := dec.Decode(doc); err != nil {
		return StripeSettings{}, fmt.Errorf("decode %s: %w", SettingsDoctype, err)
	}
	return out, nil
}

// DocFetcher loads a single document.
type DocFetcher interface {
	GetDoc(ctx context.Context, doctype, name string) (map[string]any, error)
}

// SettingsReloader re-reads a Stripe Settings record from the site.
type SettingsReloader struct {
	Fetcher  DocFetcher
	Name     string
	OnReload func(StripeSettings)

	mu      sync.Mutex
	current *StripeSettings
}

// Reload implements ui.Reloader.
func (r *SettingsReloader) Reload(ctx context.Context) error {
	doc, err := r.Fetcher.GetDoc(ctx, SettingsDoctype, r.Name)
	if err != nil {
		return err
	}
	settings, err := DecodeSettings(doc)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.current = &settings
	r.mu.Unlock()
	if r.OnReload != nil {
		r.OnReload(settings)
	}
	return nil
}

// Current returns the last reloaded record, if any.
func (r *SettingsReloader) Current() (StripeSettings, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return StripeSettings{}, false
	}
	return *r.current, true
}
