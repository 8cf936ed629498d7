// Package webhooks drives the Stripe Settings buttons that create or delete the
// webhook endpoints registered on the Stripe dashboard.
package webhooks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/paydesk/internal/frappe"
	"github.com/noah-isme/paydesk/internal/obs"
	"github.com/noah-isme/paydesk/internal/remoteaction"
	"github.com/noah-isme/paydesk/internal/ui"
)

// Action selects what create_delete_webhooks does on the site.
type Action string

const (
	Create Action = "create"
	Delete Action = "delete"
)

type actionText struct {
	prompt  string
	success string
	failure string
}

var texts = map[Action]actionText{
	Create: {
		prompt:  "Configure webhooks on your Stripe Dashboard",
		success: "Webhooks creation in progress",
		failure: "Webhooks creation failed. Please check the error logs",
	},
	Delete: {
		prompt:  "Delete webhooks configured on your Stripe Dashboard",
		success: "Webhooks deletion in progress",
		failure: "Webhooks deletion failed. Please check the error logs",
	},
}

// ParseAction validates a raw action name.
func ParseAction(raw string) (Action, error) {
	a := Action(raw)
	if _, ok := texts[a]; !ok {
		return "", fmt.Errorf("webhooks: unknown action %q", raw)
	}
	return a, nil
}

// Prompt is the confirmation text shown before the action runs.
func (a Action) Prompt() string { return texts[a].prompt }

// UI is everything the buttons need from the screen hosting them.
type UI interface {
	remoteaction.Confirmer
	ui.Notifier
	ui.Reloader
}

// Surface assembles a UI from separate parts.
type Surface struct {
	remoteaction.Confirmer
	ui.Notifier
	ui.Reloader
}

// Guard serialises actions on one settings record.
type Guard interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service runs webhook actions against a Frappe site.
type Service struct {
	Caller  remoteaction.Caller
	Guard   Guard
	LockTTL time.Duration
	Logger  zerolog.Logger
}

// Create asks the site to register the Stripe webhook endpoints for settings.
func (s *Service) Create(ctx context.Context, settings string, surface UI) (remoteaction.Outcome, error) {
	return s.Run(ctx, Create, settings, surface)
}

// Delete asks the site to remove the Stripe webhook endpoints for settings.
func (s *Service) Delete(ctx context.Context, settings string, surface UI) (remoteaction.Outcome, error) {
	return s.Run(ctx, Delete, settings, surface)
}

// Run executes action for the named Stripe Settings record. A success shows a
// green notice and reloads the record; a failure shows a red notice.
func (s *Service) Run(ctx context.Context, action Action, settings string, surface UI) (remoteaction.Outcome, error) {
	text, ok := texts[action]
	if !ok {
		return remoteaction.Declined, fmt.Errorf("%w: unknown action %q", remoteaction.ErrInvalidRequest, action)
	}
	if settings == "" {
		return remoteaction.Declined, fmt.Errorf("%w: settings name is required", remoteaction.ErrInvalidRequest)
	}
	logger := s.Logger.With().Str("settings", settings).Str("action", string(action)).Logger()

	runner := &remoteaction.Runner{Caller: s.caller(settings), Confirmer: surface, Logger: &logger}
	outcome, err := runner.Run(ctx, remoteaction.Request{
		Operation: frappe.MethodCreateDeleteWebhooks,
		Args:      map[string]string{"settings": settings, "action": string(action)},
		Prompt:    text.prompt,
		OnSuccess: func(ctx context.Context, _ remoteaction.Response) {
			surface.Notify(ctx, ui.Notice{Message: text.success, Indicator: ui.Green})
			if err := surface.Reload(ctx); err != nil {
				logger.Warn().Err(err).Msg("reload settings")
			}
		},
		OnFailure: func(ctx context.Context, resp remoteaction.Response) {
			surface.Notify(ctx, ui.Notice{Message: text.failure, Indicator: ui.Red})
			if len(resp.ServerMessages) > 0 {
				logger.Warn().Strs("server_messages", resp.ServerMessages).Msg("webhook action rejected")
			}
		},
	})
	if err == nil && obs.WebhookActionTotal != nil {
		obs.WebhookActionTotal.WithLabelValues(string(action), outcome.String()).Inc()
	}
	return outcome, err
}

func (s *Service) caller(settings string) remoteaction.Caller {
	if s.Guard == nil {
		return s.Caller
	}
	return remoteaction.CallerFunc(func(ctx context.Context, operation string, args map[string]string) remoteaction.Response {
		var resp remoteaction.Response
		err := s.Guard.TryWithLock(ctx, "stripe-settings:"+settings, s.LockTTL, func(ctx context.Context) error {
			resp = s.Caller.Call(ctx, operation, args)
			return nil
		})
		if err != nil {
			return remoteaction.Response{Err: fmt.Errorf("webhooks for %s: %w", settings, err)}
		}
		return resp
	})
}
