package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/paydesk/internal/remoteaction"
	"github.com/noah-isme/paydesk/internal/webhooks"
)

func newWebhooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Manage the Stripe webhooks of a Stripe Settings record",
	}
	cmd.AddCommand(
		newWebhookActionCmd(webhooks.Create, "Register the Stripe webhook endpoints"),
		newWebhookActionCmd(webhooks.Delete, "Remove the Stripe webhook endpoints"),
	)
	return cmd
}

func newWebhookActionCmd(action webhooks.Action, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(action),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, _ := cmd.Flags().GetString("settings")
			assumeYes, _ := cmd.Flags().GetBool("yes")

			deps, cleanup, err := loadDeps(cmd)
			defer cleanup()
			if err != nil {
				return err
			}

			term := terminalFor(cmd, assumeYes)
			reloader := &webhooks.SettingsReloader{
				Fetcher: deps.Frappe,
				Name:    settings,
				OnReload: func(s webhooks.StripeSettings) {
					state := "not configured"
					if s.WebhookConfigured() {
						state = "configured"
					}
					fmt.Fprintf(term.Out, "%s %s: webhook %s\n", webhooks.SettingsDoctype, s.Name, state)
				},
			}
			surface := webhooks.Surface{Confirmer: term, Notifier: term, Reloader: reloader}

			outcome, err := deps.WebhookService().Run(cmd.Context(), action, settings, surface)
			if err != nil {
				return usageError{err}
			}
			if outcome == remoteaction.Failed {
				return errActionFailed
			}
			return nil
		},
	}
	cmd.Flags().String("settings", "", "Name of the Stripe Settings record")
	cmd.Flags().BoolP("yes", "y", false, "Confirm without prompting")
	_ = cmd.MarkFlagRequired("settings")
	return cmd
}
