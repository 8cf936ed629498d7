package main

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/paydesk/internal/checkout"
	"github.com/noah-isme/paydesk/internal/remoteaction"
)

func newPayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Fetch the gateway checkout URL for a payment request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doctype, _ := cmd.Flags().GetString("doctype")
			name, _ := cmd.Flags().GetString("name")
			gateway, _ := cmd.Flags().GetString("gateway")

			button := checkout.ButtonFromAttrs(map[string]string{
				checkout.AttrReferenceDoctype: doctype,
				checkout.AttrReferenceName:    name,
				checkout.AttrGateway:          gateway,
			})
			if err := button.Validate(); err != nil {
				return usageError{err}
			}

			deps, cleanup, err := loadDeps(cmd)
			defer cleanup()
			if err != nil {
				return err
			}
			redirector := &checkout.Redirector{
				Caller: deps.Frappe,
				Logger: deps.Logger.With().Str("component", "checkout").Logger(),
			}
			outcome, err := redirector.Click(cmd.Context(), button, terminalFor(cmd, false))
			if err != nil {
				return err
			}
			if outcome == remoteaction.Failed {
				return errActionFailed
			}
			return nil
		},
	}
	cmd.Flags().String("doctype", "", "Reference doctype, e.g. \"Sales Invoice\"")
	cmd.Flags().String("name", "", "Reference document name")
	cmd.Flags().String("gateway", "", "Payment gateway name")
	for _, f := range []string{"doctype", "name", "gateway"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
