// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pan-scan/internal/resilience"
	"pan-scan/internal/suppressions"
)

func (a *app) suppressCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suppress",
		Short: "Manage suppression rules for known findings",
		Long: `Suppression rules hide findings by masked number, optionally limited to
sources matching a glob. Suppressed findings are reported separately and do
not affect the exit code.`,
	}
	cmd.AddCommand(
		a.suppressListCommand(),
		a.suppressAddCommand(),
		a.suppressIDCommand("remove", "Delete a rule", (*suppressions.SuppressionManager).RemoveSuppression, "Removed"),
		a.suppressIDCommand("disable", "Keep a rule but stop applying it", (*suppressions.SuppressionManager).DisableSuppressionByID, "Disabled"),
		a.suppressCleanupCommand(),
	)
	return cmd
}

func (a *app) suppressionManager() (*suppressions.SuppressionManager, error) {
	a.started = true
	return suppressions.NewSuppressionManager(a.cfg.Suppressions)
}

func (a *app) suppressListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List suppression rules",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			sm, err := a.suppressionManager()
			if err != nil {
				return err
			}
			rules := sm.ListSuppressions()
			out := a.opts.Stdout
			if len(rules) == 0 {
				fmt.Fprintf(out, "No suppression rules in %s\n", sm.GetConfigPath())
				return nil
			}

			now := time.Now()
			fmt.Fprintf(out, "Found %d suppression rules in %s:\n", len(rules), sm.GetConfigPath())
			for _, rule := range rules {
				state := "active"
				switch {
				case !rule.Enabled:
					state = "disabled"
				case !rule.Active(now):
					state = "expired"
				}
				fmt.Fprintf(out, "\nID: %s (%s)\n", rule.ID, state)
				fmt.Fprintf(out, "Masked: %s\n", rule.MaskedNumber)
				if rule.Source != "" {
					fmt.Fprintf(out, "Source: %s\n", rule.Source)
				}
				fmt.Fprintf(out, "Reason: %s\n", rule.Reason)
				if rule.CreatedBy != "" {
					fmt.Fprintf(out, "Created By: %s\n", rule.CreatedBy)
				}
				fmt.Fprintf(out, "Created At: %s\n", rule.CreatedAt.Format(time.DateTime))
				if rule.ExpiresAt != nil {
					fmt.Fprintf(out, "Expires At: %s\n", rule.ExpiresAt.Format(time.DateTime))
				}
			}
			return nil
		},
	}
}

func (a *app) suppressAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <masked-number>",
		Short: "Suppress a finding, e.g. add 453201...0366 --reason 'test card'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			reason, _ := f.GetString("reason")
			source, _ := f.GetString("source")
			createdBy, _ := f.GetString("created-by")
			expires, _ := f.GetDuration("expires")
			if reason == "" {
				return resilience.NewConfigError("--reason is required")
			}
			if expires < 0 {
				return resilience.NewConfigError("--expires must not be negative")
			}
			if createdBy == "" {
				createdBy = os.Getenv("USER")
			}

			var expiresAt *time.Time
			if expires > 0 {
				t := time.Now().Add(expires).UTC()
				expiresAt = &t
			}

			sm, err := a.suppressionManager()
			if err != nil {
				return err
			}
			rule, err := sm.AddSuppression(args[0], source, reason, createdBy, expiresAt)
			if err != nil {
				return asConfigError(err)
			}
			fmt.Fprintf(a.opts.Stdout, "Added suppression rule %s\n", rule.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("reason", "", "why the finding is acceptable (required)")
	f.String("source", "", "only suppress in sources matching this glob, e.g. 'fixtures/*.csv'")
	f.String("created-by", "", "rule author (default $USER)")
	f.Duration("expires", suppressions.DefaultExpiry, "rule lifetime; 0 never expires")
	return cmd
}

func (a *app) suppressIDCommand(use, short string, action func(*suppressions.SuppressionManager, string) error, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sm, err := a.suppressionManager()
			if err != nil {
				return err
			}
			if err := action(sm, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.opts.Stdout, "%s suppression rule %s\n", done, args[0])
			return nil
		},
	}
}

func (a *app) suppressCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired rules",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			sm, err := a.suppressionManager()
			if err != nil {
				return err
			}
			removed, err := sm.CleanupExpired()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.opts.Stdout, "Cleaned up %d expired suppression rules\n", removed)
			return nil
		},
	}
}
