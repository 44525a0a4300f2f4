// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pan-scan/internal/core"
	"pan-scan/internal/formatters"
)

func (a *app) capabilitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List the adapters in this binary and whether they can run",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			statuses := core.BuildCapabilities(a.cfg).List()

			switch a.cfg.Defaults.Format {
			case "json":
				enc := json.NewEncoder(a.opts.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(statuses)
			case "yaml":
				return yaml.NewEncoder(a.opts.Stdout).Encode(statuses)
			}

			yes := color.New(color.FgGreen)
			no := color.New(color.FgRed)
			if a.noColor() {
				yes.DisableColor()
				no.DisableColor()
			}

			tw := tabwriter.NewWriter(a.opts.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ADAPTER\tKIND\tAVAILABLE\tDESCRIPTION")
			for _, s := range statuses {
				avail := yes.Sprint("yes")
				if !s.Available {
					avail = no.Sprint("no (" + s.Reason + ")")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Kind, avail, s.Description)
			}
			return tw.Flush()
		},
	}
}

func (a *app) formatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the report formats accepted by --format",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			infos := formatters.GetSupportedFormats()

			switch a.cfg.Defaults.Format {
			case "json":
				enc := json.NewEncoder(a.opts.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			case "yaml":
				return yaml.NewEncoder(a.opts.Stdout).Encode(infos)
			}

			tw := tabwriter.NewWriter(a.opts.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FORMAT\tEXTENSION\tMIME TYPE\tDESCRIPTION")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Name, info.Extension, info.MimeType, info.Description)
			}
			return tw.Flush()
		},
	}
}
