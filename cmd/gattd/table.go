package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/srg/gattd/internal/profile"
)

// tableCmd previews the services of a profile without touching the adapter
var tableCmd = &cobra.Command{
	Use:   "table <profile.yaml>",
	Short: "Show the attribute table of a profile",
	Long: `Build the services declared by a profile and print their characteristics,
properties, permissions and initial values. Handles are assigned by the BLE
stack and are only shown by serve.`,
	Args: cobra.ExactArgs(1),
	RunE: runTable,
}

var tableDescriptors bool

func init() {
	tableCmd.Flags().BoolVarP(&tableDescriptors, "descriptors", "D", false, "Also list descriptors")
}

func runTable(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	p, err := profile.Load(args[0])
	if err != nil {
		return err
	}
	services, err := p.Build()
	if err != nil {
		return fmt.Errorf("invalid profile %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	rows := serviceRows(services)
	if err := renderAttributes(out, rows, false); err != nil {
		return err
	}
	if tableDescriptors {
		fmt.Fprintln(out)
		if err := renderDescriptors(out, rows); err != nil {
			return err
		}
	}

	beacon, err := p.BuildBeacon()
	if err != nil {
		return fmt.Errorf("invalid profile %s: %w", args[0], err)
	}
	if beacon != nil {
		fmt.Fprintf(out, "\niBeacon %s major=%d minor=%d power=%d dBm\n",
			beacon.UUID, beacon.Major, beacon.Minor, beacon.MeasuredPower)
	}
	return nil
}
