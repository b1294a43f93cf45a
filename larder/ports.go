package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/itohio/golarder/pkg/scale"
	"github.com/spf13/cobra"
)

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports the scale firmware may be attached to",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := scale.Ports()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "No serial ports found")
				return nil
			}

			name := color.New(color.FgHiWhite, color.Bold)
			for _, p := range ports {
				marker := " "
				if p.Name == cfg.Serial.Port {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name.Sprint(p.Name))
			}
			return nil
		},
	}
}
