package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/itohio/golarder/pkg/config"
	"github.com/itohio/golarder/pkg/logging"
	"github.com/itohio/golarder/pkg/scale"
	"github.com/spf13/cobra"
)

func newCalibrateCmd() *cobra.Command {
	var (
		known   float64
		samples int
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Derive the scale factor from a known weight",
		Example: `  larder calibrate --known 100
  larder calibrate --known 500 --samples 20 --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := connectDevice(cfg)
			if err != nil {
				return err
			}
			defer dev.Close()

			factor, err := calibrate(cmd.InOrStdin(), cmd.OutOrStdout(), scale.New(dev, cfg.Scale), cfg.Scale, samples, known)
			if err != nil {
				return err
			}

			if save {
				cfg.Scale.Factor = factor
				if err := cfg.Save(configFlag); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved factor to %s\n", configFlag)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&known, "known", 0, "weight of the reference item in the desired units")
	cmd.Flags().IntVar(&samples, "samples", 10, "readings averaged for the measurement")
	cmd.Flags().BoolVar(&save, "save", false, "write the factor to the configuration file")
	_ = cmd.MarkFlagRequired("known")
	return cmd
}

// calibrate prints raw diagnostics, tares the empty scale, waits for the
// operator to place the reference weight and returns the new factor.
func calibrate(in io.Reader, out io.Writer, s *scale.Scale, cfg config.ScaleConfig, samples int, known float64) (float64, error) {
	head := color.New(color.FgHiCyan, color.Bold)
	ok := color.New(color.FgHiGreen, color.Bold)
	reader := bufio.NewReader(in)

	head.Fprintln(out, "Before setting up the scale:")
	if err := printReadings(out, s); err != nil {
		return 0, err
	}

	fmt.Fprint(out, "Remove everything from the scale and press Enter...")
	if _, err := reader.ReadString('\n'); err != nil && err != io.EOF {
		return 0, err
	}
	if err := s.Tare(cfg.TareSamples); err != nil {
		return 0, err
	}
	fmt.Fprintf(out, "Tared at %.1f counts\n", s.Offset())

	fmt.Fprintf(out, "Place %g on the scale and press Enter...", known)
	if _, err := reader.ReadString('\n'); err != nil && err != io.EOF {
		return 0, err
	}

	factor, err := s.Calibrate(samples, known)
	if err != nil {
		return 0, err
	}

	head.Fprintln(out, "After setting up the scale:")
	if err := printReadings(out, s); err != nil {
		return 0, err
	}
	ok.Fprintf(out, "factor: %.4f\n", factor)
	return factor, nil
}

// readings are the raw diagnostics of a scale.
type readings struct {
	Raw     float64
	Average float64
	Value   float64
	Units   float64
}

func readScale(s *scale.Scale) (readings, error) {
	var (
		r   readings
		err error
	)
	if r.Raw, err = s.Read(1); err != nil {
		return r, err
	}
	if r.Average, err = s.Read(20); err != nil {
		return r, err
	}
	if r.Value, err = s.Value(5); err != nil {
		return r, err
	}
	if r.Units, err = s.Units(5); err != nil {
		return r, err
	}
	return r, nil
}

func printReadings(out io.Writer, s *scale.Scale) error {
	r, err := readScale(s)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "read: \t\t%.0f\n", r.Raw)
	fmt.Fprintf(out, "read average: \t%.1f\n", r.Average)
	fmt.Fprintf(out, "get value: \t%.1f\n", r.Value)
	fmt.Fprintf(out, "get units: \t%.1f\n", r.Units)
	return nil
}

// logReadings logs the raw diagnostics at debug level.
func logReadings(logger logging.Logger, title string, s *scale.Scale) error {
	r, err := readScale(s)
	if err != nil {
		return fmt.Errorf("%s: %w", strings.ToLower(title), err)
	}
	logger.Debug("%s: read %.0f, read average %.1f, get value %.1f, get units %.1f", title, r.Raw, r.Average, r.Value, r.Units)
	return nil
}
