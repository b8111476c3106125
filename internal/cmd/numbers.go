package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/astralmap/astralmap/internal/core"
	"github.com/astralmap/astralmap/internal/core/engine"
	"github.com/astralmap/astralmap/internal/observability"
	"github.com/astralmap/astralmap/internal/output"
)

var numbersCmd = &cobra.Command{
	Use:   "numbers",
	Short: "Derive the numerology bundle for a name and birth date",
	Long: `Derive essence, image, mission, life path, karmas, karmic debt, pinnacles and
challenges from a full name and a YYYY-MM-DD birth date. No AI call is made.`,
	Example: `  astralmap numbers --name "Ana María López" --dob 1990-07-15
  astralmap numbers --name "Ana María López" --dob 1990-07-15 --format json`,
	Args: cobra.NoArgs,
	RunE: runNumbers,
}

func init() {
	rootCmd.AddCommand(numbersCmd)

	numbersCmd.Flags().String("name", "", "Full name as written on the birth certificate")
	numbersCmd.Flags().String("dob", "", "Date of birth (YYYY-MM-DD)")
	numbersCmd.Flags().StringP("format", "f", "table", "Output format: table, json, markdown")
	numbersCmd.Flags().String("out", "", "Write output to file instead of stdout")
	_ = numbersCmd.MarkFlagRequired("name")
	_ = numbersCmd.MarkFlagRequired("dob")
}

func runNumbers(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	dob, _ := cmd.Flags().GetString("dob")
	outPath, _ := cmd.Flags().GetString("out")

	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	req := core.NumerologyRequest{FullName: name, DOB: dob}
	bundle, err := (&engine.Orchestrator{}).Numbers(req)
	if err != nil {
		return err
	}
	observability.CLILogger.Debug("Derived numerology bundle",
		zap.Int("life_path", bundle.LifePath),
		zap.Int("essence", bundle.Essence))

	rendered, err := output.NewFormatter(format).FormatNumbers(req, bundle)
	if err != nil {
		return err
	}

	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer sink.close() // nolint:errcheck
	_, err = fmt.Fprintln(sink.writer, rendered)
	return err
}
