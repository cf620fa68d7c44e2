package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
	"github.com/rishabhrocktheparty-ai/Blackgpt/provenance"
)

var (
	validateTags       []string
	validateSourceType string
	validateJSON       bool
)

// errRejected makes the process exit non-zero for hard rejections so the
// command can gate scripted uploads.
var errRejected = errors.New("signal rejected by provenance check")

var validateCmd = &cobra.Command{
	Use:   "validate [text]",
	Short: "Run the provenance check without storing anything",
	Long: `Run the same provenance check an upload goes through and print the verdict.

Exits non-zero when the signal would be rejected. A soft flag still exits 0.

Examples:
  blackgpt validate --tags reddit:public "BTC volume spiking on major exchanges"
  blackgpt validate --tags news:licensed,exchange:api --source-type NEWS_API "..."
  blackgpt validate --list`,
	Args: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list"); list {
			return nil
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringSliceVarP(&validateTags, "tags", "t", nil, "provenance tags")
	validateCmd.Flags().StringVarP(&validateSourceType, "source-type", "s", string(models.SourceManualUpload), "source type")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print the result as JSON")
	validateCmd.Flags().Bool("list", false, "list allowed tags and source types")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if list, _ := cmd.Flags().GetBool("list"); list {
		fmt.Fprintln(out, "Allowed tags:")
		for _, t := range provenance.AllowedTags() {
			fmt.Fprintf(out, "  %s\n", t)
		}
		fmt.Fprintln(out, "Allowed source types:")
		for _, s := range provenance.AllowedSourceTypes() {
			fmt.Fprintf(out, "  %s\n", s)
		}
		return nil
	}

	res := provenance.NewValidator().Validate(validateTags, models.SourceType(validateSourceType), strings.TrimSpace(args[0]))

	if validateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		switch {
		case !res.IsValid:
			fmt.Fprintf(out, "REJECTED: %s\n", res.Reason)
		case res.Flagged:
			fmt.Fprintf(out, "ACCEPTED (requires review): %s\n", res.Reason)
		default:
			fmt.Fprintln(out, "ACCEPTED")
		}
	}

	if !res.IsValid {
		return errRejected
	}
	return nil
}
