package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/dealmap/promo-cli/internal/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Normalize scraped text and print its content hash",
	Long: `Runs the change-detection normalizer over a file (or stdin) and prints
the normalized text and its content hash. Useful for checking why two
scrapes of the same page did or did not hash identically.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().Bool("hash-only", false, "print only the content hash")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return eris.Wrap(err, "read stdin")
		}
	}

	text := string(data)
	hashOnly, _ := cmd.Flags().GetBool("hash-only")
	if !hashOnly {
		fmt.Println(normalize.NormalizeText(text))
	}
	fmt.Println(normalize.ContentHash(text))
	return nil
}
