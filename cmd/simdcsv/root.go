// Package main implements the simdcsv command-line harness: parse, bench,
// and validate subcommands over the lexer/assembler/indexer core, grounded
// on ooyeku/csv_parser's cmd/ package (parse.go, bench.go, validate.go).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	delimiter string
	quote     string
	strict    bool
)

var rootCmd = &cobra.Command{
	Use:   "simdcsv",
	Short: "Inspect and benchmark CSV files with the simdcsv lexer/assembler/indexer core",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&delimiter, "delimiter", "d", ",", "field delimiter character")
	rootCmd.PersistentFlags().StringVarP(&quote, "quote", "q", "\"", "quote character")
	rootCmd.PersistentFlags().BoolVarP(&strict, "strict", "s", false, "reject unescaped quotes in unquoted fields")
}
