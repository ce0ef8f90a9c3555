package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tamsen/simdcsv/pkg/csvio"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse and print CSV file contents",
	Long: `Parse and display the contents of a CSV file, one tab-separated line
per record.

Example:
  simdcsv parse data.csv
  simdcsv parse --delimiter=";" --quote="'" data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		file, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("error opening file: %w", err)
		}
		defer file.Close()

		opts, err := buildOptions(filePath)
		if err != nil {
			return err
		}

		reader, err := csvio.NewReader(file, opts)
		if err != nil {
			return fmt.Errorf("error creating reader: %w", err)
		}

		for {
			record, err := reader.Read()
			if err != nil {
				if err == io.EOF {
					break
				}
				return fmt.Errorf("error reading record: %w", err)
			}
			for i, field := range record.Fields {
				if i > 0 {
					fmt.Print("\t")
				}
				fmt.Print(field)
			}
			fmt.Println()
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
