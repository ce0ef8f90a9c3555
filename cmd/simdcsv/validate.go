package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tamsen/simdcsv/pkg/csvio"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate CSV file structure",
	Long: `Validate a CSV file by running it through the full lexer/assembler
pipeline and reporting any parse error (malformed quoting, a buffer or
field-count limit exceeded, or an unexpected EOF inside a quoted field).

Example:
  simdcsv validate data.csv
  simdcsv validate --strict data.csv`,
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

		var rowCount, fieldCount int
		for {
			record, err := reader.Read()
			if err != nil {
				if err == io.EOF {
					break
				}
				fmt.Printf("Rows processed: %d\n", rowCount)
				return fmt.Errorf("validation failed at row %d: %w", rowCount+1, err)
			}
			rowCount++
			if rowCount == 1 {
				fieldCount = len(record.Fields)
			}
		}

		fmt.Printf("File: %s\n", filePath)
		fmt.Printf("Rows processed: %d\n", rowCount)
		fmt.Printf("Columns per row: %d\n", fieldCount)
		fmt.Println("Validation successful! No errors found.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
