package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tamsen/simdcsv/pkg/assembler"
	"github.com/tamsen/simdcsv/pkg/csvio"
	"github.com/tamsen/simdcsv/pkg/indexer"
	"github.com/tamsen/simdcsv/pkg/types"
)

var benchUseIndexer bool

var benchCmd = &cobra.Command{
	Use:   "bench [file]",
	Short: "Benchmark the lexer or indexer path over a CSV file",
	Long: `Run one parse pass over file, timing it and reporting throughput.
By default this exercises the character-granularity Lexer/Assembler path;
--indexer switches to the Separator Indexer path, reporting which
ScanBackend (scalar or simd) is active.

Example:
  simdcsv bench data.csv
  simdcsv bench --indexer data.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		info, err := os.Stat(filePath)
		if err != nil {
			return fmt.Errorf("failed to stat file: %w", err)
		}

		opts, err := buildOptions(filePath)
		if err != nil {
			return err
		}

		start := time.Now()
		var rowCount int
		var backendName string

		if benchUseIndexer {
			rowCount, backendName, err = benchIndexer(filePath, opts)
		} else {
			rowCount, err = benchLexer(filePath, opts)
			backendName = "lexer"
		}
		if err != nil {
			return err
		}

		duration := time.Since(start)
		bytesPerSecond := float64(info.Size()) / duration.Seconds()

		fmt.Printf("File: %s\n", filePath)
		fmt.Printf("  Backend: %s\n", backendName)
		fmt.Printf("  Size: %.2f MB\n", float64(info.Size())/1024/1024)
		fmt.Printf("  Rows: %d\n", rowCount)
		fmt.Printf("  Time: %v\n", duration)
		fmt.Printf("  Speed: %.2f MB/s\n", bytesPerSecond/1024/1024)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().BoolVar(&benchUseIndexer, "indexer", false, "benchmark the Separator Indexer path instead of the Lexer path")
}

func benchLexer(filePath string, opts types.Options) (int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader, err := csvio.NewReader(file, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to create reader: %w", err)
	}

	var rowCount int
	for {
		_, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return rowCount, err
		}
		rowCount++
	}
	return rowCount, nil
}

const benchChunkSize = 1 << 20

func benchIndexer(filePath string, opts types.Options) (int, string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	backend := indexer.SelectBackend()
	stream, err := indexer.NewTokenStream(opts, backend)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create token stream: %w", err)
	}
	asm, err := assembler.New(opts)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create assembler: %w", err)
	}

	var rowCount int
	buf := make([]byte, benchChunkSize)
	for {
		n, readErr := file.Read(buf)
		if n > 0 {
			tokens, err := stream.Index(buf[:n], true)
			if err != nil {
				return rowCount, backend.Name(), err
			}
			for rec, err := range asm.AssembleSlice(tokens) {
				if err != nil {
					return rowCount, backend.Name(), err
				}
				_ = rec
				rowCount++
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return rowCount, backend.Name(), readErr
		}
	}

	tokens, err := stream.Flush()
	if err != nil {
		return rowCount, backend.Name(), err
	}
	for rec, err := range asm.AssembleSlice(tokens) {
		if err != nil {
			return rowCount, backend.Name(), err
		}
		_ = rec
		rowCount++
	}
	for rec, err := range asm.Flush() {
		if err != nil {
			return rowCount, backend.Name(), err
		}
		_ = rec
		rowCount++
	}

	return rowCount, backend.Name(), nil
}
