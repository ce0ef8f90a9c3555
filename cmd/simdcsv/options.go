package main

import (
	"fmt"

	"github.com/tamsen/simdcsv/pkg/types"
)

func buildOptions(source string) (types.Options, error) {
	delimRunes := []rune(delimiter)
	if len(delimRunes) != 1 {
		return types.Options{}, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
	}
	quoteRunes := []rune(quote)
	if len(quoteRunes) != 1 {
		return types.Options{}, fmt.Errorf("quote must be a single character, got %q", quote)
	}

	opts := types.Options{
		Delimiter:     delimRunes[0],
		Quotation:     quoteRunes[0],
		Source:        source,
		StrictQuoting: strict,
	}.WithDefaults()

	if err := opts.Validate(); err != nil {
		return types.Options{}, err
	}
	return opts, nil
}
