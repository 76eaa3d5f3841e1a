package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
)

const (
	outputJSON = "json"
	outputText = "text"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// render writes v as indented JSON, or calls text with a tab-aligned writer
// when --output text was requested.
func render(v any, text func(w io.Writer)) error {
	return renderTo(os.Stdout, outputFmt, v, text)
}

func renderTo(out io.Writer, format string, v any, text func(w io.Writer)) error {
	if format == outputText && text != nil {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		text(tw)
		return tw.Flush()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// row writes tab separated cells followed by a newline.
func row(w io.Writer, cells ...any) {
	for i, c := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}
