package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/PaesslerAG/jsonpath"
	"github.com/charmbracelet/glamour"
)

// outputFlags select how a report is printed: markdown for humans, JSON for scripts.
type outputFlags struct {
	json  bool
	query string
}

func (o *outputFlags) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&o.json, "json", false, "Print the report as JSON")
	f.StringVar(&o.query, "q", "", "JSONPath expression selecting a part of the JSON report, e.g. '$.taxableGain.amount'")
}

// print writes v as JSON when requested, or the markdown report otherwise.
func (o *outputFlags) print(v any, markdown string) error {
	if !o.json && o.query == "" {
		printMarkdown(markdown)
		return nil
	}
	out, err := selectJSON(v, o.query)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// selectJSON encodes v, and applies the JSONPath query if any.
// A selected string is returned unquoted.
func selectJSON(v any, query string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("could not encode report: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("could not decode report: %w", err)
	}
	if query != "" {
		doc, err = jsonpath.Get(query, doc)
		if err != nil {
			return "", usagef("invalid query %q: %v", query, err)
		}
	}
	if s, ok := doc.(string); ok {
		return s, nil
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not encode selection: %w", err)
	}
	return string(out), nil
}

// printMarkdown renders md for the terminal, and falls back to the raw markdown.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Println(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Fprint(os.Stdout, out)
}
