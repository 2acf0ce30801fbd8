package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/viper"

	"github.com/jamesainslie/reclaim/pkg/reclaim/output"
)

// formatNames lists the registered output formats for help text.
func formatNames() []string {
	names := output.Available()
	sort.Strings(names)
	return names
}

// formatter returns the formatter selected by --output and --template.
func formatter() (output.Formatter, error) {
	if tmpl := viper.GetString("template"); tmpl != "" {
		return output.NewTemplateFormatter(tmpl), nil
	}

	name := viper.GetString("output")
	if name == "" {
		name = "pretty"
	}
	f, err := output.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", name, formatNames())
	}
	return f, nil
}

// render formats r to stdout.
func render(r *output.Report) error {
	f, err := formatter()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := f.Format(&buf, r); err != nil {
		return fmt.Errorf("format output: %w", err)
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}

// isPretty reports whether output is meant for a person at a terminal.
func isPretty() bool {
	return viper.GetString("template") == "" && viper.GetString("output") == "pretty"
}
