// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package main

//go:generate go run gen-docs.go --path ../../docs

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	hoptracecmd "github.com/telekom/hoptrace/cmd"
)

func main() {
	if err := NewCmdGenDocs().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewCmdGenDocs creates the command generating the CLI reference of hoptrace
func NewCmdGenDocs() *cobra.Command {
	var (
		path   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "gen-docs",
		Short: "Generates docs for hoptrace",
		Long:  "Generate the reference of all hoptrace commands and their flags as markdown or man pages",
		RunE: func(_ *cobra.Command, _ []string) error {
			return genDocs(hoptracecmd.BuildCmd(""), path, format)
		},
	}

	cmd.Flags().StringVar(&path, "path", "docs", "directory path where the files will be created")
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown or man")

	return cmd
}

func genDocs(root *cobra.Command, path, format string) error {
	root.DisableAutoGenTag = true
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("failed to create docs directory: %w", err)
	}

	var err error
	switch format {
	case "markdown":
		err = doc.GenMarkdownTree(root, path)
	case "man":
		err = doc.GenManTree(root, &doc.GenManHeader{Title: "HOPTRACE", Section: "1"}, path)
	default:
		return fmt.Errorf("unknown docs format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to generate docs: %w", err)
	}
	return nil
}
