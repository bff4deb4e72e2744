package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dotsocr/internal/api"
	"dotsocr/internal/client"
	"dotsocr/internal/config"
	"dotsocr/internal/fileutil"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	var flags parseFlags
	var endpoint string
	var outputPath string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse <path>",
		Short: "Parse an image or PDF synchronously and print the layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			kind := strings.ToLower(strings.TrimSpace(endpoint))
			if kind == "" || kind == "auto" {
				kind = endpointFor(path)
			}
			return ctx.withClient(func(cl *client.Client) error {
				result, err := cl.Parse(cmd.Context(), kind, path, flags.options())
				if err != nil {
					return err
				}
				if outputPath != "" {
					if err := writeResult(outputPath, result); err != nil {
						return err
					}
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Parsed %s: %d page(s)\n", filepath.Base(path), result.TotalPages)
				fmt.Fprint(out, renderTable(
					[]string{"Page", "Elements", "Filtered"},
					pageRows(result),
					[]columnAlignment{alignRight, alignRight, alignLeft},
				))
				if outputPath != "" {
					fmt.Fprintf(out, "Wrote %s\n", outputPath)
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&endpoint, "as", "auto", "Endpoint to use: image, pdf, file, or auto")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Also write the JSON result to this path")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full JSON result")
	return cmd
}

func endpointFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "pdf"
	case ".png", ".jpg", ".jpeg":
		return "image"
	default:
		return "file"
	}
}

func pageRows(result api.ParseResult) [][]string {
	rows := make([][]string, 0, len(result.Results))
	for _, page := range result.Results {
		rows = append(rows, []string{
			strconv.Itoa(page.PageNo),
			strconv.Itoa(len(page.FullLayoutInfo)),
			yesNo(page.Filtered),
		})
	}
	return rows
}

func writeResult(target string, result api.ParseResult) error {
	target, err := config.ExpandPath(target)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	_, err = fileutil.WriteFileVerified(target, append(data, '\n'), 0o644)
	return err
}
