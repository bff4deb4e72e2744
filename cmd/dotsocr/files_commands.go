package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dotsocr/internal/api"
	"dotsocr/internal/client"
	"dotsocr/internal/config"
)

func newFilesCommand(ctx *commandContext) *cobra.Command {
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "Manage uploaded documents",
	}
	filesCmd.AddCommand(newFilesUploadCommand(ctx))
	filesCmd.AddCommand(newFilesListCommand(ctx))
	filesCmd.AddCommand(newFilesGetCommand(ctx))
	return filesCmd
}

func newFilesUploadCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload one or more images or PDFs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				uploaded := make([]api.UploadResponse, 0, len(args))
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return err
					}
					resp, err := cl.Upload(cmd.Context(), path)
					if err != nil {
						return fmt.Errorf("upload %s: %w", filepath.Base(path), err)
					}
					uploaded = append(uploaded, resp)
				}
				if asJSON {
					return writeJSON(cmd, uploaded)
				}
				out := cmd.OutOrStdout()
				for _, resp := range uploaded {
					fmt.Fprintf(out, "Uploaded %s as %s (%s)\n", resp.Filename, resp.ID, formatBytes(resp.Size))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newFilesListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				files, err := cl.ListFiles(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, files)
				}
				out := cmd.OutOrStdout()
				if len(files) == 0 {
					fmt.Fprintln(out, "No files uploaded")
					return nil
				}
				rows := make([][]string, 0, len(files))
				for _, f := range files {
					rows = append(rows, []string{f.ID, f.Filename, formatBytes(f.Size), formatWhen(f.CreatedAt)})
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Filename", "Size", "Uploaded"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newFilesGetCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Download an uploaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withClient(func(cl *client.Client) error {
				target := outputPath
				if target == "" {
					name, err := storedFilename(cmd, cl, id)
					if err != nil {
						return err
					}
					target = name
				}
				n, err := downloadTo(target, func(f *os.File) (int64, error) {
					return cl.DownloadFile(cmd.Context(), id, f)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", target, formatBytes(n))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination path (defaults to the original filename)")
	return cmd
}

func storedFilename(cmd *cobra.Command, cl *client.Client, id string) (string, error) {
	files, err := cl.ListFiles(cmd.Context())
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if f.ID == id {
			return filepath.Base(f.Filename), nil
		}
	}
	return "", fmt.Errorf("file %s not found", strconv.Quote(id))
}

// downloadTo writes into a temp file beside target and renames it on success.
func downloadTo(target string, fetch func(*os.File) (int64, error)) (int64, error) {
	target, err := config.ExpandPath(target)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	n, err := fetch(tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("finalize output file: %w", err)
	}
	return n, nil
}
