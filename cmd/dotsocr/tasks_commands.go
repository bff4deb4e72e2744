package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dotsocr/internal/api"
	"dotsocr/internal/client"
)

type parseFlags struct {
	promptMode string
	fitz       bool
	mock       bool
}

func (f *parseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.promptMode, "prompt-mode", "", "Parser prompt mode (defaults to prompt_layout_all_en)")
	cmd.Flags().BoolVar(&f.fitz, "fitz-preprocess", false, "Upsample images through the PDF renderer before parsing")
	cmd.Flags().BoolVar(&f.mock, "mock", false, "Produce canned output without invoking the model")
}

func (f *parseFlags) options() client.ParseOptions {
	return client.ParseOptions{
		PromptMode:     strings.TrimSpace(f.promptMode),
		FitzPreprocess: f.fitz,
		Mock:           f.mock,
	}
}

func newTasksCommand(ctx *commandContext) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Manage background parse tasks",
	}
	tasksCmd.AddCommand(newTasksParseCommand(ctx))
	tasksCmd.AddCommand(newTasksListCommand(ctx))
	tasksCmd.AddCommand(newTasksShowCommand(ctx))
	tasksCmd.AddCommand(newTasksWaitCommand(ctx))
	tasksCmd.AddCommand(newTasksDownloadCommand(ctx))
	return tasksCmd
}

func newTasksParseCommand(ctx *commandContext) *cobra.Command {
	var flags parseFlags
	var wait bool
	cmd := &cobra.Command{
		Use:   "parse <file-id>",
		Short: "Start a background parse of an uploaded file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				taskID, err := cl.CreateParseTask(cmd.Context(), strings.TrimSpace(args[0]), flags.options())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Task %s submitted\n", taskID)
				if !wait {
					return nil
				}
				task, err := cl.WaitTask(cmd.Context(), taskID, 500*time.Millisecond)
				if err != nil {
					return err
				}
				return reportFinished(cmd, task)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the task finishes")
	return cmd
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var statusFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List parse tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				tasks, err := cl.ListTasks(cmd.Context())
				if err != nil {
					return err
				}
				tasks = filterTasks(tasks, statusFilter)
				if asJSON {
					return writeJSON(cmd, tasks)
				}
				out := cmd.OutOrStdout()
				if len(tasks) == 0 {
					fmt.Fprintln(out, "No tasks")
					return nil
				}
				fmt.Fprint(out, renderTable(
					[]string{"ID", "Status", "Progress", "Label", "Created"},
					taskRows(tasks),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show tasks with this status")
	return cmd
}

func newTasksShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				task, err := cl.GetTask(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, task)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderDetails(taskDetails(task)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newTasksWaitCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "wait <task-id>",
		Short: "Wait for a task to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			waitCtx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				waitCtx, cancel = context.WithTimeout(waitCtx, timeout)
				defer cancel()
			}
			return ctx.withClient(func(cl *client.Client) error {
				task, err := cl.WaitTask(waitCtx, strings.TrimSpace(args[0]), interval)
				if err != nil {
					return err
				}
				return reportFinished(cmd, task)
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits forever)")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval")
	return cmd
}

func newTasksDownloadCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "download <task-id>",
		Short: "Download the zipped results of a finished task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			target := outputPath
			if target == "" {
				target = id + ".zip"
			}
			return ctx.withClient(func(cl *client.Client) error {
				n, err := downloadTo(target, func(f *os.File) (int64, error) {
					return cl.DownloadResult(cmd.Context(), id, f)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", target, formatBytes(n))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination path (defaults to <task-id>.zip)")
	return cmd
}

func reportFinished(cmd *cobra.Command, task api.TaskInfo) error {
	out := cmd.OutOrStdout()
	if task.Status == "failed" {
		msg := "unknown error"
		if task.Error != nil {
			msg = *task.Error
		}
		return fmt.Errorf("task %s failed: %s", task.ID, msg)
	}
	fmt.Fprintf(out, "Task %s %s\n", task.ID, task.Status)
	return nil
}

func filterTasks(tasks []api.TaskInfo, status string) []api.TaskInfo {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return tasks
	}
	filtered := make([]api.TaskInfo, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == status {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

func taskRows(tasks []api.TaskInfo) [][]string {
	sorted := append([]api.TaskInfo(nil), tasks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt > sorted[j].CreatedAt
	})
	rows := make([][]string, 0, len(sorted))
	for _, task := range sorted {
		rows = append(rows, []string{
			task.ID,
			titleStatus(task.Status),
			strconv.Itoa(task.Progress) + "%",
			dash(task.Label),
			formatWhen(task.CreatedAt),
		})
	}
	return rows
}

func taskDetails(task api.TaskInfo) [][2]string {
	pairs := [][2]string{
		{"ID", task.ID},
		{"Status", titleStatus(task.Status)},
		{"Progress", strconv.Itoa(task.Progress) + "%"},
		{"Label", dash(task.Label)},
		{"Created", dash(task.CreatedAt)},
		{"Started", dash(task.StartedAt)},
		{"Finished", dash(task.FinishedAt)},
	}
	if task.Error != nil {
		pairs = append(pairs, [2]string{"Error", *task.Error})
	}
	keys := make([]string, 0, len(task.Artifacts))
	for key := range task.Artifacts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		pairs = append(pairs, [2]string{key, task.Artifacts[key]})
	}
	return pairs
}
