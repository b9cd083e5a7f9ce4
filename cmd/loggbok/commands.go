package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/hylla/loggbok/internal/adapters/server"
	"github.com/hylla/loggbok/internal/adapters/server/common"
	"github.com/hylla/loggbok/internal/app"
	"github.com/hylla/loggbok/internal/domain"
	"github.com/hylla/loggbok/internal/logstore"
	"github.com/hylla/loggbok/internal/merge"
	"github.com/hylla/loggbok/internal/render"
	"github.com/hylla/loggbok/internal/tui"
)

// newLogCommand records one raw event.
func newLogCommand(flags *rootFlags) *cobra.Command {
	var (
		kind      string
		entityID  string
		source    string
		timestamp string
		fields    []string
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record one event in the append-only log",
		Example: `  loggbok log --kind exercise.completed --field activity=run --field duration_min=30
  loggbok log --kind meeting.completed --entity m-20260829-001 --field title="weekly 1:1"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			payload, err := parsePayloadFields(fields)
			if err != nil {
				return err
			}
			in := domain.EventInput{
				Kind:     kind,
				Source:   source,
				EntityID: entityID,
				Payload:  payload,
			}
			if timestamp != "" {
				ts, parseErr := time.Parse(domain.TimestampLayout, timestamp)
				if parseErr != nil {
					return fmt.Errorf("parse --timestamp: %w", parseErr)
				}
				in.Timestamp = ts
			}

			event, err := rt.svc.RecordEvent(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s", event.Kind)
			if event.EntityID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " for %s", event.EntityID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), " at %s\n", event.Timestamp.Format(domain.TimestampLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "event kind, dotted domain.action (required)")
	cmd.Flags().StringVar(&entityID, "entity", "", "entity id the event belongs to")
	cmd.Flags().StringVar(&source, "source", "", "event source; defaults to manual")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "RFC 3339 timestamp; defaults to now")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "payload field as key=value, repeatable")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

// newEventsCommand lists raw events as JSON lines.
func newEventsCommand(flags *rootFlags) *cobra.Command {
	var (
		kindPrefix string
		source     string
		entityID   string
		start      string
		end        string
		service    string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List raw events in time order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			filter := logstore.Filter{
				KindPrefix: kindPrefix,
				Source:     source,
				EntityID:   entityID,
			}
			if start != "" {
				if filter.Start, err = time.Parse(domain.TimestampLayout, start); err != nil {
					return fmt.Errorf("parse --start: %w", err)
				}
			}
			if end != "" {
				if filter.End, err = time.Parse(domain.TimestampLayout, end); err != nil {
					return fmt.Errorf("parse --end: %w", err)
				}
			}

			var events []domain.Event
			if service != "" {
				events, err = rt.store.ReadService(cmd.Context(), service, filter)
			} else {
				events, err = rt.svc.ListEvents(cmd.Context(), filter)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, event := range events {
				if encErr := enc.Encode(event); encErr != nil {
					return encErr
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kindPrefix, "kind", "", "kind prefix filter, matched on dot boundaries")
	cmd.Flags().StringVar(&source, "source", "", "source filter")
	cmd.Flags().StringVar(&entityID, "entity", "", "entity id filter")
	cmd.Flags().StringVar(&start, "start", "", "inclusive RFC 3339 lower bound")
	cmd.Flags().StringVar(&end, "end", "", "exclusive RFC 3339 upper bound")
	cmd.Flags().StringVar(&service, "service", "", "read one sync service's log instead of the primary")
	return cmd
}

// newTasksCommand renders the task board.
func newTasksCommand(flags *rootFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Show open tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			var tasks []domain.TaskView
			if all {
				tasks, err = rt.svc.AllTasks(cmd.Context())
			} else {
				tasks, err = rt.svc.OpenTasks(cmd.Context())
			}
			if err != nil {
				return err
			}
			markdown := render.OpenTasksMarkdown(tasks)
			if all {
				markdown = render.AllTasksMarkdown(tasks)
			}
			return printMarkdown(cmd, rt, markdown)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include completed and abandoned tasks")
	return cmd
}

// newGoalsCommand renders the goal list.
func newGoalsCommand(flags *rootFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Show active goals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			var goals []domain.GoalView
			if all {
				goals, err = rt.svc.AllGoals(cmd.Context())
			} else {
				goals, err = rt.svc.ActiveGoals(cmd.Context())
			}
			if err != nil {
				return err
			}
			markdown := render.ActiveGoalsMarkdown(goals)
			if all {
				markdown = render.AllGoalsMarkdown(goals)
			}
			return printMarkdown(cmd, rt, markdown)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include achieved and abandoned goals")
	return cmd
}

// newWeekCommand renders the trailing-week summary.
func newWeekCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show the trailing seven-day summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			summary, err := rt.svc.WeeklySummary(cmd.Context())
			if err != nil {
				return err
			}
			return printMarkdown(cmd, rt, render.WeeklySummaryMarkdown(summary))
		},
	}
}

// newTaskCommand groups the task lifecycle subcommands.
func newTaskCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create and close tasks",
	}
	cmd.AddCommand(
		newTaskAddCommand(flags),
		newTaskCloseCommand(flags, "done", "Mark a task completed",
			func(svc *app.Service) closeFunc { return svc.CompleteTask }),
		newTaskCloseCommand(flags, "drop", "Mark a task abandoned",
			func(svc *app.Service) closeFunc { return svc.AbandonTask }),
	)
	return cmd
}

// newTaskAddCommand creates one task with a generated day-scoped id.
func newTaskAddCommand(flags *rootFlags) *cobra.Command {
	var in app.CreateTaskInput
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			in.Title = strings.Join(args, " ")
			event, err := rt.svc.CreateTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s  %s\n", event.EntityID, in.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Area, "area", "", "life area, e.g. work or health")
	cmd.Flags().StringVar(&in.Due, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "priority label")
	return cmd
}

type closeFunc func(ctx context.Context, id string) (domain.Event, error)

// newTaskCloseCommand builds a terminal-record subcommand for tasks.
func newTaskCloseCommand(flags *rootFlags, use, short string, pick func(*app.Service) closeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			event, err := pick(rt.svc)(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", event.Kind, event.EntityID)
			return nil
		},
	}
}

// newGoalCommand groups the goal lifecycle subcommands.
func newGoalCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Set goals and track progress",
	}
	cmd.AddCommand(
		newGoalSetCommand(flags),
		newGoalProgressCommand(flags),
		newGoalDoneCommand(flags),
	)
	return cmd
}

// newGoalSetCommand seeds one goal with a generated year-scoped id.
func newGoalSetCommand(flags *rootFlags) *cobra.Command {
	var in app.SetGoalInput
	cmd := &cobra.Command{
		Use:   "set <title>",
		Short: "Set a goal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			in.Title = strings.Join(args, " ")
			event, err := rt.svc.SetGoal(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "set %s  %s\n", event.EntityID, in.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Horizon, "horizon", "", "goal horizon, e.g. year or quarter")
	cmd.Flags().StringVar(&in.Area, "area", "", "life area")
	cmd.Flags().StringVar(&in.TargetDate, "target", "", "target date, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.SuccessCriteria, "criteria", "", "what done looks like")
	return cmd
}

// newGoalProgressCommand appends one progress record.
func newGoalProgressCommand(flags *rootFlags) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "progress <goal-id> <status>",
		Short: "Log goal progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			event, err := rt.svc.LogGoalProgress(cmd.Context(), args[0], args[1], note)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "progress logged for %s\n", event.EntityID)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "free-form progress note")
	return cmd
}

// newGoalDoneCommand latches one goal inactive.
func newGoalDoneCommand(flags *rootFlags) *cobra.Command {
	var outcome string
	cmd := &cobra.Command{
		Use:   "done <goal-id>",
		Short: "Close a goal as achieved or abandoned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			event, err := rt.svc.CompleteGoal(cmd.Context(), args[0], outcome)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", event.Kind, event.EntityID)
			return nil
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "achieved", "achieved or abandoned")
	return cmd
}

// externalRecordFile is the on-disk shape accepted by sync merge: one JSON
// array of fetched records.
type externalRecordFile struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// newSyncCommand groups the external-merge subcommands.
func newSyncCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Merge external service records and inspect watermarks",
	}
	cmd.AddCommand(
		newSyncMergeCommand(flags),
		newSyncWatermarkCommand(flags),
	)
	return cmd
}

// newSyncMergeCommand folds a fetched record file into a service's log.
func newSyncMergeCommand(flags *rootFlags) *cobra.Command {
	var (
		file    string
		idField string
	)
	cmd := &cobra.Command{
		Use:   "merge <service>",
		Short: "Merge a JSON file of fetched external records",
		Long: "Reads a JSON array of records fetched from an external service and\n" +
			"appends each one to the service's log unless a record with the same\n" +
			"external id was merged before. Re-running the same file is a no-op.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			service := strings.ToLower(strings.TrimSpace(args[0]))
			field := idField
			if field == "" {
				field = rt.cfg.ServiceIDField(service)
			}
			if field == "" {
				return fmt.Errorf("service %q has no configured id field; pass --id-field or add it to [[sync.services]]", service)
			}

			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read records file: %w", err)
			}
			var raw []externalRecordFile
			if err := json.Unmarshal(content, &raw); err != nil {
				return fmt.Errorf("decode records file: %w", err)
			}

			records := make([]merge.ExternalRecord, 0, len(raw))
			for _, rec := range raw {
				records = append(records, merge.ExternalRecord{
					Service:    service,
					IDField:    field,
					ExternalID: rec.ID,
					Kind:       rec.Kind,
					Timestamp:  rec.Timestamp,
					Payload:    rec.Payload,
				})
			}

			stats, err := rt.svc.MergeExternalBatch(cmd.Context(), records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "merged %d, skipped %d duplicates\n", stats.Merged, stats.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the JSON record array (required)")
	cmd.Flags().StringVar(&idField, "id-field", "", "payload field carrying the external id; defaults to the configured one")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// newSyncWatermarkCommand prints the incremental-fetch watermark.
func newSyncWatermarkCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watermark <service>",
		Short: "Show the latest merged timestamp for a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			watermark, ok, err := rt.svc.SyncWatermark(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no merged records yet")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), watermark.Format(domain.TimestampLayout))
			return nil
		},
	}
}

// newServeCommand runs the combined REST and MCP server.
func newServeCommand(flags *rootFlags) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and MCP endpoint over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := buildRuntime(flags, false)
			if err != nil {
				return err
			}
			defer rt.close()

			serverCfg := server.Config{
				HTTPBind:      rt.cfg.Server.Bind,
				APIEndpoint:   rt.cfg.Server.APIEndpoint,
				MCPEndpoint:   rt.cfg.Server.MCPEndpoint,
				ServerName:    flags.appName,
				ServerVersion: version,
			}
			if bind != "" {
				serverCfg.HTTPBind = bind
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt.logger.Info("server starting",
				"bind", serverCfg.HTTPBind,
				"api", serverCfg.APIEndpoint,
				"mcp", serverCfg.MCPEndpoint)
			return server.Run(ctx, serverCfg, common.NewAdapter(rt.svc))
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address, host:port")
	return cmd
}

// newBoardCommand runs the interactive agenda TUI.
func newBoardCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive agenda",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Console logging would corrupt the alternate screen.
			rt, err := buildRuntime(flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			model := tui.NewModel(rt.svc, tui.WithGlamourStyle(rt.cfg.Render.Style))
			program := tea.NewProgram(model)
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("run agenda: %w", err)
			}
			return nil
		},
	}
}

// printMarkdown styles markdown for the terminal at the configured wrap
// width and writes it to the command's stdout.
func printMarkdown(cmd *cobra.Command, rt *cliRuntime, markdown string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), rt.renderer.Render(markdown, rt.cfg.Render.Width))
	return err
}

// parsePayloadFields converts repeated key=value flags into a payload map.
// Values that parse as numbers are stored as numbers so duration fields
// aggregate correctly.
func parsePayloadFields(fields []string) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	payload := make(map[string]any, len(fields))
	for _, field := range fields {
		key, value, ok := strings.Cut(field, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --field %q: expected key=value", field)
		}
		if number, err := strconv.ParseFloat(value, 64); err == nil {
			payload[key] = number
			continue
		}
		payload[key] = value
	}
	return payload, nil
}
