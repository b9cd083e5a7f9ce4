package mcpapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/loggbok/internal/adapters/server/common"
)

// registerEventTools registers the raw append and read tools.
func registerEventTools(srv *mcpserver.MCPServer, svc common.Service) {
	srv.AddTool(
		mcp.NewTool(
			"loggbok.record_event",
			mcp.WithDescription("Append one event record to the log. The log is append-only; corrections are new events."),
			mcp.WithString("kind", mcp.Required(), mcp.Description("Dotted domain.action kind, e.g. task.created")),
			mcp.WithString("source", mcp.Description("Origin tag; defaults to manual")),
			mcp.WithString("entity_id", mcp.Description("Entity id for stateful kinds")),
			mcp.WithString("timestamp", mcp.Description("RFC3339 timestamp; defaults to now")),
			mcp.WithObject("payload", mcp.Description("Kind-specific payload fields")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.RecordEventRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.Kind) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "kind" not found`), nil
			}
			event, err := svc.RecordEvent(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(event)
			if err != nil {
				return nil, fmt.Errorf("encode record_event result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"loggbok.list_events",
			mcp.WithDescription("Read the filtered, time-ascending event sequence."),
			mcp.WithString("kind_prefix", mcp.Description("Dot-boundary kind prefix, e.g. task")),
			mcp.WithString("source", mcp.Description("Exact source tag")),
			mcp.WithString("entity_id", mcp.Description("Exact entity id")),
			mcp.WithString("since", mcp.Description("Inclusive RFC3339 lower bound")),
			mcp.WithString("until", mcp.Description("Exclusive RFC3339 upper bound")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.ListEventsRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			events, err := svc.ListEvents(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"events": events})
			if err != nil {
				return nil, fmt.Errorf("encode list_events result: %w", err)
			}
			return result, nil
		},
	)
}

// registerViewTools registers the derived-state queries.
func registerViewTools(srv *mcpserver.MCPServer, svc common.Service) {
	srv.AddTool(
		mcp.NewTool(
			"loggbok.open_tasks",
			mcp.WithDescription("Replay the log into the currently open task views."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tasks, err := svc.OpenTasks(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"tasks": tasks})
			if err != nil {
				return nil, fmt.Errorf("encode open_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"loggbok.active_goals",
			mcp.WithDescription("Replay the log into the goals not yet achieved or abandoned."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			goals, err := svc.ActiveGoals(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"goals": goals})
			if err != nil {
				return nil, fmt.Errorf("encode active_goals result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"loggbok.weekly_summary",
			mcp.WithDescription("Aggregate the trailing seven days of events by kind."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			summary, err := svc.WeeklySummary(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(summary)
			if err != nil {
				return nil, fmt.Errorf("encode weekly_summary result: %w", err)
			}
			return result, nil
		},
	)
}

// registerEntityTools registers the id-generating convenience operations.
func registerEntityTools(srv *mcpserver.MCPServer, svc common.Service) {
	srv.AddTool(
		mcp.NewTool(
			"loggbok.create_task",
			mcp.WithDescription("Create one task: generates the next day-scoped id and appends task.created."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("area", mcp.Description("Life area")),
			mcp.WithString("due", mcp.Description("Due date, YYYY-MM-DD")),
			mcp.WithString("priority", mcp.Description("Priority label")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.CreateTaskRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.Title) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "title" not found`), nil
			}
			event, err := svc.CreateTask(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(event)
			if err != nil {
				return nil, fmt.Errorf("encode create_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"loggbok.complete_task",
			mcp.WithDescription("Close one open task. Closing is one-way."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task id, e.g. t-20260112-001")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			event, err := svc.CompleteTask(ctx, req.GetString("task_id", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(event)
			if err != nil {
				return nil, fmt.Errorf("encode complete_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"loggbok.abandon_task",
			mcp.WithDescription("Close one open task as abandoned. Closing is one-way."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task id, e.g. t-20260112-001")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			event, err := svc.AbandonTask(ctx, req.GetString("task_id", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(event)
			if err != nil {
				return nil, fmt.Errorf("encode abandon_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"loggbok.set_goal",
			mcp.WithDescription("Create one goal: generates the next year-scoped id and appends goal.set."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Goal title")),
			mcp.WithString("horizon", mcp.Description("Horizon, e.g. year or quarter")),
			mcp.WithString("area", mcp.Description("Life area")),
			mcp.WithString("target_date", mcp.Description("Target date, YYYY-MM-DD")),
			mcp.WithString("success_criteria", mcp.Description("What done looks like")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.SetGoalRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.Title) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "title" not found`), nil
			}
			event, err := svc.SetGoal(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(event)
			if err != nil {
				return nil, fmt.Errorf("encode set_goal result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"loggbok.log_goal_progress",
			mcp.WithDescription("Append one progress record for a goal."),
			mcp.WithString("goal_id", mcp.Required(), mcp.Description("Goal id, e.g. g-2026-001")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Status label, e.g. on_track")),
			mcp.WithString("note", mcp.Description("Free-form note")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.GoalProgressRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			event, err := svc.LogGoalProgress(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(event)
			if err != nil {
				return nil, fmt.Errorf("encode log_goal_progress result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"loggbok.complete_goal",
			mcp.WithDescription("Latch one goal inactive as achieved or abandoned."),
			mcp.WithString("goal_id", mcp.Required(), mcp.Description("Goal id")),
			mcp.WithString("outcome", mcp.Description("achieved|abandoned"), mcp.Enum("achieved", "abandoned")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			event, err := svc.CompleteGoal(ctx, req.GetString("goal_id", ""), req.GetString("outcome", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(event)
			if err != nil {
				return nil, fmt.Errorf("encode complete_goal result: %w", err)
			}
			return result, nil
		},
	)
}

// registerSyncTools registers the external merge surface.
func registerSyncTools(srv *mcpserver.MCPServer, svc common.Service) {
	srv.AddTool(
		mcp.NewTool(
			"loggbok.merge_external",
			mcp.WithDescription("Idempotently merge one external service record; duplicates by external id are skipped."),
			mcp.WithString("service", mcp.Required(), mcp.Description("External service name")),
			mcp.WithString("id_field", mcp.Required(), mcp.Description("Payload field carrying the service's record id")),
			mcp.WithString("external_id", mcp.Required(), mcp.Description("The service's record id")),
			mcp.WithString("kind", mcp.Required(), mcp.Description("Event kind for the converted record")),
			mcp.WithString("timestamp", mcp.Description("RFC3339 record timestamp")),
			mcp.WithObject("payload", mcp.Description("Converted payload fields")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.MergeExternalRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			res, err := svc.MergeExternal(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(res)
			if err != nil {
				return nil, fmt.Errorf("encode merge_external result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"loggbok.sync_watermark",
			mcp.WithDescription("Latest timestamp among already-merged records for a service; bounds incremental fetches."),
			mcp.WithString("service", mcp.Required(), mcp.Description("External service name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			resp, err := svc.SyncWatermark(ctx, req.GetString("service", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(resp)
			if err != nil {
				return nil, fmt.Errorf("encode sync_watermark result: %w", err)
			}
			return result, nil
		},
	)
}
