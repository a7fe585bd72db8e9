package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"weekplan/internal/app"
	"weekplan/internal/db"
	"weekplan/internal/domain"
	"weekplan/internal/engine"
	"weekplan/internal/repo"
	"weekplan/internal/server"
	"weekplan/internal/week"
)

var rootCmd = &cobra.Command{
	Use:   "wp",
	Short: "Weekplan CLI",
	Long: `Weekplan is a personal weekly task planner built around a rollover ritual.
Each week is an ISO week ("2026-07"). When a week ends you plan the next one:
recurring tasks come back, unfinished tasks carry over (growing staler each
time), queued follow-ups land, and backlog items can be pulled in. Generating
the week consumes the follow-ups and pulled backlog items; carried tasks are
copies that keep a link to their previous version.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("WEEKPLAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(weekCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(recurringCmd())
	rootCmd.AddCommand(followUpCmd())
	rootCmd.AddCommand(backlogCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func actorID() string { return viper.GetString("actor-id") }

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, cfg, err := app.OpenWorkspace(workspace)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, engine.New(conn, cfg))
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		return fn(ctx, e.Repo)
	})
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

// --- week ---

func weekCmd() *cobra.Command {
	wk := &cobra.Command{Use: "week", Short: "Manage weeks"}
	wk.AddCommand(weekListCmd())
	wk.AddCommand(weekShowCmd())
	wk.AddCommand(weekCurrentCmd())
	wk.AddCommand(weekCreateCmd())
	wk.AddCommand(weekDeleteCmd())
	wk.AddCommand(weekTasksCmd())
	wk.AddCommand(weekStatsCmd())
	wk.AddCommand(weekPlanCmd())
	wk.AddCommand(weekGenerateCmd())
	return wk
}

func weekListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List weeks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListWeeks(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Start", "End", "Done", "Total", "Score"})
				for _, w := range items {
					pct := domain.CompletionPercentage(w.CompletedTasks, w.TotalTasks)
					tw.AppendRow(table.Row{w.ID, w.StartDate, w.EndDate, w.CompletedTasks, w.TotalTasks, domain.ScoreLevel(pct)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func weekShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <week-id>",
		Short: "Show a week",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				w, err := r.GetWeek(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(w)
			})
		},
	}
}

func weekCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the current week id and row if it exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				id := e.CurrentWeekID()
				w, err := e.Repo.GetWeek(ctx, id)
				if errors.Is(err, repo.ErrNotFound) {
					fmt.Printf("%s (not materialized yet, run 'wp week generate')\n", id)
					return nil
				}
				if err != nil {
					return err
				}
				return printJSON(w)
			})
		},
	}
}

func weekCreateCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty week",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if id == "" {
					id = e.CurrentWeekID()
				}
				w, err := e.CreateWeek(ctx, id, actorID())
				if err != nil {
					return err
				}
				return printJSON(w)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "week id (default: current week)")
	return cmd
}

func weekDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <week-id>",
		Short: "Delete a week and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteWeek(ctx, args[0], actorID())
			})
		},
	}
}

func weekTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks <week-id>",
		Short: "List a week's tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				tasks, cats, err := r.ListWeekTasks(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Category", "Staleness"})
				for i, t := range tasks {
					category := ""
					if cats[i] != nil {
						category = cats[i].Name
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, category, domain.StalenessDescription(t.StalenessCount)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func weekStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <week-id>",
		Short: "Completion stats and score for a week",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				w, err := r.GetWeek(ctx, args[0])
				if err != nil {
					return err
				}
				pct := domain.CompletionPercentage(w.CompletedTasks, w.TotalTasks)
				return printJSON(map[string]any{
					"week_id":         w.ID,
					"total_tasks":     w.TotalTasks,
					"completed_tasks": w.CompletedTasks,
					"percentage":      pct,
					"score":           domain.ScoreLevel(pct),
				})
			})
		},
	}
}

func weekPlanCmd() *cobra.Command {
	var previous string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show rollover candidates for the next week",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				prev, err := resolvePrevious(e, previous)
				if err != nil {
					return err
				}
				plan, err := e.PlanRollover(ctx, prev)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(plan)
				}
				printPlan(plan)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&previous, "previous", "", "previous week id (default: week before the current one)")
	return cmd
}

// resolvePrevious defaults to the week before the current one, but only if
// that week was materialized; a fresh workspace plans without history.
func resolvePrevious(e engine.Engine, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	prev, err := week.Previous(e.CurrentWeekID())
	if err != nil {
		return "", err
	}
	_, err = e.Repo.GetWeek(context.Background(), prev)
	if errors.Is(err, repo.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return prev, nil
}

func printPlan(plan domain.RolloverPlan) {
	mark := func(selected bool) string {
		if selected {
			return "[x]"
		}
		return "[ ]"
	}
	fmt.Println("Recurring tasks:")
	for _, c := range plan.RecurringTasks {
		fmt.Printf("  %s %s  %s\n", mark(c.Selected), c.ID, c.Title)
	}
	fmt.Println("Incomplete tasks:")
	for _, c := range plan.IncompleteTasks {
		fmt.Printf("  %s %s  %s (%s)\n", mark(c.Selected), c.ID, c.Title, domain.StalenessDescription(c.StalenessCount))
	}
	fmt.Println("Follow-ups:")
	for _, c := range plan.FollowUps {
		fmt.Printf("  %s %s  %s\n", mark(c.Selected), c.ID, c.Title)
	}
	fmt.Println("Backlog:")
	for _, c := range plan.BacklogItems {
		fmt.Printf("  %s %s  %s (priority %d)\n", mark(c.Selected), c.ID, c.Title, c.Priority)
	}
}

func weekGenerateCmd() *cobra.Command {
	var id, previous string
	var auto bool
	var recurringIDs, taskIDs, followUpIDs, backlogIDs []string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a week from rollover selections",
		Long: `Generates the target week. With --auto the plan's default selection is
used: active recurring tasks, incomplete tasks that are not yet stale, and all
queued follow-ups. Explicit --recurring/--task/--follow-up/--backlog-item
flags name the entities to include instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if id == "" {
					id = e.CurrentWeekID()
				}
				if auto {
					prev, err := resolvePrevious(e, previous)
					if err != nil {
						return err
					}
					plan, err := e.PlanRollover(ctx, prev)
					if err != nil {
						return err
					}
					for _, c := range plan.RecurringTasks {
						if c.Selected {
							recurringIDs = append(recurringIDs, c.ID)
						}
					}
					for _, c := range plan.IncompleteTasks {
						if c.Selected {
							taskIDs = append(taskIDs, c.ID)
						}
					}
					for _, c := range plan.FollowUps {
						if c.Selected {
							followUpIDs = append(followUpIDs, c.ID)
						}
					}
				}
				w, err := e.GenerateWeek(ctx, engine.GenerateWeekOptions{
					WeekID:         id,
					RecurringIDs:   recurringIDs,
					TaskIDs:        taskIDs,
					FollowUpIDs:    followUpIDs,
					BacklogItemIDs: backlogIDs,
					ActorID:        actorID(),
				})
				if err != nil {
					return err
				}
				return printJSON(w)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "week id to generate (default: current week)")
	cmd.Flags().StringVar(&previous, "previous", "", "previous week id for --auto")
	cmd.Flags().BoolVar(&auto, "auto", false, "use the plan's default selection")
	cmd.Flags().StringSliceVar(&recurringIDs, "recurring", nil, "recurring task ids to include")
	cmd.Flags().StringSliceVar(&taskIDs, "task", nil, "incomplete task ids to carry over")
	cmd.Flags().StringSliceVar(&followUpIDs, "follow-up", nil, "follow-up ids to include")
	cmd.Flags().StringSliceVar(&backlogIDs, "backlog-item", nil, "backlog item ids to pull in")
	return cmd
}

// --- task ---

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskAddCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskToggleCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(taskToBacklogCmd())
	task.AddCommand(taskNotesCmd())
	return task
}

func taskAddCmd() *cobra.Command {
	var weekID, title, content, categoryID string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task to a week",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if weekID == "" {
					weekID = e.CurrentWeekID()
				}
				t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
					WeekID:          weekID,
					CategoryID:      categoryID,
					Title:           title,
					ContentMarkdown: content,
					ActorID:         actorID(),
				})
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	cmd.Flags().StringVar(&weekID, "week", "", "week id (default: current week)")
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&content, "content", "", "markdown content")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id")
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				t, err := r.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var title, content, categoryID, status string
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.TaskUpdateOptions{ActorID: actorID()}
				if cmd.Flags().Changed("title") {
					opts.Title = &title
				}
				if cmd.Flags().Changed("content") {
					opts.ContentMarkdown = &content
				}
				if cmd.Flags().Changed("category") {
					opts.CategoryID = &categoryID
				}
				if cmd.Flags().Changed("status") {
					opts.Status = &status
				}
				t, err := e.UpdateTask(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&content, "content", "", "markdown content")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id (empty clears)")
	cmd.Flags().StringVar(&status, "status", "", "pending or completed")
	return cmd
}

func taskToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Toggle a task between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.ToggleTask(ctx, args[0], actorID())
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, args[0], actorID())
			})
		},
	}
}

func taskToBacklogCmd() *cobra.Command {
	var priority int
	cmd := &cobra.Command{
		Use:   "to-backlog <task-id>",
		Short: "Move a task to the backlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.MoveTaskToBacklog(ctx, args[0], priority, actorID())
				if err != nil {
					return err
				}
				return printJSON(b)
			})
		},
	}
	cmd.Flags().IntVar(&priority, "priority", 0, "backlog priority (lower is more urgent)")
	return cmd
}

func taskNotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes <task-id>",
		Short: "List a task's notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				notes, err := r.ListNotes(ctx, domain.NoteOwner{Kind: domain.OwnerTask, ID: args[0]})
				if err != nil {
					return err
				}
				return printJSON(notes)
			})
		},
	}
}

// --- recurring ---

func recurringCmd() *cobra.Command {
	rec := &cobra.Command{Use: "recurring", Short: "Manage recurring tasks"}
	rec.AddCommand(recurringListCmd())
	rec.AddCommand(recurringAddCmd())
	rec.AddCommand(recurringUpdateCmd())
	rec.AddCommand(recurringActivateCmd(true))
	rec.AddCommand(recurringActivateCmd(false))
	rec.AddCommand(recurringDeleteCmd())
	return rec
}

func recurringListCmd() *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recurring tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListRecurringTasks(ctx, activeOnly)
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only active recurring tasks")
	return cmd
}

func recurringAddCmd() *cobra.Command {
	var title, content, categoryID string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a recurring task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rt, err := e.CreateRecurringTask(ctx, engine.RecurringCreateOptions{
					CategoryID:      categoryID,
					Title:           title,
					ContentMarkdown: content,
					ActorID:         actorID(),
				})
				if err != nil {
					return err
				}
				return printJSON(rt)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&content, "content", "", "markdown content")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id")
	return cmd
}

func recurringUpdateCmd() *cobra.Command {
	var title, content, categoryID string
	cmd := &cobra.Command{
		Use:   "update <recurring-id>",
		Short: "Update a recurring task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.RecurringUpdateOptions{ActorID: actorID()}
				if cmd.Flags().Changed("title") {
					opts.Title = &title
				}
				if cmd.Flags().Changed("content") {
					opts.ContentMarkdown = &content
				}
				if cmd.Flags().Changed("category") {
					opts.CategoryID = &categoryID
				}
				rt, err := e.UpdateRecurringTask(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printJSON(rt)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&content, "content", "", "markdown content")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id (empty clears)")
	return cmd
}

func recurringActivateCmd(active bool) *cobra.Command {
	use, short := "activate <recurring-id>", "Activate a recurring task"
	if !active {
		use, short = "deactivate <recurring-id>", "Deactivate a recurring task"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rt, err := e.SetRecurringActive(ctx, args[0], active, actorID())
				if err != nil {
					return err
				}
				return printJSON(rt)
			})
		},
	}
}

func recurringDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <recurring-id>",
		Short: "Delete a recurring task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteRecurringTask(ctx, args[0], actorID())
			})
		},
	}
}

// --- follow-up ---

func followUpCmd() *cobra.Command {
	fu := &cobra.Command{Use: "followup", Short: "Manage follow-ups"}
	fu.AddCommand(followUpListCmd())
	fu.AddCommand(followUpAddCmd())
	fu.AddCommand(followUpDeleteCmd())
	return fu
}

func followUpListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued follow-ups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, _, err := r.ListFollowUps(ctx)
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}
}

func followUpAddCmd() *cobra.Command {
	var source, title, content, categoryID string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Queue a follow-up off an existing task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f, err := e.CreateFollowUp(ctx, engine.FollowUpCreateOptions{
					SourceTaskID:    source,
					CategoryID:      categoryID,
					Title:           title,
					ContentMarkdown: content,
					ActorID:         actorID(),
				})
				if err != nil {
					return err
				}
				return printJSON(f)
			})
		},
	}
	cmd.Flags().StringVar(&source, "task", "", "source task id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&content, "content", "", "markdown content")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id (default: source task's)")
	return cmd
}

func followUpDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <follow-up-id>",
		Short: "Delete a follow-up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteFollowUp(ctx, args[0], actorID())
			})
		},
	}
}

// --- backlog ---

func backlogCmd() *cobra.Command {
	bl := &cobra.Command{Use: "backlog", Short: "Manage the backlog"}
	bl.AddCommand(backlogListCmd())
	bl.AddCommand(backlogAddCmd())
	bl.AddCommand(backlogUpdateCmd())
	bl.AddCommand(backlogDeleteCmd())
	bl.AddCommand(backlogToWeekCmd())
	return bl
}

func backlogListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backlog items by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, cats, err := r.ListBacklogItems(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Priority", "Category"})
				for i, b := range items {
					category := ""
					if cats[i] != nil {
						category = cats[i].Name
					}
					tw.AppendRow(table.Row{b.ID, b.Title, b.Priority, category})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func backlogAddCmd() *cobra.Command {
	var title, content, categoryID string
	var priority int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a backlog item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.CreateBacklogItem(ctx, engine.BacklogCreateOptions{
					CategoryID:      categoryID,
					Title:           title,
					ContentMarkdown: content,
					Priority:        priority,
					ActorID:         actorID(),
				})
				if err != nil {
					return err
				}
				return printJSON(b)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&content, "content", "", "markdown content")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority (lower is more urgent)")
	return cmd
}

func backlogUpdateCmd() *cobra.Command {
	var title, content, categoryID string
	var priority int
	cmd := &cobra.Command{
		Use:   "update <item-id>",
		Short: "Update a backlog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.BacklogUpdateOptions{ActorID: actorID()}
				if cmd.Flags().Changed("title") {
					opts.Title = &title
				}
				if cmd.Flags().Changed("content") {
					opts.ContentMarkdown = &content
				}
				if cmd.Flags().Changed("category") {
					opts.CategoryID = &categoryID
				}
				if cmd.Flags().Changed("priority") {
					opts.Priority = &priority
				}
				b, err := e.UpdateBacklogItem(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printJSON(b)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&content, "content", "", "markdown content")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id (empty clears)")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority")
	return cmd
}

func backlogDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Delete a backlog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteBacklogItem(ctx, args[0], actorID())
			})
		},
	}
}

func backlogToWeekCmd() *cobra.Command {
	var weekID string
	cmd := &cobra.Command{
		Use:   "to-week <item-id>",
		Short: "Move a backlog item into a week",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if weekID == "" {
					weekID = e.CurrentWeekID()
				}
				t, err := e.MoveBacklogToWeek(ctx, args[0], weekID, actorID())
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	cmd.Flags().StringVar(&weekID, "week", "", "target week id (default: current week)")
	return cmd
}

// --- note ---

func noteCmd() *cobra.Command {
	note := &cobra.Command{Use: "note", Short: "Manage notes"}
	note.AddCommand(noteAddCmd())
	note.AddCommand(noteUpdateCmd())
	note.AddCommand(noteDeleteCmd())
	note.AddCommand(noteAttachCmd())
	note.AddCommand(noteAttachmentsCmd())
	return note
}

func noteAddCmd() *cobra.Command {
	var taskID, itemID, content string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Attach a note to a task or backlog item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var owner domain.NoteOwner
				switch {
				case taskID != "" && itemID == "":
					owner = domain.NoteOwner{Kind: domain.OwnerTask, ID: taskID}
				case itemID != "" && taskID == "":
					owner = domain.NoteOwner{Kind: domain.OwnerBacklog, ID: itemID}
				default:
					return fmt.Errorf("exactly one of --task or --backlog-item is required")
				}
				n, err := e.CreateNote(ctx, engine.NoteCreateOptions{
					Owner:           owner,
					ContentMarkdown: content,
					ActorID:         actorID(),
				})
				if err != nil {
					return err
				}
				return printJSON(n)
			})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "owning task id")
	cmd.Flags().StringVar(&itemID, "backlog-item", "", "owning backlog item id")
	cmd.Flags().StringVar(&content, "content", "", "markdown content")
	return cmd
}

func noteUpdateCmd() *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "update <note-id>",
		Short: "Update a note's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				n, err := e.UpdateNote(ctx, args[0], content, actorID())
				if err != nil {
					return err
				}
				return printJSON(n)
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "markdown content")
	return cmd
}

func noteDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <note-id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteNote(ctx, args[0], actorID())
			})
		},
	}
}

func noteAttachCmd() *cobra.Command {
	var filename, mimeType string
	var size int64
	cmd := &cobra.Command{
		Use:   "attach <note-id>",
		Short: "Record attachment metadata on a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.AddAttachment(ctx, engine.AttachmentAddOptions{
					NoteID:   args[0],
					Filename: filename,
					MimeType: mimeType,
					Size:     size,
					ActorID:  actorID(),
				})
				if err != nil {
					return err
				}
				return printJSON(a)
			})
		},
	}
	cmd.Flags().StringVar(&filename, "filename", "", "attachment filename")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "mime type")
	cmd.Flags().Int64Var(&size, "size", 0, "size in bytes")
	return cmd
}

func noteAttachmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attachments <note-id>",
		Short: "List a note's attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListNoteAttachments(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}
}

// --- category ---

func categoryCmd() *cobra.Command {
	cat := &cobra.Command{Use: "category", Short: "Manage categories"}
	cat.AddCommand(categoryListCmd())
	cat.AddCommand(categoryAddCmd())
	cat.AddCommand(categoryUpdateCmd())
	cat.AddCommand(categoryDeleteCmd())
	return cat
}

func categoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListCategories(ctx)
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}
}

func categoryAddCmd() *cobra.Command {
	var name, parentID string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCategory(ctx, "", name, parentID, actorID())
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "category name")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent category id")
	return cmd
}

func categoryUpdateCmd() *cobra.Command {
	var name, parentID string
	cmd := &cobra.Command{
		Use:   "update <category-id>",
		Short: "Update a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.CategoryUpdateOptions{ActorID: actorID()}
				if cmd.Flags().Changed("name") {
					opts.Name = &name
				}
				if cmd.Flags().Changed("parent") {
					opts.ParentID = &parentID
				}
				c, err := e.UpdateCategory(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "category name")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent category id (empty clears)")
	return cmd
}

func categoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category-id>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteCategory(ctx, args[0], actorID())
			})
		},
	}
}

// --- log ---

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var limit int
	var after int64
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var (
					items []domain.Event
					err   error
				)
				if after > 0 {
					items, err = r.EventsAfter(ctx, after, limit)
				} else {
					items, err = r.LatestEvents(ctx, limit)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				for _, evt := range items {
					fmt.Printf("%d  %s  %-24s %s/%s by %s\n", evt.ID, evt.TS, evt.Type, evt.EntityKind, evt.EntityID, evt.ActorID)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max events")
	cmd.Flags().Int64Var(&after, "after", 0, "only events after this id, oldest first")
	return cmd
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, cfg, err := app.OpenWorkspace(workspace)
			if err != nil {
				return err
			}
			defer conn.Close()
			e := engine.New(conn, cfg)
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Weekplan API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}
