package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"weekplan/internal/config"
	"weekplan/internal/db"
	"weekplan/internal/domain"
	"weekplan/internal/engine"
	"weekplan/internal/migrate"
	"weekplan/internal/repo"
	"weekplan/internal/week"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

// seedTask inserts a task directly so tests can control staleness and status.
func seedTask(t *testing.T, env testEnv, weekID, title string, staleness int, status string) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		WeekID: weekID, Title: title, ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if staleness != 0 || status != domain.StatusPending {
		tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tx.ExecContext(env.Ctx, `UPDATE tasks SET staleness_count=?, status=? WHERE id=?`, staleness, status, task.ID); err != nil {
			t.Fatalf("adjust task: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatal(err)
		}
		task.StalenessCount = staleness
		task.Status = status
	}
	return task
}

func TestPlanRolloverFirstWeek(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateRecurringTask(env.Ctx, engine.RecurringCreateOptions{Title: "weekly review", ActorID: "tester"}); err != nil {
		t.Fatalf("create recurring: %v", err)
	}
	if _, err := env.Engine.CreateBacklogItem(env.Ctx, engine.BacklogCreateOptions{Title: "low", Priority: 5, ActorID: "tester"}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CreateBacklogItem(env.Ctx, engine.BacklogCreateOptions{Title: "high", Priority: 1, ActorID: "tester"}); err != nil {
		t.Fatal(err)
	}

	plan, err := env.Engine.PlanRollover(env.Ctx, "")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.IncompleteTasks) != 0 {
		t.Fatalf("expected no incomplete candidates, got %d", len(plan.IncompleteTasks))
	}
	if len(plan.RecurringTasks) != 1 || !plan.RecurringTasks[0].Selected {
		t.Fatalf("recurring candidate missing or unselected: %+v", plan.RecurringTasks)
	}
	if len(plan.BacklogItems) != 2 {
		t.Fatalf("expected 2 backlog candidates, got %d", len(plan.BacklogItems))
	}
	if plan.BacklogItems[0].Title != "high" || plan.BacklogItems[1].Title != "low" {
		t.Fatalf("backlog not ordered by priority: %q then %q", plan.BacklogItems[0].Title, plan.BacklogItems[1].Title)
	}
	for _, b := range plan.BacklogItems {
		if b.Selected {
			t.Fatalf("backlog candidate %q should not be pre-selected", b.Title)
		}
	}
}

func TestPlanRolloverStalenessPreselection(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateWeek(env.Ctx, "2026-01", "tester"); err != nil {
		t.Fatal(err)
	}
	seedTask(t, env, "2026-01", "fresh", 3, domain.StatusPending)
	seedTask(t, env, "2026-01", "stale", 4, domain.StatusPending)
	seedTask(t, env, "2026-01", "done", 0, domain.StatusCompleted)

	plan, err := env.Engine.PlanRollover(env.Ctx, "2026-01")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.IncompleteTasks) != 2 {
		t.Fatalf("expected 2 incomplete candidates, got %d", len(plan.IncompleteTasks))
	}
	byTitle := map[string]bool{}
	for _, c := range plan.IncompleteTasks {
		byTitle[c.Title] = c.Selected
	}
	if !byTitle["fresh"] {
		t.Fatalf("staleness 3 should be pre-selected")
	}
	if byTitle["stale"] {
		t.Fatalf("staleness 4 should not be pre-selected")
	}
}

func TestPlanRolloverInvalidPreviousWeek(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.PlanRollover(env.Ctx, "2026-54")
	if !errors.Is(err, week.ErrInvalidID) {
		t.Fatalf("expected invalid week id, got %v", err)
	}
}

func TestGenerateWeekSeedsAndConsumes(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateWeek(env.Ctx, "2026-01", "tester"); err != nil {
		t.Fatal(err)
	}
	carried := seedTask(t, env, "2026-01", "carry me", 1, domain.StatusPending)
	doneTask := seedTask(t, env, "2026-01", "done", 0, domain.StatusCompleted)

	rec, err := env.Engine.CreateRecurringTask(env.Ctx, engine.RecurringCreateOptions{Title: "weekly review", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	fu, err := env.Engine.CreateFollowUp(env.Ctx, engine.FollowUpCreateOptions{SourceTaskID: doneTask.ID, Title: "follow up", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	item, err := env.Engine.CreateBacklogItem(env.Ctx, engine.BacklogCreateOptions{Title: "from backlog", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	for _, text := range []string{"first note", "second note"} {
		if _, err := env.Engine.CreateNote(env.Ctx, engine.NoteCreateOptions{
			Owner: domain.NoteOwner{Kind: domain.OwnerBacklog, ID: item.ID}, ContentMarkdown: text, ActorID: "tester",
		}); err != nil {
			t.Fatal(err)
		}
	}

	w, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateWeekOptions{
		WeekID:         "2026-02",
		RecurringIDs:   []string{rec.ID},
		TaskIDs:        []string{carried.ID},
		FollowUpIDs:    []string{fu.ID},
		BacklogItemIDs: []string{item.ID},
		ActorID:        "tester",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if w.StartDate != "2026-01-05" || w.EndDate != "2026-01-11" {
		t.Fatalf("wrong calendar dates: %s .. %s", w.StartDate, w.EndDate)
	}
	if w.TotalTasks != 4 || w.CompletedTasks != 0 {
		t.Fatalf("wrong stats: %d/%d", w.CompletedTasks, w.TotalTasks)
	}

	tasks, _, err := env.Engine.Repo.ListWeekTasks(env.Ctx, "2026-02")
	if err != nil {
		t.Fatal(err)
	}
	var carriedCopy *domain.Task
	for i := range tasks {
		if tasks[i].Title == "carry me" {
			carriedCopy = &tasks[i]
		}
	}
	if carriedCopy == nil {
		t.Fatalf("carried task missing from new week")
	}
	if carriedCopy.StalenessCount != 2 {
		t.Fatalf("expected staleness 2, got %d", carriedCopy.StalenessCount)
	}
	if carriedCopy.PreviousVersionID == nil || *carriedCopy.PreviousVersionID != carried.ID {
		t.Fatalf("previous version link missing")
	}

	// The original stays in its week, untouched.
	orig, err := env.Engine.Repo.GetTask(env.Ctx, carried.ID)
	if err != nil {
		t.Fatal(err)
	}
	if orig.WeekID != "2026-01" || orig.StalenessCount != 1 {
		t.Fatalf("original task mutated: %+v", orig)
	}

	if _, err := env.Engine.Repo.GetFollowUp(env.Ctx, fu.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("follow-up should be consumed, got %v", err)
	}
	if _, err := env.Engine.Repo.GetBacklogItem(env.Ctx, item.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("backlog item should be consumed, got %v", err)
	}

	var backlogTask *domain.Task
	for i := range tasks {
		if tasks[i].Title == "from backlog" {
			backlogTask = &tasks[i]
		}
	}
	if backlogTask == nil {
		t.Fatalf("backlog task missing")
	}
	notes, err := env.Engine.Repo.ListNotes(env.Ctx, domain.NoteOwner{Kind: domain.OwnerTask, ID: backlogTask.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 copied notes, got %d", len(notes))
	}
}

// Generation reads sources while earlier passes of the same transaction have
// already written to the tasks and notes tables; a hang here means a source
// lookup escaped onto a second connection.
func TestGenerateWeekReadsAfterWrites(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateWeek(env.Ctx, "2026-01", "tester"); err != nil {
		t.Fatal(err)
	}
	carried := seedTask(t, env, "2026-01", "still open", 0, domain.StatusPending)
	rec, err := env.Engine.CreateRecurringTask(env.Ctx, engine.RecurringCreateOptions{Title: "standup", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	var items []domain.BacklogItem
	for _, title := range []string{"idea one", "idea two"} {
		item, err := env.Engine.CreateBacklogItem(env.Ctx, engine.BacklogCreateOptions{Title: title, ActorID: "tester"})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := env.Engine.CreateNote(env.Ctx, engine.NoteCreateOptions{
			Owner: domain.NoteOwner{Kind: domain.OwnerBacklog, ID: item.ID}, ContentMarkdown: "note for " + title, ActorID: "tester",
		}); err != nil {
			t.Fatal(err)
		}
		items = append(items, item)
	}

	done := make(chan error, 1)
	go func() {
		_, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateWeekOptions{
			WeekID:         "2026-02",
			RecurringIDs:   []string{rec.ID},
			TaskIDs:        []string{carried.ID},
			BacklogItemIDs: []string{items[0].ID, items[1].ID},
			ActorID:        "tester",
		})
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("generate did not finish")
	}

	tasks, _, err := env.Engine.Repo.ListWeekTasks(env.Ctx, "2026-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(tasks))
	}
	for _, title := range []string{"idea one", "idea two"} {
		var promoted *domain.Task
		for i := range tasks {
			if tasks[i].Title == title {
				promoted = &tasks[i]
			}
		}
		if promoted == nil {
			t.Fatalf("backlog task %q missing", title)
		}
		notes, err := env.Engine.Repo.ListNotes(env.Ctx, domain.NoteOwner{Kind: domain.OwnerTask, ID: promoted.ID})
		if err != nil {
			t.Fatal(err)
		}
		if len(notes) != 1 || notes[0].ContentMarkdown != "note for "+title {
			t.Fatalf("notes for %q not copied: %+v", title, notes)
		}
	}
}

func TestGenerateWeekAlreadyExists(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateWeekOptions{WeekID: "2026-02", ActorID: "tester"}); err != nil {
		t.Fatal(err)
	}
	_, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateWeekOptions{WeekID: "2026-02", ActorID: "tester"})
	if !errors.Is(err, engine.ErrWeekExists) {
		t.Fatalf("expected ErrWeekExists, got %v", err)
	}
}

func TestGenerateWeekInvalidID(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []string{"2026-00", "2026-54", "26-01", "garbage"} {
		_, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateWeekOptions{WeekID: id, ActorID: "tester"})
		if !errors.Is(err, week.ErrInvalidID) {
			t.Fatalf("id %q: expected invalid week id, got %v", id, err)
		}
	}
}

func TestGenerateWeekSkipsStaleSelections(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateWeek(env.Ctx, "2026-01", "tester"); err != nil {
		t.Fatal(err)
	}
	completed := seedTask(t, env, "2026-01", "finished meanwhile", 0, domain.StatusCompleted)
	rec, err := env.Engine.CreateRecurringTask(env.Ctx, engine.RecurringCreateOptions{Title: "paused", ActorID: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SetRecurringActive(env.Ctx, rec.ID, false, "tester"); err != nil {
		t.Fatal(err)
	}

	w, err := env.Engine.GenerateWeek(env.Ctx, engine.GenerateWeekOptions{
		WeekID:         "2026-02",
		RecurringIDs:   []string{rec.ID, "no-such-recurring"},
		TaskIDs:        []string{completed.ID, "no-such-task"},
		FollowUpIDs:    []string{"no-such-followup"},
		BacklogItemIDs: []string{"no-such-item"},
		ActorID:        "tester",
	})
	if err != nil {
		t.Fatalf("generate should skip stale selections: %v", err)
	}
	if w.TotalTasks != 0 {
		t.Fatalf("expected empty week, got %d tasks", w.TotalTasks)
	}
}

func TestToggleTaskUpdatesStats(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateWeek(env.Ctx, "2026-02", "tester"); err != nil {
		t.Fatal(err)
	}
	task := seedTask(t, env, "2026-02", "work", 0, domain.StatusPending)

	toggled, err := env.Engine.ToggleTask(env.Ctx, task.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if toggled.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", toggled.Status)
	}
	w, err := env.Engine.Repo.GetWeek(env.Ctx, "2026-02")
	if err != nil {
		t.Fatal(err)
	}
	if w.TotalTasks != 1 || w.CompletedTasks != 1 {
		t.Fatalf("stats after complete: %d/%d", w.CompletedTasks, w.TotalTasks)
	}

	if _, err := env.Engine.ToggleTask(env.Ctx, task.ID, "tester"); err != nil {
		t.Fatal(err)
	}
	w, err = env.Engine.Repo.GetWeek(env.Ctx, "2026-02")
	if err != nil {
		t.Fatal(err)
	}
	if w.CompletedTasks != 0 {
		t.Fatalf("stats after reopen: %d/%d", w.CompletedTasks, w.TotalTasks)
	}
}

func TestMoveTaskToBacklogAndBack(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateWeek(env.Ctx, "2026-02", "tester"); err != nil {
		t.Fatal(err)
	}
	task := seedTask(t, env, "2026-02", "park me", 0, domain.StatusPending)
	if _, err := env.Engine.CreateNote(env.Ctx, engine.NoteCreateOptions{
		Owner: domain.NoteOwner{Kind: domain.OwnerTask, ID: task.ID}, ContentMarkdown: "context", ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}

	item, err := env.Engine.MoveTaskToBacklog(env.Ctx, task.ID, 2, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Repo.GetTask(env.Ctx, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("task should be gone, got %v", err)
	}
	notes, err := env.Engine.Repo.ListNotes(env.Ctx, domain.NoteOwner{Kind: domain.OwnerBacklog, ID: item.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 || notes[0].ContentMarkdown != "context" {
		t.Fatalf("note did not travel to backlog: %+v", notes)
	}
	w, err := env.Engine.Repo.GetWeek(env.Ctx, "2026-02")
	if err != nil {
		t.Fatal(err)
	}
	if w.TotalTasks != 0 {
		t.Fatalf("week stats not refreshed after move: %d", w.TotalTasks)
	}

	back, err := env.Engine.MoveBacklogToWeek(env.Ctx, item.ID, "2026-02", "tester")
	if err != nil {
		t.Fatal(err)
	}
	if back.StalenessCount != 0 {
		t.Fatalf("backlog promotion should reset staleness, got %d", back.StalenessCount)
	}
	notes, err = env.Engine.Repo.ListNotes(env.Ctx, domain.NoteOwner{Kind: domain.OwnerTask, ID: back.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 1 {
		t.Fatalf("note did not travel back: %+v", notes)
	}
	if _, err := env.Engine.Repo.GetBacklogItem(env.Ctx, item.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("backlog item should be consumed, got %v", err)
	}
}

func TestCreateFollowUpInheritsCategory(t *testing.T) {
	env := newTestEnv(t)
	cat, err := env.Engine.CreateCategory(env.Ctx, "", "deep work", "", "tester")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CreateWeek(env.Ctx, "2026-02", "tester"); err != nil {
		t.Fatal(err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		WeekID: "2026-02", CategoryID: cat.ID, Title: "source", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	fu, err := env.Engine.CreateFollowUp(env.Ctx, engine.FollowUpCreateOptions{
		SourceTaskID: task.ID, Title: "continue", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if fu.CategoryID == nil || *fu.CategoryID != cat.ID {
		t.Fatalf("follow-up should inherit category, got %v", fu.CategoryID)
	}
}

func TestCategoryCycleRejected(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.CreateCategory(env.Ctx, "", "a", "", "tester")
	if err != nil {
		t.Fatal(err)
	}
	b, err := env.Engine.CreateCategory(env.Ctx, "", "b", a.ID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateCategory(env.Ctx, a.ID, engine.CategoryUpdateOptions{ParentID: &b.ID, ActorID: "tester"}); err == nil {
		t.Fatalf("expected cycle rejection")
	}
}

func TestTaskContentRendersMarkdown(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateWeek(env.Ctx, "2026-02", "tester"); err != nil {
		t.Fatal(err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		WeekID: "2026-02", Title: "notes", ContentMarkdown: "**bold**", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if task.ContentHTML == "" || task.ContentHTML == task.ContentMarkdown {
		t.Fatalf("expected rendered html, got %q", task.ContentHTML)
	}
}
