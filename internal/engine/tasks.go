package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"weekplan/internal/domain"
	"weekplan/internal/events"
	"weekplan/internal/markdown"
)

func newID() string {
	return uuid.NewString()
}

// TaskCreateOptions are parameters for adding a task to a week.
type TaskCreateOptions struct {
	ID              string
	WeekID          string
	CategoryID      string
	Title           string
	ContentMarkdown string
	ActorID         string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, errors.New("title is required")
	}
	if _, err := e.Repo.GetWeek(ctx, opts.WeekID); err != nil {
		return domain.Task{}, err
	}
	if opts.CategoryID != "" {
		if _, err := e.Repo.GetCategory(ctx, opts.CategoryID); err != nil {
			return domain.Task{}, err
		}
	}
	html, err := markdown.Render(opts.ContentMarkdown)
	if err != nil {
		return domain.Task{}, fmt.Errorf("render content: %w", err)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	ts := e.timestamp()
	t := domain.Task{
		ID:              opts.ID,
		WeekID:          opts.WeekID,
		Title:           opts.Title,
		ContentMarkdown: opts.ContentMarkdown,
		ContentHTML:     html,
		Status:          domain.StatusPending,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if t.ID == "" {
		t.ID = newID()
	}
	if opts.CategoryID != "" {
		t.CategoryID = &opts.CategoryID
	}
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := e.Repo.RecomputeWeekStats(ctx, tx, t.WeekID, ts); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.created", "task", t.ID, opts.ActorID, events.EventPayload{"week_id": t.WeekID}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskUpdateOptions carries partial updates; nil fields are left unchanged.
// An empty *CategoryID clears the category.
type TaskUpdateOptions struct {
	Title           *string
	ContentMarkdown *string
	CategoryID      *string
	Status          *string
	ActorID         string
}

func (e Engine) UpdateTask(ctx context.Context, taskID string, opts TaskUpdateOptions) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.Task{}, errors.New("title is required")
		}
		t.Title = *opts.Title
	}
	if opts.ContentMarkdown != nil {
		t.ContentMarkdown = *opts.ContentMarkdown
		html, err := markdown.Render(t.ContentMarkdown)
		if err != nil {
			return domain.Task{}, fmt.Errorf("render content: %w", err)
		}
		t.ContentHTML = html
	}
	if opts.CategoryID != nil {
		if *opts.CategoryID == "" {
			t.CategoryID = nil
		} else {
			if _, err := e.Repo.GetCategory(ctx, *opts.CategoryID); err != nil {
				return domain.Task{}, err
			}
			t.CategoryID = opts.CategoryID
		}
	}
	statusChanged := false
	if opts.Status != nil {
		if *opts.Status != domain.StatusPending && *opts.Status != domain.StatusCompleted {
			return domain.Task{}, fmt.Errorf("invalid status %q", *opts.Status)
		}
		statusChanged = t.Status != *opts.Status
		t.Status = *opts.Status
	}
	ts := e.timestamp()
	t.UpdatedAt = ts

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if statusChanged {
		if err := e.Repo.RecomputeWeekStats(ctx, tx, t.WeekID, ts); err != nil {
			return domain.Task{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "task.updated", "task", t.ID, opts.ActorID, nil); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// ToggleTask flips a task between pending and completed and refreshes the
// week's counters.
func (e Engine) ToggleTask(ctx context.Context, taskID, actorID string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	evtType := "task.completed"
	if t.Status == domain.StatusCompleted {
		t.Status = domain.StatusPending
		evtType = "task.reopened"
	} else {
		t.Status = domain.StatusCompleted
	}
	ts := e.timestamp()
	t.UpdatedAt = ts

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Repo.RecomputeWeekStats(ctx, tx, t.WeekID, ts); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, evtType, "task", t.ID, actorID, events.EventPayload{"week_id": t.WeekID}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DeleteTask removes a task and its notes, then refreshes the week's counters.
func (e Engine) DeleteTask(ctx context.Context, taskID, actorID string) error {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteTask(ctx, tx, t.ID); err != nil {
		return err
	}
	if err := e.Repo.RecomputeWeekStats(ctx, tx, t.WeekID, e.timestamp()); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "task.deleted", "task", t.ID, actorID, events.EventPayload{"week_id": t.WeekID}); err != nil {
		return err
	}
	return tx.Commit()
}

// MoveTaskToBacklog converts a task into a backlog item, bringing its notes
// along and dropping it from the week.
func (e Engine) MoveTaskToBacklog(ctx context.Context, taskID string, priority int, actorID string) (domain.BacklogItem, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.BacklogItem{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.BacklogItem{}, err
	}
	defer tx.Rollback()

	ts := e.timestamp()
	b := domain.BacklogItem{
		ID:              newID(),
		CategoryID:      t.CategoryID,
		Title:           t.Title,
		ContentMarkdown: t.ContentMarkdown,
		ContentHTML:     t.ContentHTML,
		Priority:        priority,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if err := e.Repo.InsertBacklogItem(ctx, tx, b); err != nil {
		return domain.BacklogItem{}, fmt.Errorf("insert backlog item: %w", err)
	}
	if err := e.copyNotes(ctx, tx, domain.NoteOwner{Kind: domain.OwnerTask, ID: t.ID}, domain.NoteOwner{Kind: domain.OwnerBacklog, ID: b.ID}, ts); err != nil {
		return domain.BacklogItem{}, err
	}
	if err := e.Repo.DeleteTask(ctx, tx, t.ID); err != nil {
		return domain.BacklogItem{}, err
	}
	if err := e.Repo.RecomputeWeekStats(ctx, tx, t.WeekID, ts); err != nil {
		return domain.BacklogItem{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.moved_to_backlog", "task", t.ID, actorID, events.EventPayload{"backlog_item_id": b.ID}); err != nil {
		return domain.BacklogItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.BacklogItem{}, err
	}
	return b, nil
}

// MoveBacklogToWeek materializes a backlog item as a task in an existing
// week. The item and its notes are consumed.
func (e Engine) MoveBacklogToWeek(ctx context.Context, itemID, weekID, actorID string) (domain.Task, error) {
	b, err := e.Repo.GetBacklogItem(ctx, itemID)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := e.Repo.GetWeek(ctx, weekID); err != nil {
		return domain.Task{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	ts := e.timestamp()
	t := domain.Task{
		ID:              newID(),
		WeekID:          weekID,
		CategoryID:      b.CategoryID,
		Title:           b.Title,
		ContentMarkdown: b.ContentMarkdown,
		ContentHTML:     b.ContentHTML,
		Status:          domain.StatusPending,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := e.copyNotes(ctx, tx, domain.NoteOwner{Kind: domain.OwnerBacklog, ID: b.ID}, domain.NoteOwner{Kind: domain.OwnerTask, ID: t.ID}, ts); err != nil {
		return domain.Task{}, err
	}
	if err := e.Repo.DeleteBacklogItem(ctx, tx, b.ID); err != nil {
		return domain.Task{}, err
	}
	if err := e.Repo.RecomputeWeekStats(ctx, tx, weekID, ts); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "backlog.moved_to_week", "backlog_item", b.ID, actorID, events.EventPayload{"task_id": t.ID, "week_id": weekID}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}
