package engine

import (
	"context"
	"errors"
	"fmt"

	"weekplan/internal/domain"
	"weekplan/internal/events"
	"weekplan/internal/markdown"
)

// --- recurring tasks ---

type RecurringCreateOptions struct {
	ID              string
	CategoryID      string
	Title           string
	ContentMarkdown string
	ActorID         string
}

func (e Engine) CreateRecurringTask(ctx context.Context, opts RecurringCreateOptions) (domain.RecurringTask, error) {
	if opts.Title == "" {
		return domain.RecurringTask{}, errors.New("title is required")
	}
	if opts.CategoryID != "" {
		if _, err := e.Repo.GetCategory(ctx, opts.CategoryID); err != nil {
			return domain.RecurringTask{}, err
		}
	}
	html, err := markdown.Render(opts.ContentMarkdown)
	if err != nil {
		return domain.RecurringTask{}, fmt.Errorf("render content: %w", err)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RecurringTask{}, err
	}
	defer tx.Rollback()

	ts := e.timestamp()
	rt := domain.RecurringTask{
		ID:              opts.ID,
		Title:           opts.Title,
		ContentMarkdown: opts.ContentMarkdown,
		ContentHTML:     html,
		IsActive:        true,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if rt.ID == "" {
		rt.ID = newID()
	}
	if opts.CategoryID != "" {
		rt.CategoryID = &opts.CategoryID
	}
	if err := e.Repo.InsertRecurringTask(ctx, tx, rt); err != nil {
		return domain.RecurringTask{}, fmt.Errorf("insert recurring task: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "recurring.created", "recurring_task", rt.ID, opts.ActorID, nil); err != nil {
		return domain.RecurringTask{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RecurringTask{}, err
	}
	return rt, nil
}

type RecurringUpdateOptions struct {
	Title           *string
	ContentMarkdown *string
	CategoryID      *string
	ActorID         string
}

func (e Engine) UpdateRecurringTask(ctx context.Context, id string, opts RecurringUpdateOptions) (domain.RecurringTask, error) {
	rt, err := e.Repo.GetRecurringTask(ctx, id)
	if err != nil {
		return domain.RecurringTask{}, err
	}
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.RecurringTask{}, errors.New("title is required")
		}
		rt.Title = *opts.Title
	}
	if opts.ContentMarkdown != nil {
		rt.ContentMarkdown = *opts.ContentMarkdown
		html, err := markdown.Render(rt.ContentMarkdown)
		if err != nil {
			return domain.RecurringTask{}, fmt.Errorf("render content: %w", err)
		}
		rt.ContentHTML = html
	}
	if opts.CategoryID != nil {
		if *opts.CategoryID == "" {
			rt.CategoryID = nil
		} else {
			if _, err := e.Repo.GetCategory(ctx, *opts.CategoryID); err != nil {
				return domain.RecurringTask{}, err
			}
			rt.CategoryID = opts.CategoryID
		}
	}
	rt.UpdatedAt = e.timestamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RecurringTask{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateRecurringTask(ctx, tx, rt); err != nil {
		return domain.RecurringTask{}, err
	}
	if err := e.Events.Append(ctx, tx, "recurring.updated", "recurring_task", rt.ID, opts.ActorID, nil); err != nil {
		return domain.RecurringTask{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RecurringTask{}, err
	}
	return rt, nil
}

// SetRecurringActive toggles whether a recurring task is offered during
// rollover planning.
func (e Engine) SetRecurringActive(ctx context.Context, id string, active bool, actorID string) (domain.RecurringTask, error) {
	rt, err := e.Repo.GetRecurringTask(ctx, id)
	if err != nil {
		return domain.RecurringTask{}, err
	}
	rt.IsActive = active
	rt.UpdatedAt = e.timestamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.RecurringTask{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateRecurringTask(ctx, tx, rt); err != nil {
		return domain.RecurringTask{}, err
	}
	evtType := "recurring.deactivated"
	if active {
		evtType = "recurring.activated"
	}
	if err := e.Events.Append(ctx, tx, evtType, "recurring_task", rt.ID, actorID, nil); err != nil {
		return domain.RecurringTask{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.RecurringTask{}, err
	}
	return rt, nil
}

func (e Engine) DeleteRecurringTask(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteRecurringTask(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "recurring.deleted", "recurring_task", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// --- follow-ups ---

type FollowUpCreateOptions struct {
	ID              string
	SourceTaskID    string
	CategoryID      string
	Title           string
	ContentMarkdown string
	ActorID         string
}

// CreateFollowUp queues a follow-up off an existing task. The category
// defaults to the source task's when none is given.
func (e Engine) CreateFollowUp(ctx context.Context, opts FollowUpCreateOptions) (domain.FollowUp, error) {
	if opts.Title == "" {
		return domain.FollowUp{}, errors.New("title is required")
	}
	src, err := e.Repo.GetTask(ctx, opts.SourceTaskID)
	if err != nil {
		return domain.FollowUp{}, err
	}
	if opts.CategoryID != "" {
		if _, err := e.Repo.GetCategory(ctx, opts.CategoryID); err != nil {
			return domain.FollowUp{}, err
		}
	}
	html, err := markdown.Render(opts.ContentMarkdown)
	if err != nil {
		return domain.FollowUp{}, fmt.Errorf("render content: %w", err)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.FollowUp{}, err
	}
	defer tx.Rollback()

	f := domain.FollowUp{
		ID:              opts.ID,
		SourceTaskID:    src.ID,
		CategoryID:      src.CategoryID,
		Title:           opts.Title,
		ContentMarkdown: opts.ContentMarkdown,
		ContentHTML:     html,
		CreatedAt:       e.timestamp(),
	}
	if f.ID == "" {
		f.ID = newID()
	}
	if opts.CategoryID != "" {
		f.CategoryID = &opts.CategoryID
	}
	if err := e.Repo.InsertFollowUp(ctx, tx, f); err != nil {
		return domain.FollowUp{}, fmt.Errorf("insert follow-up: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "followup.created", "follow_up", f.ID, opts.ActorID, events.EventPayload{"source_task_id": src.ID}); err != nil {
		return domain.FollowUp{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.FollowUp{}, err
	}
	return f, nil
}

func (e Engine) DeleteFollowUp(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteFollowUp(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "followup.deleted", "follow_up", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// --- backlog ---

type BacklogCreateOptions struct {
	ID              string
	CategoryID      string
	Title           string
	ContentMarkdown string
	Priority        int
	ActorID         string
}

func (e Engine) CreateBacklogItem(ctx context.Context, opts BacklogCreateOptions) (domain.BacklogItem, error) {
	if opts.Title == "" {
		return domain.BacklogItem{}, errors.New("title is required")
	}
	if opts.CategoryID != "" {
		if _, err := e.Repo.GetCategory(ctx, opts.CategoryID); err != nil {
			return domain.BacklogItem{}, err
		}
	}
	html, err := markdown.Render(opts.ContentMarkdown)
	if err != nil {
		return domain.BacklogItem{}, fmt.Errorf("render content: %w", err)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.BacklogItem{}, err
	}
	defer tx.Rollback()

	ts := e.timestamp()
	b := domain.BacklogItem{
		ID:              opts.ID,
		Title:           opts.Title,
		ContentMarkdown: opts.ContentMarkdown,
		ContentHTML:     html,
		Priority:        opts.Priority,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if b.ID == "" {
		b.ID = newID()
	}
	if opts.CategoryID != "" {
		b.CategoryID = &opts.CategoryID
	}
	if err := e.Repo.InsertBacklogItem(ctx, tx, b); err != nil {
		return domain.BacklogItem{}, fmt.Errorf("insert backlog item: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "backlog.created", "backlog_item", b.ID, opts.ActorID, nil); err != nil {
		return domain.BacklogItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.BacklogItem{}, err
	}
	return b, nil
}

type BacklogUpdateOptions struct {
	Title           *string
	ContentMarkdown *string
	CategoryID      *string
	Priority        *int
	ActorID         string
}

func (e Engine) UpdateBacklogItem(ctx context.Context, id string, opts BacklogUpdateOptions) (domain.BacklogItem, error) {
	b, err := e.Repo.GetBacklogItem(ctx, id)
	if err != nil {
		return domain.BacklogItem{}, err
	}
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.BacklogItem{}, errors.New("title is required")
		}
		b.Title = *opts.Title
	}
	if opts.ContentMarkdown != nil {
		b.ContentMarkdown = *opts.ContentMarkdown
		html, err := markdown.Render(b.ContentMarkdown)
		if err != nil {
			return domain.BacklogItem{}, fmt.Errorf("render content: %w", err)
		}
		b.ContentHTML = html
	}
	if opts.CategoryID != nil {
		if *opts.CategoryID == "" {
			b.CategoryID = nil
		} else {
			if _, err := e.Repo.GetCategory(ctx, *opts.CategoryID); err != nil {
				return domain.BacklogItem{}, err
			}
			b.CategoryID = opts.CategoryID
		}
	}
	if opts.Priority != nil {
		b.Priority = *opts.Priority
	}
	b.UpdatedAt = e.timestamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.BacklogItem{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateBacklogItem(ctx, tx, b); err != nil {
		return domain.BacklogItem{}, err
	}
	if err := e.Events.Append(ctx, tx, "backlog.updated", "backlog_item", b.ID, opts.ActorID, nil); err != nil {
		return domain.BacklogItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.BacklogItem{}, err
	}
	return b, nil
}

func (e Engine) DeleteBacklogItem(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteBacklogItem(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "backlog.deleted", "backlog_item", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}
