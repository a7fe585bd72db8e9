package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"weekplan/internal/config"
	"weekplan/internal/domain"
	"weekplan/internal/events"
	"weekplan/internal/repo"
	"weekplan/internal/week"
)

// ErrWeekExists reports an attempt to create a week that is already
// materialized.
var ErrWeekExists = errors.New("week already exists")

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) stalenessThreshold() int {
	if e.Config != nil && e.Config.Rollover.StalenessThreshold > 0 {
		return e.Config.Rollover.StalenessThreshold
	}
	return config.DefaultStalenessThreshold
}

// CurrentWeekID returns the week id of the engine clock's current day.
func (e Engine) CurrentWeekID() string {
	return week.ID(e.now().UTC())
}

// CreateWeek materializes an empty week row with calendar dates derived from
// the id. Use GenerateWeek for the rollover path.
func (e Engine) CreateWeek(ctx context.Context, weekID, actorID string) (domain.Week, error) {
	start, err := week.StartDate(weekID)
	if err != nil {
		return domain.Week{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Week{}, err
	}
	defer tx.Rollback()

	if err := weekMustNotExist(ctx, tx, weekID); err != nil {
		return domain.Week{}, err
	}
	ts := e.timestamp()
	w := domain.Week{
		ID:        weekID,
		StartDate: start.Format(week.DateLayout),
		EndDate:   start.AddDate(0, 0, 6).Format(week.DateLayout),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := e.Repo.InsertWeek(ctx, tx, w); err != nil {
		return domain.Week{}, fmt.Errorf("insert week: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "week.created", "week", w.ID, actorID, nil); err != nil {
		return domain.Week{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Week{}, err
	}
	return w, nil
}

// DeleteWeek removes a week and, through cascades, its tasks and their notes.
func (e Engine) DeleteWeek(ctx context.Context, weekID, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteWeek(ctx, tx, weekID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "week.deleted", "week", weekID, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// PlanRollover assembles the four candidate lists for the next week without
// mutating anything. previousWeekID may be empty for a first week, in which
// case no incomplete candidates are offered.
func (e Engine) PlanRollover(ctx context.Context, previousWeekID string) (domain.RolloverPlan, error) {
	plan := domain.RolloverPlan{
		RecurringTasks:  []domain.RecurringCandidate{},
		IncompleteTasks: []domain.IncompleteCandidate{},
		FollowUps:       []domain.FollowUpCandidate{},
		BacklogItems:    []domain.BacklogCandidate{},
	}

	recurring, err := e.Repo.ListRecurringTasks(ctx, true)
	if err != nil {
		return plan, err
	}
	for _, rt := range recurring {
		plan.RecurringTasks = append(plan.RecurringTasks, domain.RecurringCandidate{RecurringTask: rt, Selected: true})
	}

	if previousWeekID != "" {
		if !week.Valid(previousWeekID) {
			return plan, fmt.Errorf("%w: %q", week.ErrInvalidID, previousWeekID)
		}
		threshold := e.stalenessThreshold()
		tasks, cats, err := e.Repo.ListIncompleteTasks(ctx, previousWeekID)
		if err != nil {
			return plan, err
		}
		for i, t := range tasks {
			plan.IncompleteTasks = append(plan.IncompleteTasks, domain.IncompleteCandidate{
				Task:     t,
				Category: cats[i],
				Selected: t.StalenessCount < threshold,
			})
		}
	}

	followUps, fuCats, err := e.Repo.ListFollowUps(ctx)
	if err != nil {
		return plan, err
	}
	for i, f := range followUps {
		plan.FollowUps = append(plan.FollowUps, domain.FollowUpCandidate{FollowUp: f, Category: fuCats[i], Selected: true})
	}

	backlog, blCats, err := e.Repo.ListBacklogItems(ctx)
	if err != nil {
		return plan, err
	}
	for i, b := range backlog {
		plan.BacklogItems = append(plan.BacklogItems, domain.BacklogCandidate{BacklogItem: b, Category: blCats[i], Selected: false})
	}
	return plan, nil
}

// GenerateWeekOptions selects what the new week is seeded with. The id lists
// name entities from a prior PlanRollover; ids that no longer resolve are
// skipped without failing the generation.
type GenerateWeekOptions struct {
	WeekID         string
	RecurringIDs   []string
	TaskIDs        []string
	FollowUpIDs    []string
	BacklogItemIDs []string
	ActorID        string
}

// GenerateWeek creates the week and seeds it from the selections in a single
// transaction. Follow-ups and backlog items are consumed; carried tasks are
// copied with their staleness bumped and the originals left untouched.
func (e Engine) GenerateWeek(ctx context.Context, opts GenerateWeekOptions) (domain.Week, error) {
	start, err := week.StartDate(opts.WeekID)
	if err != nil {
		return domain.Week{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Week{}, err
	}
	defer tx.Rollback()

	if err := weekMustNotExist(ctx, tx, opts.WeekID); err != nil {
		return domain.Week{}, err
	}
	ts := e.timestamp()
	w := domain.Week{
		ID:        opts.WeekID,
		StartDate: start.Format(week.DateLayout),
		EndDate:   start.AddDate(0, 0, 6).Format(week.DateLayout),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := e.Repo.InsertWeek(ctx, tx, w); err != nil {
		return domain.Week{}, fmt.Errorf("insert week: %w", err)
	}

	counts := map[string]int{"recurring": 0, "carried": 0, "follow_ups": 0, "backlog": 0}

	for _, id := range opts.RecurringIDs {
		rt, err := e.Repo.GetRecurringTaskTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return domain.Week{}, err
		}
		if !rt.IsActive {
			continue
		}
		t := domain.Task{
			ID:              newID(),
			WeekID:          w.ID,
			CategoryID:      rt.CategoryID,
			Title:           rt.Title,
			ContentMarkdown: rt.ContentMarkdown,
			ContentHTML:     rt.ContentHTML,
			Status:          domain.StatusPending,
			IsRecurring:     true,
			CreatedAt:       ts,
			UpdatedAt:       ts,
		}
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return domain.Week{}, fmt.Errorf("insert recurring task: %w", err)
		}
		counts["recurring"]++
	}

	for _, id := range opts.TaskIDs {
		prev, err := e.Repo.GetTaskTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return domain.Week{}, err
		}
		// Completed since planning, or already carried elsewhere.
		if prev.Status != domain.StatusPending {
			continue
		}
		prevID := prev.ID
		t := domain.Task{
			ID:                newID(),
			WeekID:            w.ID,
			CategoryID:        prev.CategoryID,
			Title:             prev.Title,
			ContentMarkdown:   prev.ContentMarkdown,
			ContentHTML:       prev.ContentHTML,
			Status:            domain.StatusPending,
			IsRecurring:       prev.IsRecurring,
			StalenessCount:    prev.StalenessCount + 1,
			PreviousVersionID: &prevID,
			CreatedAt:         ts,
			UpdatedAt:         ts,
		}
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return domain.Week{}, fmt.Errorf("carry task: %w", err)
		}
		counts["carried"]++
	}

	for _, id := range opts.FollowUpIDs {
		f, err := e.Repo.GetFollowUpTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return domain.Week{}, err
		}
		t := domain.Task{
			ID:              newID(),
			WeekID:          w.ID,
			CategoryID:      f.CategoryID,
			Title:           f.Title,
			ContentMarkdown: f.ContentMarkdown,
			ContentHTML:     f.ContentHTML,
			Status:          domain.StatusPending,
			CreatedAt:       ts,
			UpdatedAt:       ts,
		}
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return domain.Week{}, fmt.Errorf("insert follow-up task: %w", err)
		}
		if err := e.Repo.DeleteFollowUp(ctx, tx, f.ID); err != nil {
			return domain.Week{}, fmt.Errorf("consume follow-up: %w", err)
		}
		counts["follow_ups"]++
	}

	for _, id := range opts.BacklogItemIDs {
		b, err := e.Repo.GetBacklogItemTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return domain.Week{}, err
		}
		t := domain.Task{
			ID:              newID(),
			WeekID:          w.ID,
			CategoryID:      b.CategoryID,
			Title:           b.Title,
			ContentMarkdown: b.ContentMarkdown,
			ContentHTML:     b.ContentHTML,
			Status:          domain.StatusPending,
			CreatedAt:       ts,
			UpdatedAt:       ts,
		}
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return domain.Week{}, fmt.Errorf("insert backlog task: %w", err)
		}
		if err := e.copyNotes(ctx, tx, domain.NoteOwner{Kind: domain.OwnerBacklog, ID: b.ID}, domain.NoteOwner{Kind: domain.OwnerTask, ID: t.ID}, ts); err != nil {
			return domain.Week{}, err
		}
		if err := e.Repo.DeleteBacklogItem(ctx, tx, b.ID); err != nil {
			return domain.Week{}, fmt.Errorf("consume backlog item: %w", err)
		}
		counts["backlog"]++
	}

	if err := e.Repo.RecomputeWeekStats(ctx, tx, w.ID, ts); err != nil {
		return domain.Week{}, fmt.Errorf("recompute stats: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "week.generated", "week", w.ID, opts.ActorID, events.EventPayload{
		"recurring":  counts["recurring"],
		"carried":    counts["carried"],
		"follow_ups": counts["follow_ups"],
		"backlog":    counts["backlog"],
	}); err != nil {
		return domain.Week{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Week{}, err
	}
	return e.Repo.GetWeek(ctx, w.ID)
}

// copyNotes duplicates the notes of one owner onto another with fresh ids.
// It runs inside the caller's transaction, so the source notes are read on
// the same connection.
func (e Engine) copyNotes(ctx context.Context, tx *sql.Tx, from, to domain.NoteOwner, ts string) error {
	notes, err := e.Repo.ListNotesTx(ctx, tx, from)
	if err != nil {
		return err
	}
	for _, n := range notes {
		dup := domain.Note{
			ID:              newID(),
			Owner:           to,
			ContentMarkdown: n.ContentMarkdown,
			ContentHTML:     n.ContentHTML,
			CreatedAt:       ts,
			UpdatedAt:       ts,
		}
		if err := e.Repo.InsertNote(ctx, tx, dup); err != nil {
			return fmt.Errorf("copy note: %w", err)
		}
	}
	return nil
}

func weekMustNotExist(ctx context.Context, tx *sql.Tx, weekID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM weeks WHERE id=?`, weekID).Scan(&one)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrWeekExists, weekID)
}
