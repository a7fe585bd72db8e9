package repo

import (
	"context"
	"database/sql"
	"errors"

	"weekplan/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// querier is satisfied by both *sql.DB and *sql.Tx. Reads that run while a
// transaction holds write locks must go through the transaction's connection
// or sqlite blocks on its own locks.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

// --- weeks ---

const weekCols = `id,start_date,end_date,total_tasks,completed_tasks,created_at,updated_at`

func (r Repo) InsertWeek(ctx context.Context, tx *sql.Tx, w domain.Week) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO weeks(`+weekCols+`) VALUES (?,?,?,?,?,?,?)`,
		w.ID, w.StartDate, w.EndDate, w.TotalTasks, w.CompletedTasks, w.CreatedAt, w.UpdatedAt)
	return err
}

func (r Repo) GetWeek(ctx context.Context, id string) (domain.Week, error) {
	var w domain.Week
	err := r.DB.QueryRowContext(ctx, `SELECT `+weekCols+` FROM weeks WHERE id=?`, id).
		Scan(&w.ID, &w.StartDate, &w.EndDate, &w.TotalTasks, &w.CompletedTasks, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	return w, err
}

func (r Repo) WeekExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM weeks WHERE id=?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r Repo) ListWeeks(ctx context.Context) ([]domain.Week, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+weekCols+` FROM weeks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Week
	for rows.Next() {
		var w domain.Week
		if err := rows.Scan(&w.ID, &w.StartDate, &w.EndDate, &w.TotalTasks, &w.CompletedTasks, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

func (r Repo) DeleteWeek(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM weeks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecomputeWeekStats recounts the week's tasks and persists the totals onto
// the week row. Every task mutation path must call this inside its
// transaction.
func (r Repo) RecomputeWeekStats(ctx context.Context, tx *sql.Tx, weekID, updatedAt string) error {
	var total, completed int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status=? THEN 1 ELSE 0 END),0) FROM tasks WHERE week_id=?`,
		domain.StatusCompleted, weekID).Scan(&total, &completed)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE weeks SET total_tasks=?, completed_tasks=?, updated_at=? WHERE id=?`,
		total, completed, updatedAt, weekID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- tasks ---

const taskCols = `id,week_id,category_id,title,content_markdown,content_html,status,is_recurring,staleness_count,previous_version_id,created_at,updated_at`

type taskScanner interface {
	Scan(dest ...any) error
}

func scanTask(row taskScanner) (domain.Task, error) {
	var t domain.Task
	var categoryID, contentMD, contentHTML, previousVersionID sql.NullString
	err := row.Scan(&t.ID, &t.WeekID, &categoryID, &t.Title, &contentMD, &contentHTML,
		&t.Status, &t.IsRecurring, &t.StalenessCount, &previousVersionID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if categoryID.Valid {
		t.CategoryID = &categoryID.String
	}
	if contentMD.Valid {
		t.ContentMarkdown = contentMD.String
	}
	if contentHTML.Valid {
		t.ContentHTML = contentHTML.String
	}
	if previousVersionID.Valid {
		t.PreviousVersionID = &previousVersionID.String
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.WeekID, nullableStringPtr(t.CategoryID), t.Title, nullable(t.ContentMarkdown), nullable(t.ContentHTML),
		t.Status, t.IsRecurring, t.StalenessCount, nullableStringPtr(t.PreviousVersionID), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET category_id=?, title=?, content_markdown=?, content_html=?, status=?, updated_at=? WHERE id=?`,
		nullableStringPtr(t.CategoryID), t.Title, nullable(t.ContentMarkdown), nullable(t.ContentHTML), t.Status, t.UpdatedAt, t.ID)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return getTask(ctx, r.DB, id)
}

// GetTaskTx reads a task on an open transaction's connection.
func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return getTask(ctx, tx, id)
}

func getTask(ctx context.Context, q querier, id string) (domain.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWeekTasks returns a week's tasks with their category joined.
func (r Repo) ListWeekTasks(ctx context.Context, weekID string) ([]domain.Task, []*domain.Category, error) {
	return r.queryTasksWithCategory(ctx, `WHERE t.week_id=?`, weekID)
}

// ListIncompleteTasks returns the week's not-completed tasks with category.
func (r Repo) ListIncompleteTasks(ctx context.Context, weekID string) ([]domain.Task, []*domain.Category, error) {
	return r.queryTasksWithCategory(ctx, `WHERE t.week_id=? AND t.status != ?`, weekID, domain.StatusCompleted)
}

func (r Repo) queryTasksWithCategory(ctx context.Context, where string, args ...any) ([]domain.Task, []*domain.Category, error) {
	query := `SELECT t.id,t.week_id,t.category_id,t.title,t.content_markdown,t.content_html,t.status,t.is_recurring,t.staleness_count,t.previous_version_id,t.created_at,t.updated_at,
c.id,c.name,c.parent_id,c.created_at
FROM tasks t LEFT JOIN categories c ON c.id=t.category_id ` + where + ` ORDER BY t.created_at, t.id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var tasks []domain.Task
	var cats []*domain.Category
	for rows.Next() {
		var t domain.Task
		var categoryID, contentMD, contentHTML, previousVersionID sql.NullString
		var catID, catName, catParent, catCreated sql.NullString
		if err := rows.Scan(&t.ID, &t.WeekID, &categoryID, &t.Title, &contentMD, &contentHTML,
			&t.Status, &t.IsRecurring, &t.StalenessCount, &previousVersionID, &t.CreatedAt, &t.UpdatedAt,
			&catID, &catName, &catParent, &catCreated); err != nil {
			return nil, nil, err
		}
		if categoryID.Valid {
			t.CategoryID = &categoryID.String
		}
		if contentMD.Valid {
			t.ContentMarkdown = contentMD.String
		}
		if contentHTML.Valid {
			t.ContentHTML = contentHTML.String
		}
		if previousVersionID.Valid {
			t.PreviousVersionID = &previousVersionID.String
		}
		tasks = append(tasks, t)
		cats = append(cats, scanJoinedCategory(catID, catName, catParent, catCreated))
	}
	return tasks, cats, rows.Err()
}

func scanJoinedCategory(id, name, parent, created sql.NullString) *domain.Category {
	if !id.Valid {
		return nil
	}
	c := domain.Category{ID: id.String, Name: name.String, CreatedAt: created.String}
	if parent.Valid {
		c.ParentID = &parent.String
	}
	return &c
}
