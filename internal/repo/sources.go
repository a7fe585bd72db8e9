package repo

import (
	"context"
	"database/sql"

	"weekplan/internal/domain"
)

// --- recurring tasks ---

const recurringCols = `id,category_id,title,content_markdown,content_html,is_active,created_at,updated_at`

func scanRecurring(row taskScanner) (domain.RecurringTask, error) {
	var rt domain.RecurringTask
	var categoryID, contentMD, contentHTML sql.NullString
	err := row.Scan(&rt.ID, &categoryID, &rt.Title, &contentMD, &contentHTML, &rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return rt, err
	}
	if categoryID.Valid {
		rt.CategoryID = &categoryID.String
	}
	if contentMD.Valid {
		rt.ContentMarkdown = contentMD.String
	}
	if contentHTML.Valid {
		rt.ContentHTML = contentHTML.String
	}
	return rt, nil
}

func (r Repo) InsertRecurringTask(ctx context.Context, tx *sql.Tx, rt domain.RecurringTask) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO recurring_tasks(`+recurringCols+`) VALUES (?,?,?,?,?,?,?,?)`,
		rt.ID, nullableStringPtr(rt.CategoryID), rt.Title, nullable(rt.ContentMarkdown), nullable(rt.ContentHTML),
		rt.IsActive, rt.CreatedAt, rt.UpdatedAt)
	return err
}

func (r Repo) UpdateRecurringTask(ctx context.Context, tx *sql.Tx, rt domain.RecurringTask) error {
	_, err := tx.ExecContext(ctx, `UPDATE recurring_tasks SET category_id=?, title=?, content_markdown=?, content_html=?, is_active=?, updated_at=? WHERE id=?`,
		nullableStringPtr(rt.CategoryID), rt.Title, nullable(rt.ContentMarkdown), nullable(rt.ContentHTML),
		rt.IsActive, rt.UpdatedAt, rt.ID)
	return err
}

func (r Repo) GetRecurringTask(ctx context.Context, id string) (domain.RecurringTask, error) {
	return getRecurringTask(ctx, r.DB, id)
}

// GetRecurringTaskTx reads a recurring task on an open transaction's connection.
func (r Repo) GetRecurringTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.RecurringTask, error) {
	return getRecurringTask(ctx, tx, id)
}

func getRecurringTask(ctx context.Context, q querier, id string) (domain.RecurringTask, error) {
	rt, err := scanRecurring(q.QueryRowContext(ctx, `SELECT `+recurringCols+` FROM recurring_tasks WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return rt, ErrNotFound
	}
	return rt, err
}

func (r Repo) ListRecurringTasks(ctx context.Context, activeOnly bool) ([]domain.RecurringTask, error) {
	query := `SELECT ` + recurringCols + ` FROM recurring_tasks`
	if activeOnly {
		query += ` WHERE is_active=1`
	}
	query += ` ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RecurringTask
	for rows.Next() {
		rt, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rt)
	}
	return res, rows.Err()
}

func (r Repo) DeleteRecurringTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM recurring_tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- follow-ups ---

const followUpCols = `id,source_task_id,category_id,title,content_markdown,content_html,created_at`

func scanFollowUp(row taskScanner) (domain.FollowUp, error) {
	var f domain.FollowUp
	var categoryID, contentMD, contentHTML sql.NullString
	err := row.Scan(&f.ID, &f.SourceTaskID, &categoryID, &f.Title, &contentMD, &contentHTML, &f.CreatedAt)
	if err != nil {
		return f, err
	}
	if categoryID.Valid {
		f.CategoryID = &categoryID.String
	}
	if contentMD.Valid {
		f.ContentMarkdown = contentMD.String
	}
	if contentHTML.Valid {
		f.ContentHTML = contentHTML.String
	}
	return f, nil
}

func (r Repo) InsertFollowUp(ctx context.Context, tx *sql.Tx, f domain.FollowUp) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO follow_ups(`+followUpCols+`) VALUES (?,?,?,?,?,?,?)`,
		f.ID, f.SourceTaskID, nullableStringPtr(f.CategoryID), f.Title, nullable(f.ContentMarkdown), nullable(f.ContentHTML), f.CreatedAt)
	return err
}

func (r Repo) GetFollowUp(ctx context.Context, id string) (domain.FollowUp, error) {
	return getFollowUp(ctx, r.DB, id)
}

// GetFollowUpTx reads a follow-up on an open transaction's connection.
func (r Repo) GetFollowUpTx(ctx context.Context, tx *sql.Tx, id string) (domain.FollowUp, error) {
	return getFollowUp(ctx, tx, id)
}

func getFollowUp(ctx context.Context, q querier, id string) (domain.FollowUp, error) {
	f, err := scanFollowUp(q.QueryRowContext(ctx, `SELECT `+followUpCols+` FROM follow_ups WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return f, ErrNotFound
	}
	return f, err
}

func (r Repo) ListFollowUps(ctx context.Context) ([]domain.FollowUp, []*domain.Category, error) {
	query := `SELECT f.id,f.source_task_id,f.category_id,f.title,f.content_markdown,f.content_html,f.created_at,
c.id,c.name,c.parent_id,c.created_at
FROM follow_ups f LEFT JOIN categories c ON c.id=f.category_id ORDER BY f.created_at, f.id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var res []domain.FollowUp
	var cats []*domain.Category
	for rows.Next() {
		var f domain.FollowUp
		var categoryID, contentMD, contentHTML sql.NullString
		var catID, catName, catParent, catCreated sql.NullString
		if err := rows.Scan(&f.ID, &f.SourceTaskID, &categoryID, &f.Title, &contentMD, &contentHTML, &f.CreatedAt,
			&catID, &catName, &catParent, &catCreated); err != nil {
			return nil, nil, err
		}
		if categoryID.Valid {
			f.CategoryID = &categoryID.String
		}
		if contentMD.Valid {
			f.ContentMarkdown = contentMD.String
		}
		if contentHTML.Valid {
			f.ContentHTML = contentHTML.String
		}
		res = append(res, f)
		cats = append(cats, scanJoinedCategory(catID, catName, catParent, catCreated))
	}
	return res, cats, rows.Err()
}

func (r Repo) DeleteFollowUp(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM follow_ups WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- backlog ---

const backlogCols = `id,category_id,title,content_markdown,content_html,priority,created_at,updated_at`

func scanBacklogItem(row taskScanner) (domain.BacklogItem, error) {
	var b domain.BacklogItem
	var categoryID, contentMD, contentHTML sql.NullString
	err := row.Scan(&b.ID, &categoryID, &b.Title, &contentMD, &contentHTML, &b.Priority, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, err
	}
	if categoryID.Valid {
		b.CategoryID = &categoryID.String
	}
	if contentMD.Valid {
		b.ContentMarkdown = contentMD.String
	}
	if contentHTML.Valid {
		b.ContentHTML = contentHTML.String
	}
	return b, nil
}

func (r Repo) InsertBacklogItem(ctx context.Context, tx *sql.Tx, b domain.BacklogItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO backlog_items(`+backlogCols+`) VALUES (?,?,?,?,?,?,?,?)`,
		b.ID, nullableStringPtr(b.CategoryID), b.Title, nullable(b.ContentMarkdown), nullable(b.ContentHTML),
		b.Priority, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r Repo) UpdateBacklogItem(ctx context.Context, tx *sql.Tx, b domain.BacklogItem) error {
	_, err := tx.ExecContext(ctx, `UPDATE backlog_items SET category_id=?, title=?, content_markdown=?, content_html=?, priority=?, updated_at=? WHERE id=?`,
		nullableStringPtr(b.CategoryID), b.Title, nullable(b.ContentMarkdown), nullable(b.ContentHTML),
		b.Priority, b.UpdatedAt, b.ID)
	return err
}

func (r Repo) GetBacklogItem(ctx context.Context, id string) (domain.BacklogItem, error) {
	return getBacklogItem(ctx, r.DB, id)
}

// GetBacklogItemTx reads a backlog item on an open transaction's connection.
func (r Repo) GetBacklogItemTx(ctx context.Context, tx *sql.Tx, id string) (domain.BacklogItem, error) {
	return getBacklogItem(ctx, tx, id)
}

func getBacklogItem(ctx context.Context, q querier, id string) (domain.BacklogItem, error) {
	b, err := scanBacklogItem(q.QueryRowContext(ctx, `SELECT `+backlogCols+` FROM backlog_items WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	return b, err
}

// ListBacklogItems returns the backlog ordered by priority then insertion.
func (r Repo) ListBacklogItems(ctx context.Context) ([]domain.BacklogItem, []*domain.Category, error) {
	query := `SELECT b.id,b.category_id,b.title,b.content_markdown,b.content_html,b.priority,b.created_at,b.updated_at,
c.id,c.name,c.parent_id,c.created_at
FROM backlog_items b LEFT JOIN categories c ON c.id=b.category_id ORDER BY b.priority, b.created_at, b.id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var res []domain.BacklogItem
	var cats []*domain.Category
	for rows.Next() {
		var b domain.BacklogItem
		var categoryID, contentMD, contentHTML sql.NullString
		var catID, catName, catParent, catCreated sql.NullString
		if err := rows.Scan(&b.ID, &categoryID, &b.Title, &contentMD, &contentHTML, &b.Priority, &b.CreatedAt, &b.UpdatedAt,
			&catID, &catName, &catParent, &catCreated); err != nil {
			return nil, nil, err
		}
		if categoryID.Valid {
			b.CategoryID = &categoryID.String
		}
		if contentMD.Valid {
			b.ContentMarkdown = contentMD.String
		}
		if contentHTML.Valid {
			b.ContentHTML = contentHTML.String
		}
		res = append(res, b)
		cats = append(cats, scanJoinedCategory(catID, catName, catParent, catCreated))
	}
	return res, cats, rows.Err()
}

func (r Repo) DeleteBacklogItem(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM backlog_items WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
