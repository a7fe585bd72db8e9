package repo

import (
	"context"
	"database/sql"
	"fmt"

	"weekplan/internal/domain"
)

// --- notes ---

const noteCols = `id,task_id,backlog_item_id,content_markdown,content_html,created_at,updated_at`

func ownerColumn(kind string) (string, error) {
	switch kind {
	case domain.OwnerTask:
		return "task_id", nil
	case domain.OwnerBacklog:
		return "backlog_item_id", nil
	}
	return "", fmt.Errorf("unknown note owner kind %q", kind)
}

func scanNote(row taskScanner) (domain.Note, error) {
	var n domain.Note
	var taskID, backlogItemID, contentHTML sql.NullString
	err := row.Scan(&n.ID, &taskID, &backlogItemID, &n.ContentMarkdown, &contentHTML, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return n, err
	}
	switch {
	case taskID.Valid:
		n.Owner = domain.NoteOwner{Kind: domain.OwnerTask, ID: taskID.String}
	case backlogItemID.Valid:
		n.Owner = domain.NoteOwner{Kind: domain.OwnerBacklog, ID: backlogItemID.String}
	}
	if contentHTML.Valid {
		n.ContentHTML = contentHTML.String
	}
	return n, nil
}

func (r Repo) InsertNote(ctx context.Context, tx *sql.Tx, n domain.Note) error {
	var taskID, backlogItemID any
	switch n.Owner.Kind {
	case domain.OwnerTask:
		taskID = n.Owner.ID
	case domain.OwnerBacklog:
		backlogItemID = n.Owner.ID
	default:
		return fmt.Errorf("unknown note owner kind %q", n.Owner.Kind)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO notes(`+noteCols+`) VALUES (?,?,?,?,?,?,?)`,
		n.ID, taskID, backlogItemID, n.ContentMarkdown, n.ContentHTML, n.CreatedAt, n.UpdatedAt)
	return err
}

func (r Repo) UpdateNote(ctx context.Context, tx *sql.Tx, n domain.Note) error {
	_, err := tx.ExecContext(ctx, `UPDATE notes SET content_markdown=?, content_html=?, updated_at=? WHERE id=?`,
		n.ContentMarkdown, n.ContentHTML, n.UpdatedAt, n.ID)
	return err
}

func (r Repo) GetNote(ctx context.Context, id string) (domain.Note, error) {
	n, err := scanNote(r.DB.QueryRowContext(ctx, `SELECT `+noteCols+` FROM notes WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return n, ErrNotFound
	}
	return n, err
}

func (r Repo) ListNotes(ctx context.Context, owner domain.NoteOwner) ([]domain.Note, error) {
	return listNotes(ctx, r.DB, owner)
}

// ListNotesTx lists an owner's notes on an open transaction's connection.
func (r Repo) ListNotesTx(ctx context.Context, tx *sql.Tx, owner domain.NoteOwner) ([]domain.Note, error) {
	return listNotes(ctx, tx, owner)
}

func listNotes(ctx context.Context, q querier, owner domain.NoteOwner) ([]domain.Note, error) {
	col, err := ownerColumn(owner.Kind)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `SELECT `+noteCols+` FROM notes WHERE `+col+`=? ORDER BY created_at, id`, owner.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, rows.Err()
}

func (r Repo) DeleteNote(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- attachments ---

const attachmentCols = `id,note_id,filename,blob_key,mime_type,size,created_at`

func (r Repo) InsertAttachment(ctx context.Context, tx *sql.Tx, a domain.Attachment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO attachments(`+attachmentCols+`) VALUES (?,?,?,?,?,?,?)`,
		a.ID, a.NoteID, a.Filename, a.BlobKey, a.MimeType, a.Size, a.CreatedAt)
	return err
}

func (r Repo) GetAttachment(ctx context.Context, id string) (domain.Attachment, error) {
	var a domain.Attachment
	err := r.DB.QueryRowContext(ctx, `SELECT `+attachmentCols+` FROM attachments WHERE id=?`, id).
		Scan(&a.ID, &a.NoteID, &a.Filename, &a.BlobKey, &a.MimeType, &a.Size, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) ListNoteAttachments(ctx context.Context, noteID string) ([]domain.Attachment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+attachmentCols+` FROM attachments WHERE note_id=? ORDER BY created_at, id`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.NoteID, &a.Filename, &a.BlobKey, &a.MimeType, &a.Size, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) DeleteAttachment(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- categories ---

const categoryCols = `id,name,parent_id,created_at`

func (r Repo) InsertCategory(ctx context.Context, tx *sql.Tx, c domain.Category) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO categories(`+categoryCols+`) VALUES (?,?,?,?)`,
		c.ID, c.Name, nullableStringPtr(c.ParentID), c.CreatedAt)
	return err
}

func (r Repo) UpdateCategory(ctx context.Context, tx *sql.Tx, c domain.Category) error {
	_, err := tx.ExecContext(ctx, `UPDATE categories SET name=?, parent_id=? WHERE id=?`,
		c.Name, nullableStringPtr(c.ParentID), c.ID)
	return err
}

func (r Repo) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	var c domain.Category
	var parent sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT `+categoryCols+` FROM categories WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &parent, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	if parent.Valid {
		c.ParentID = &parent.String
	}
	return c, nil
}

func (r Repo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+categoryCols+` FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Category
	for rows.Next() {
		var c domain.Category
		var parent sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &parent, &c.CreatedAt); err != nil {
			return nil, err
		}
		if parent.Valid {
			c.ParentID = &parent.String
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) DeleteCategory(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
