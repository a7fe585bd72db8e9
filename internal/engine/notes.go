package engine

import (
	"context"
	"errors"
	"fmt"

	"weekplan/internal/domain"
	"weekplan/internal/events"
	"weekplan/internal/markdown"
)

// --- notes ---

type NoteCreateOptions struct {
	ID              string
	Owner           domain.NoteOwner
	ContentMarkdown string
	ActorID         string
}

func (e Engine) CreateNote(ctx context.Context, opts NoteCreateOptions) (domain.Note, error) {
	if opts.ContentMarkdown == "" {
		return domain.Note{}, errors.New("content is required")
	}
	switch opts.Owner.Kind {
	case domain.OwnerTask:
		if _, err := e.Repo.GetTask(ctx, opts.Owner.ID); err != nil {
			return domain.Note{}, err
		}
	case domain.OwnerBacklog:
		if _, err := e.Repo.GetBacklogItem(ctx, opts.Owner.ID); err != nil {
			return domain.Note{}, err
		}
	default:
		return domain.Note{}, fmt.Errorf("unknown note owner kind %q", opts.Owner.Kind)
	}
	html, err := markdown.Render(opts.ContentMarkdown)
	if err != nil {
		return domain.Note{}, fmt.Errorf("render content: %w", err)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Note{}, err
	}
	defer tx.Rollback()

	ts := e.timestamp()
	n := domain.Note{
		ID:              opts.ID,
		Owner:           opts.Owner,
		ContentMarkdown: opts.ContentMarkdown,
		ContentHTML:     html,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if n.ID == "" {
		n.ID = newID()
	}
	if err := e.Repo.InsertNote(ctx, tx, n); err != nil {
		return domain.Note{}, fmt.Errorf("insert note: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "note.created", "note", n.ID, opts.ActorID, events.EventPayload{
		"owner_kind": n.Owner.Kind, "owner_id": n.Owner.ID,
	}); err != nil {
		return domain.Note{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Note{}, err
	}
	return n, nil
}

func (e Engine) UpdateNote(ctx context.Context, noteID, contentMarkdown, actorID string) (domain.Note, error) {
	if contentMarkdown == "" {
		return domain.Note{}, errors.New("content is required")
	}
	n, err := e.Repo.GetNote(ctx, noteID)
	if err != nil {
		return domain.Note{}, err
	}
	html, err := markdown.Render(contentMarkdown)
	if err != nil {
		return domain.Note{}, fmt.Errorf("render content: %w", err)
	}
	n.ContentMarkdown = contentMarkdown
	n.ContentHTML = html
	n.UpdatedAt = e.timestamp()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Note{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateNote(ctx, tx, n); err != nil {
		return domain.Note{}, err
	}
	if err := e.Events.Append(ctx, tx, "note.updated", "note", n.ID, actorID, nil); err != nil {
		return domain.Note{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Note{}, err
	}
	return n, nil
}

func (e Engine) DeleteNote(ctx context.Context, noteID, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteNote(ctx, tx, noteID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "note.deleted", "note", noteID, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// --- attachments ---

type AttachmentAddOptions struct {
	ID       string
	NoteID   string
	Filename string
	MimeType string
	Size     int64
	ActorID  string
}

// AddAttachment records attachment metadata against a note. The blob itself
// lives in external storage under the generated key.
func (e Engine) AddAttachment(ctx context.Context, opts AttachmentAddOptions) (domain.Attachment, error) {
	if opts.Filename == "" {
		return domain.Attachment{}, errors.New("filename is required")
	}
	if _, err := e.Repo.GetNote(ctx, opts.NoteID); err != nil {
		return domain.Attachment{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Attachment{}, err
	}
	defer tx.Rollback()

	a := domain.Attachment{
		ID:        opts.ID,
		NoteID:    opts.NoteID,
		Filename:  opts.Filename,
		MimeType:  opts.MimeType,
		Size:      opts.Size,
		CreatedAt: e.timestamp(),
	}
	if a.ID == "" {
		a.ID = newID()
	}
	a.BlobKey = "attachments/" + a.ID + "/" + a.Filename
	if err := e.Repo.InsertAttachment(ctx, tx, a); err != nil {
		return domain.Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "attachment.added", "attachment", a.ID, opts.ActorID, events.EventPayload{"note_id": a.NoteID}); err != nil {
		return domain.Attachment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Attachment{}, err
	}
	return a, nil
}

func (e Engine) DeleteAttachment(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteAttachment(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "attachment.deleted", "attachment", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// --- categories ---

func (e Engine) CreateCategory(ctx context.Context, id, name, parentID, actorID string) (domain.Category, error) {
	if name == "" {
		return domain.Category{}, errors.New("name is required")
	}
	if parentID != "" {
		if _, err := e.Repo.GetCategory(ctx, parentID); err != nil {
			return domain.Category{}, err
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Category{}, err
	}
	defer tx.Rollback()

	c := domain.Category{
		ID:        id,
		Name:      name,
		CreatedAt: e.timestamp(),
	}
	if c.ID == "" {
		c.ID = newID()
	}
	if parentID != "" {
		c.ParentID = &parentID
	}
	if err := e.Repo.InsertCategory(ctx, tx, c); err != nil {
		return domain.Category{}, fmt.Errorf("insert category: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "category.created", "category", c.ID, actorID, nil); err != nil {
		return domain.Category{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

type CategoryUpdateOptions struct {
	Name     *string
	ParentID *string
	ActorID  string
}

func (e Engine) UpdateCategory(ctx context.Context, id string, opts CategoryUpdateOptions) (domain.Category, error) {
	c, err := e.Repo.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	if opts.Name != nil {
		if *opts.Name == "" {
			return domain.Category{}, errors.New("name is required")
		}
		c.Name = *opts.Name
	}
	if opts.ParentID != nil {
		if *opts.ParentID == "" {
			c.ParentID = nil
		} else {
			if err := e.checkCategoryCycle(ctx, c.ID, *opts.ParentID); err != nil {
				return domain.Category{}, err
			}
			c.ParentID = opts.ParentID
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Category{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateCategory(ctx, tx, c); err != nil {
		return domain.Category{}, err
	}
	if err := e.Events.Append(ctx, tx, "category.updated", "category", c.ID, opts.ActorID, nil); err != nil {
		return domain.Category{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

// checkCategoryCycle walks up from the proposed parent and rejects a chain
// that reaches id again.
func (e Engine) checkCategoryCycle(ctx context.Context, id, parentID string) error {
	cur := parentID
	for cur != "" {
		if cur == id {
			return fmt.Errorf("category %s cannot be its own ancestor", id)
		}
		p, err := e.Repo.GetCategory(ctx, cur)
		if err != nil {
			return err
		}
		if p.ParentID == nil {
			return nil
		}
		cur = *p.ParentID
	}
	return nil
}

func (e Engine) DeleteCategory(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteCategory(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "category.deleted", "category", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}
