package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"weekplan/internal/domain"
	"weekplan/internal/engine"
	"weekplan/internal/repo"
)

// Path and header fields are declared directly on every input struct. Huma
// resolves them by reflection and cannot set fields promoted through an
// unexported embedded struct.

func registerWeeks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-weeks",
		Method:      http.MethodGet,
		Path:        "/weeks",
		Summary:     "List weeks",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Week `json:"body"`
	}, error) {
		items, err := e.Repo.ListWeeks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Week{}
		}
		return &struct {
			Body []domain.Week `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-week",
		Method:        http.MethodPost,
		Path:          "/weeks",
		Summary:       "Create an empty week",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorID string            `header:"X-Actor-Id"`
		Body    CreateWeekRequest `json:"body"`
	}) (*struct {
		Body domain.Week `json:"body"`
	}, error) {
		w, err := e.CreateWeek(ctx, input.Body.ID, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Week `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "current-week",
		Method:      http.MethodGet,
		Path:        "/weeks/current",
		Summary:     "Current week id and row when materialized",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body struct {
			ID     string       `json:"id"`
			Exists bool         `json:"exists"`
			Week   *domain.Week `json:"week,omitempty"`
		} `json:"body"`
	}, error) {
		out := &struct {
			Body struct {
				ID     string       `json:"id"`
				Exists bool         `json:"exists"`
				Week   *domain.Week `json:"week,omitempty"`
			} `json:"body"`
		}{}
		out.Body.ID = e.CurrentWeekID()
		w, err := e.Repo.GetWeek(ctx, out.Body.ID)
		switch {
		case err == nil:
			out.Body.Exists = true
			out.Body.Week = &w
		case !errors.Is(err, repo.ErrNotFound):
			return nil, handleError(err)
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-week",
		Method:      http.MethodGet,
		Path:        "/weeks/{week_id}",
		Summary:     "Get a week",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WeekID string `path:"week_id"`
	}) (*struct {
		Body domain.Week `json:"body"`
	}, error) {
		w, err := e.Repo.GetWeek(ctx, input.WeekID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Week `json:"body"`
		}{Body: w}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-week",
		Method:        http.MethodDelete,
		Path:          "/weeks/{week_id}",
		Summary:       "Delete a week and its tasks",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string `header:"X-Actor-Id"`
		WeekID  string `path:"week_id"`
	}) (*struct{}, error) {
		if err := e.DeleteWeek(ctx, input.WeekID, actorOrDefault(input.ActorID)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-week-tasks",
		Method:      http.MethodGet,
		Path:        "/weeks/{week_id}/tasks",
		Summary:     "List a week's tasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WeekID string `path:"week_id"`
	}) (*struct {
		Body []TaskView `json:"body"`
	}, error) {
		if _, err := e.Repo.GetWeek(ctx, input.WeekID); err != nil {
			return nil, handleError(err)
		}
		tasks, cats, err := e.Repo.ListWeekTasks(ctx, input.WeekID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []TaskView `json:"body"`
		}{Body: taskViews(tasks, cats)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "week-stats",
		Method:      http.MethodGet,
		Path:        "/weeks/{week_id}/stats",
		Summary:     "Completion stats and score for a week",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WeekID string `path:"week_id"`
	}) (*struct {
		Body WeekStatsResponse `json:"body"`
	}, error) {
		w, err := e.Repo.GetWeek(ctx, input.WeekID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WeekStatsResponse `json:"body"`
		}{Body: weekStats(w)}, nil
	})
}

func registerRollover(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "rollover-plan",
		Method:      http.MethodGet,
		Path:        "/rollover/plan",
		Summary:     "Candidate lists for generating the next week",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		PreviousWeekID string `query:"previous_week_id"`
	}) (*struct {
		Body domain.RolloverPlan `json:"body"`
	}, error) {
		plan, err := e.PlanRollover(ctx, input.PreviousWeekID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.RolloverPlan `json:"body"`
		}{Body: plan}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "generate-week",
		Method:        http.MethodPost,
		Path:          "/weeks/generate",
		Summary:       "Generate a week from rollover selections",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ActorID string              `header:"X-Actor-Id"`
		Body    GenerateWeekRequest `json:"body"`
	}) (*struct {
		Body domain.Week `json:"body"`
	}, error) {
		w, err := e.GenerateWeek(ctx, engine.GenerateWeekOptions{
			WeekID:         input.Body.WeekID,
			RecurringIDs:   input.Body.RecurringIDs,
			TaskIDs:        input.Body.TaskIDs,
			FollowUpIDs:    input.Body.FollowUpIDs,
			BacklogItemIDs: input.Body.BacklogItemIDs,
			ActorID:        actorOrDefault(input.ActorID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Week `json:"body"`
		}{Body: w}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Add a task to a week",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string            `header:"X-Actor-Id"`
		Body    CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			ID:              input.Body.ID,
			WeekID:          input.Body.WeekID,
			CategoryID:      input.Body.CategoryID,
			Title:           input.Body.Title,
			ContentMarkdown: input.Body.ContentMarkdown,
			ActorID:         actorOrDefault(input.ActorID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get a task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update a task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string            `header:"X-Actor-Id"`
		TaskID  string            `path:"task_id"`
		Body    UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.UpdateTask(ctx, input.TaskID, engine.TaskUpdateOptions{
			Title:           input.Body.Title,
			ContentMarkdown: input.Body.ContentMarkdown,
			CategoryID:      input.Body.CategoryID,
			Status:          input.Body.Status,
			ActorID:         actorOrDefault(input.ActorID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/toggle",
		Summary:     "Toggle a task between pending and completed",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string `header:"X-Actor-Id"`
		TaskID  string `path:"task_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.ToggleTask(ctx, input.TaskID, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{task_id}",
		Summary:       "Delete a task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string `header:"X-Actor-Id"`
		TaskID  string `path:"task_id"`
	}) (*struct{}, error) {
		if err := e.DeleteTask(ctx, input.TaskID, actorOrDefault(input.ActorID)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "move-task-to-backlog",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/backlog",
		Summary:       "Move a task to the backlog",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string               `header:"X-Actor-Id"`
		TaskID  string               `path:"task_id"`
		Body    MoveToBacklogRequest `json:"body"`
	}) (*struct {
		Body domain.BacklogItem `json:"body"`
	}, error) {
		b, err := e.MoveTaskToBacklog(ctx, input.TaskID, input.Body.Priority, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.BacklogItem `json:"body"`
		}{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-task-notes",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}/notes",
		Summary:     "List a task's notes",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body []domain.Note `json:"body"`
	}, error) {
		if _, err := e.Repo.GetTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		notes, err := e.Repo.ListNotes(ctx, domain.NoteOwner{Kind: domain.OwnerTask, ID: input.TaskID})
		if err != nil {
			return nil, handleError(err)
		}
		if notes == nil {
			notes = []domain.Note{}
		}
		return &struct {
			Body []domain.Note `json:"body"`
		}{Body: notes}, nil
	})
}

func registerRecurring(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-recurring",
		Method:      http.MethodGet,
		Path:        "/recurring",
		Summary:     "List recurring tasks",
	}, func(ctx context.Context, input *struct {
		ActiveOnly bool `query:"active"`
	}) (*struct {
		Body []domain.RecurringTask `json:"body"`
	}, error) {
		items, err := e.Repo.ListRecurringTasks(ctx, input.ActiveOnly)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.RecurringTask{}
		}
		return &struct {
			Body []domain.RecurringTask `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-recurring",
		Method:        http.MethodPost,
		Path:          "/recurring",
		Summary:       "Create a recurring task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ActorID string                 `header:"X-Actor-Id"`
		Body    CreateRecurringRequest `json:"body"`
	}) (*struct {
		Body domain.RecurringTask `json:"body"`
	}, error) {
		rt, err := e.CreateRecurringTask(ctx, engine.RecurringCreateOptions{
			ID:              input.Body.ID,
			CategoryID:      input.Body.CategoryID,
			Title:           input.Body.Title,
			ContentMarkdown: input.Body.ContentMarkdown,
			ActorID:         actorOrDefault(input.ActorID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.RecurringTask `json:"body"`
		}{Body: rt}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-recurring",
		Method:      http.MethodPatch,
		Path:        "/recurring/{recurring_id}",
		Summary:     "Update a recurring task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID     string                 `header:"X-Actor-Id"`
		RecurringID string                 `path:"recurring_id"`
		Body        UpdateRecurringRequest `json:"body"`
	}) (*struct {
		Body domain.RecurringTask `json:"body"`
	}, error) {
		rt, err := e.UpdateRecurringTask(ctx, input.RecurringID, engine.RecurringUpdateOptions{
			Title:           input.Body.Title,
			ContentMarkdown: input.Body.ContentMarkdown,
			CategoryID:      input.Body.CategoryID,
			ActorID:         actorOrDefault(input.ActorID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		if input.Body.IsActive != nil {
			rt, err = e.SetRecurringActive(ctx, input.RecurringID, *input.Body.IsActive, actorOrDefault(input.ActorID))
			if err != nil {
				return nil, handleError(err)
			}
		}
		return &struct {
			Body domain.RecurringTask `json:"body"`
		}{Body: rt}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-recurring",
		Method:        http.MethodDelete,
		Path:          "/recurring/{recurring_id}",
		Summary:       "Delete a recurring task",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID     string `header:"X-Actor-Id"`
		RecurringID string `path:"recurring_id"`
	}) (*struct{}, error) {
		if err := e.DeleteRecurringTask(ctx, input.RecurringID, actorOrDefault(input.ActorID)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerFollowUps(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-follow-ups",
		Method:      http.MethodGet,
		Path:        "/follow-ups",
		Summary:     "List queued follow-ups",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []FollowUpView `json:"body"`
	}, error) {
		items, cats, err := e.Repo.ListFollowUps(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []FollowUpView `json:"body"`
		}{Body: followUpViews(items, cats)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-follow-up",
		Method:        http.MethodPost,
		Path:          "/follow-ups",
		Summary:       "Queue a follow-up off an existing task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string                `header:"X-Actor-Id"`
		Body    CreateFollowUpRequest `json:"body"`
	}) (*struct {
		Body domain.FollowUp `json:"body"`
	}, error) {
		f, err := e.CreateFollowUp(ctx, engine.FollowUpCreateOptions{
			ID:              input.Body.ID,
			SourceTaskID:    input.Body.SourceTaskID,
			CategoryID:      input.Body.CategoryID,
			Title:           input.Body.Title,
			ContentMarkdown: input.Body.ContentMarkdown,
			ActorID:         actorOrDefault(input.ActorID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FollowUp `json:"body"`
		}{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-follow-up",
		Method:        http.MethodDelete,
		Path:          "/follow-ups/{follow_up_id}",
		Summary:       "Delete a follow-up",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID    string `header:"X-Actor-Id"`
		FollowUpID string `path:"follow_up_id"`
	}) (*struct{}, error) {
		if err := e.DeleteFollowUp(ctx, input.FollowUpID, actorOrDefault(input.ActorID)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerBacklog(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-backlog",
		Method:      http.MethodGet,
		Path:        "/backlog",
		Summary:     "List backlog items by priority",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []BacklogItemView `json:"body"`
	}, error) {
		items, cats, err := e.Repo.ListBacklogItems(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []BacklogItemView `json:"body"`
		}{Body: backlogViews(items, cats)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-backlog-item",
		Method:        http.MethodPost,
		Path:          "/backlog",
		Summary:       "Add a backlog item",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ActorID string                   `header:"X-Actor-Id"`
		Body    CreateBacklogItemRequest `json:"body"`
	}) (*struct {
		Body domain.BacklogItem `json:"body"`
	}, error) {
		b, err := e.CreateBacklogItem(ctx, engine.BacklogCreateOptions{
			ID:              input.Body.ID,
			CategoryID:      input.Body.CategoryID,
			Title:           input.Body.Title,
			ContentMarkdown: input.Body.ContentMarkdown,
			Priority:        input.Body.Priority,
			ActorID:         actorOrDefault(input.ActorID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.BacklogItem `json:"body"`
		}{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-backlog-item",
		Method:      http.MethodPatch,
		Path:        "/backlog/{item_id}",
		Summary:     "Update a backlog item",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string                   `header:"X-Actor-Id"`
		ItemID  string                   `path:"item_id"`
		Body    UpdateBacklogItemRequest `json:"body"`
	}) (*struct {
		Body domain.BacklogItem `json:"body"`
	}, error) {
		b, err := e.UpdateBacklogItem(ctx, input.ItemID, engine.BacklogUpdateOptions{
			Title:           input.Body.Title,
			ContentMarkdown: input.Body.ContentMarkdown,
			CategoryID:      input.Body.CategoryID,
			Priority:        input.Body.Priority,
			ActorID:         actorOrDefault(input.ActorID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.BacklogItem `json:"body"`
		}{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-backlog-item",
		Method:        http.MethodDelete,
		Path:          "/backlog/{item_id}",
		Summary:       "Delete a backlog item",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string `header:"X-Actor-Id"`
		ItemID  string `path:"item_id"`
	}) (*struct{}, error) {
		if err := e.DeleteBacklogItem(ctx, input.ItemID, actorOrDefault(input.ActorID)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "promote-backlog-item",
		Method:        http.MethodPost,
		Path:          "/backlog/{item_id}/promote",
		Summary:       "Move a backlog item into a week",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string                `header:"X-Actor-Id"`
		ItemID  string                `path:"item_id"`
		Body    PromoteBacklogRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.MoveBacklogToWeek(ctx, input.ItemID, input.Body.WeekID, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-backlog-notes",
		Method:      http.MethodGet,
		Path:        "/backlog/{item_id}/notes",
		Summary:     "List a backlog item's notes",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ItemID string `path:"item_id"`
	}) (*struct {
		Body []domain.Note `json:"body"`
	}, error) {
		if _, err := e.Repo.GetBacklogItem(ctx, input.ItemID); err != nil {
			return nil, handleError(err)
		}
		notes, err := e.Repo.ListNotes(ctx, domain.NoteOwner{Kind: domain.OwnerBacklog, ID: input.ItemID})
		if err != nil {
			return nil, handleError(err)
		}
		if notes == nil {
			notes = []domain.Note{}
		}
		return &struct {
			Body []domain.Note `json:"body"`
		}{Body: notes}, nil
	})
}

func registerNotes(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-note",
		Method:        http.MethodPost,
		Path:          "/notes",
		Summary:       "Attach a note to a task or backlog item",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string            `header:"X-Actor-Id"`
		Body    CreateNoteRequest `json:"body"`
	}) (*struct {
		Body domain.Note `json:"body"`
	}, error) {
		n, err := e.CreateNote(ctx, engine.NoteCreateOptions{
			ID:              input.Body.ID,
			Owner:           domain.NoteOwner{Kind: input.Body.OwnerKind, ID: input.Body.OwnerID},
			ContentMarkdown: input.Body.ContentMarkdown,
			ActorID:         actorOrDefault(input.ActorID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Note `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-note",
		Method:      http.MethodGet,
		Path:        "/notes/{note_id}",
		Summary:     "Get a note",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NoteID string `path:"note_id"`
	}) (*struct {
		Body domain.Note `json:"body"`
	}, error) {
		n, err := e.Repo.GetNote(ctx, input.NoteID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Note `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-note",
		Method:      http.MethodPatch,
		Path:        "/notes/{note_id}",
		Summary:     "Update a note's content",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string            `header:"X-Actor-Id"`
		NoteID  string            `path:"note_id"`
		Body    UpdateNoteRequest `json:"body"`
	}) (*struct {
		Body domain.Note `json:"body"`
	}, error) {
		n, err := e.UpdateNote(ctx, input.NoteID, input.Body.ContentMarkdown, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Note `json:"body"`
		}{Body: n}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-note",
		Method:        http.MethodDelete,
		Path:          "/notes/{note_id}",
		Summary:       "Delete a note",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string `header:"X-Actor-Id"`
		NoteID  string `path:"note_id"`
	}) (*struct{}, error) {
		if err := e.DeleteNote(ctx, input.NoteID, actorOrDefault(input.ActorID)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-note-attachments",
		Method:      http.MethodGet,
		Path:        "/notes/{note_id}/attachments",
		Summary:     "List a note's attachments",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NoteID string `path:"note_id"`
	}) (*struct {
		Body []domain.Attachment `json:"body"`
	}, error) {
		if _, err := e.Repo.GetNote(ctx, input.NoteID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListNoteAttachments(ctx, input.NoteID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Attachment{}
		}
		return &struct {
			Body []domain.Attachment `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-note-attachment",
		Method:        http.MethodPost,
		Path:          "/notes/{note_id}/attachments",
		Summary:       "Record attachment metadata on a note",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string               `header:"X-Actor-Id"`
		NoteID  string               `path:"note_id"`
		Body    AddAttachmentRequest `json:"body"`
	}) (*struct {
		Body domain.Attachment `json:"body"`
	}, error) {
		a, err := e.AddAttachment(ctx, engine.AttachmentAddOptions{
			NoteID:   input.NoteID,
			Filename: input.Body.Filename,
			MimeType: input.Body.MimeType,
			Size:     input.Body.Size,
			ActorID:  actorOrDefault(input.ActorID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Attachment `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-attachment",
		Method:        http.MethodDelete,
		Path:          "/attachments/{attachment_id}",
		Summary:       "Delete an attachment record",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID      string `header:"X-Actor-Id"`
		AttachmentID string `path:"attachment_id"`
	}) (*struct{}, error) {
		if err := e.DeleteAttachment(ctx, input.AttachmentID, actorOrDefault(input.ActorID)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerCategories(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/categories",
		Summary:     "List categories",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Category `json:"body"`
	}, error) {
		items, err := e.Repo.ListCategories(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Category{}
		}
		return &struct {
			Body []domain.Category `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-category",
		Method:        http.MethodPost,
		Path:          "/categories",
		Summary:       "Create a category",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID string                `header:"X-Actor-Id"`
		Body    CreateCategoryRequest `json:"body"`
	}) (*struct {
		Body domain.Category `json:"body"`
	}, error) {
		c, err := e.CreateCategory(ctx, input.Body.ID, input.Body.Name, input.Body.ParentID, actorOrDefault(input.ActorID))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Category `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-category",
		Method:      http.MethodPatch,
		Path:        "/categories/{category_id}",
		Summary:     "Update a category",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID    string                `header:"X-Actor-Id"`
		CategoryID string                `path:"category_id"`
		Body       UpdateCategoryRequest `json:"body"`
	}) (*struct {
		Body domain.Category `json:"body"`
	}, error) {
		c, err := e.UpdateCategory(ctx, input.CategoryID, engine.CategoryUpdateOptions{
			Name:     input.Body.Name,
			ParentID: input.Body.ParentID,
			ActorID:  actorOrDefault(input.ActorID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Category `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-category",
		Method:        http.MethodDelete,
		Path:          "/categories/{category_id}",
		Summary:       "Delete a category",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActorID    string `header:"X-Actor-Id"`
		CategoryID string `path:"category_id"`
	}) (*struct{}, error) {
		if err := e.DeleteCategory(ctx, input.CategoryID, actorOrDefault(input.ActorID)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Tail the event log",
	}, func(ctx context.Context, input *struct {
		After int64 `query:"after"`
		Limit int   `query:"limit"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 || limit > 500 {
			limit = 100
		}
		var (
			items []domain.Event
			err   error
		)
		if input.After > 0 {
			items, err = e.Repo.EventsAfter(ctx, input.After, limit)
		} else {
			items, err = e.Repo.LatestEvents(ctx, limit)
		}
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Event{}
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}
