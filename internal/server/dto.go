package server

import "weekplan/internal/domain"

// TaskView is a task joined with its category for read endpoints.
type TaskView struct {
	domain.Task
	Category *domain.Category `json:"category,omitempty"`
}

// FollowUpView is a follow-up joined with its category.
type FollowUpView struct {
	domain.FollowUp
	Category *domain.Category `json:"category,omitempty"`
}

// BacklogItemView is a backlog item joined with its category.
type BacklogItemView struct {
	domain.BacklogItem
	Category *domain.Category `json:"category,omitempty"`
}

// WeekStatsResponse summarizes a week's completion.
type WeekStatsResponse struct {
	WeekID         string `json:"week_id"`
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	Percentage     int    `json:"percentage"`
	Score          string `json:"score" enum:"red,yellow,green,fire"`
}

type CreateWeekRequest struct {
	ID string `json:"id" example:"2026-07"`
}

type GenerateWeekRequest struct {
	WeekID         string   `json:"week_id" example:"2026-07"`
	RecurringIDs   []string `json:"recurring_ids,omitempty"`
	TaskIDs        []string `json:"task_ids,omitempty"`
	FollowUpIDs    []string `json:"follow_up_ids,omitempty"`
	BacklogItemIDs []string `json:"backlog_item_ids,omitempty"`
}

type CreateTaskRequest struct {
	ID              string `json:"id,omitempty"`
	WeekID          string `json:"week_id"`
	CategoryID      string `json:"category_id,omitempty"`
	Title           string `json:"title"`
	ContentMarkdown string `json:"content_markdown,omitempty"`
}

type UpdateTaskRequest struct {
	Title           *string `json:"title,omitempty"`
	ContentMarkdown *string `json:"content_markdown,omitempty"`
	CategoryID      *string `json:"category_id,omitempty"`
	Status          *string `json:"status,omitempty" enum:"pending,completed"`
}

type MoveToBacklogRequest struct {
	Priority int `json:"priority,omitempty"`
}

type PromoteBacklogRequest struct {
	WeekID string `json:"week_id" example:"2026-07"`
}

type CreateRecurringRequest struct {
	ID              string `json:"id,omitempty"`
	CategoryID      string `json:"category_id,omitempty"`
	Title           string `json:"title"`
	ContentMarkdown string `json:"content_markdown,omitempty"`
}

type UpdateRecurringRequest struct {
	Title           *string `json:"title,omitempty"`
	ContentMarkdown *string `json:"content_markdown,omitempty"`
	CategoryID      *string `json:"category_id,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

type CreateFollowUpRequest struct {
	ID              string `json:"id,omitempty"`
	SourceTaskID    string `json:"source_task_id"`
	CategoryID      string `json:"category_id,omitempty"`
	Title           string `json:"title"`
	ContentMarkdown string `json:"content_markdown,omitempty"`
}

type CreateBacklogItemRequest struct {
	ID              string `json:"id,omitempty"`
	CategoryID      string `json:"category_id,omitempty"`
	Title           string `json:"title"`
	ContentMarkdown string `json:"content_markdown,omitempty"`
	Priority        int    `json:"priority,omitempty"`
}

type UpdateBacklogItemRequest struct {
	Title           *string `json:"title,omitempty"`
	ContentMarkdown *string `json:"content_markdown,omitempty"`
	CategoryID      *string `json:"category_id,omitempty"`
	Priority        *int    `json:"priority,omitempty"`
}

type CreateNoteRequest struct {
	ID              string `json:"id,omitempty"`
	OwnerKind       string `json:"owner_kind" enum:"task,backlog_item"`
	OwnerID         string `json:"owner_id"`
	ContentMarkdown string `json:"content_markdown"`
}

type UpdateNoteRequest struct {
	ContentMarkdown string `json:"content_markdown"`
}

type AddAttachmentRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

type CreateCategoryRequest struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

type UpdateCategoryRequest struct {
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
}

func taskViews(tasks []domain.Task, cats []*domain.Category) []TaskView {
	res := make([]TaskView, len(tasks))
	for i := range tasks {
		res[i] = TaskView{Task: tasks[i], Category: cats[i]}
	}
	return res
}

func followUpViews(items []domain.FollowUp, cats []*domain.Category) []FollowUpView {
	res := make([]FollowUpView, len(items))
	for i := range items {
		res[i] = FollowUpView{FollowUp: items[i], Category: cats[i]}
	}
	return res
}

func backlogViews(items []domain.BacklogItem, cats []*domain.Category) []BacklogItemView {
	res := make([]BacklogItemView, len(items))
	for i := range items {
		res[i] = BacklogItemView{BacklogItem: items[i], Category: cats[i]}
	}
	return res
}

func weekStats(w domain.Week) WeekStatsResponse {
	pct := domain.CompletionPercentage(w.CompletedTasks, w.TotalTasks)
	return WeekStatsResponse{
		WeekID:         w.ID,
		TotalTasks:     w.TotalTasks,
		CompletedTasks: w.CompletedTasks,
		Percentage:     pct,
		Score:          domain.ScoreLevel(pct),
	}
}
