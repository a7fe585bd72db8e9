package domain

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

type Week struct {
	ID             string `json:"id"`
	StartDate      string `json:"start_date" format:"date"`
	EndDate        string `json:"end_date" format:"date"`
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	CreatedAt      string `json:"created_at" format:"date-time"`
	UpdatedAt      string `json:"updated_at" format:"date-time"`
}

type Task struct {
	ID                string  `json:"id"`
	WeekID            string  `json:"week_id"`
	CategoryID        *string `json:"category_id,omitempty"`
	Title             string  `json:"title"`
	ContentMarkdown   string  `json:"content_markdown,omitempty"`
	ContentHTML       string  `json:"content_html,omitempty"`
	Status            string  `json:"status" enum:"pending,completed"`
	IsRecurring       bool    `json:"is_recurring"`
	StalenessCount    int     `json:"staleness_count"`
	PreviousVersionID *string `json:"previous_version_id,omitempty"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
	UpdatedAt         string  `json:"updated_at" format:"date-time"`
}

type RecurringTask struct {
	ID              string  `json:"id"`
	CategoryID      *string `json:"category_id,omitempty"`
	Title           string  `json:"title"`
	ContentMarkdown string  `json:"content_markdown,omitempty"`
	ContentHTML     string  `json:"content_html,omitempty"`
	IsActive        bool    `json:"is_active"`
	CreatedAt       string  `json:"created_at" format:"date-time"`
	UpdatedAt       string  `json:"updated_at" format:"date-time"`
}

type FollowUp struct {
	ID              string  `json:"id"`
	SourceTaskID    string  `json:"source_task_id"`
	CategoryID      *string `json:"category_id,omitempty"`
	Title           string  `json:"title"`
	ContentMarkdown string  `json:"content_markdown,omitempty"`
	ContentHTML     string  `json:"content_html,omitempty"`
	CreatedAt       string  `json:"created_at" format:"date-time"`
}

type BacklogItem struct {
	ID              string  `json:"id"`
	CategoryID      *string `json:"category_id,omitempty"`
	Title           string  `json:"title"`
	ContentMarkdown string  `json:"content_markdown,omitempty"`
	ContentHTML     string  `json:"content_html,omitempty"`
	Priority        int     `json:"priority"`
	CreatedAt       string  `json:"created_at" format:"date-time"`
	UpdatedAt       string  `json:"updated_at" format:"date-time"`
}

// Note owner kinds. A note belongs to exactly one task or one backlog item.
const (
	OwnerTask    = "task"
	OwnerBacklog = "backlog_item"
)

type NoteOwner struct {
	Kind string `json:"kind" enum:"task,backlog_item"`
	ID   string `json:"id"`
}

type Note struct {
	ID              string    `json:"id"`
	Owner           NoteOwner `json:"owner"`
	ContentMarkdown string    `json:"content_markdown"`
	ContentHTML     string    `json:"content_html"`
	CreatedAt       string    `json:"created_at" format:"date-time"`
	UpdatedAt       string    `json:"updated_at" format:"date-time"`
}

type Attachment struct {
	ID        string `json:"id"`
	NoteID    string `json:"note_id"`
	Filename  string `json:"filename"`
	BlobKey   string `json:"blob_key"`
	MimeType  string `json:"mime_type"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Category struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ParentID  *string `json:"parent_id,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

// Rollover plan candidates. Selected carries the wizard's default
// pre-selection; the caller decides the final set.

type RecurringCandidate struct {
	RecurringTask
	Selected bool `json:"selected"`
}

type IncompleteCandidate struct {
	Task
	Category *Category `json:"category,omitempty"`
	Selected bool      `json:"selected"`
}

type FollowUpCandidate struct {
	FollowUp
	Category *Category `json:"category,omitempty"`
	Selected bool      `json:"selected"`
}

type BacklogCandidate struct {
	BacklogItem
	Category *Category `json:"category,omitempty"`
	Selected bool      `json:"selected"`
}

type RolloverPlan struct {
	RecurringTasks  []RecurringCandidate  `json:"recurring_tasks"`
	IncompleteTasks []IncompleteCandidate `json:"incomplete_tasks"`
	FollowUps       []FollowUpCandidate   `json:"follow_ups"`
	BacklogItems    []BacklogCandidate    `json:"backlog_items"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
