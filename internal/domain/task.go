package domain

import "time"

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ValidTaskStatus reports whether the value is a known status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority enumerates urgency levels.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// ValidTaskPriority reports whether the value is a known priority.
func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// PDFMimeType is the only mime type accepted for attachments.
const PDFMimeType = "application/pdf"

// MaxAttachmentsPerTask caps the attachment list length at all times.
const MaxAttachmentsPerTask = 3

// Attachment stores metadata for a stored PDF blob owned by one task.
type Attachment struct {
	ID           string
	Filename     string
	OriginalName string
	Path         string
	Size         int64
	MimeType     string
	UploadDate   time.Time
}

// Task is the aggregate for work items.
//
// CreatedBy is set once at creation and never changes; AssignedTo becomes
// nil when the assignee account is deleted.
type Task struct {
	ID             string
	Title          string
	Description    string
	Status         TaskStatus
	Priority       TaskPriority
	DueDate        time.Time
	AssignedTo     *string
	CreatedBy      string
	Assignee       *UserSummary
	Creator        *UserSummary
	Tags           []string
	EstimatedHours float64
	ActualHours    float64
	Attachments    []Attachment
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsOverdue reports whether the task is past due and not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate.Before(now) && t.Status != TaskStatusCompleted
}

// FindAttachment returns the attachment with the given generated filename.
func (t *Task) FindAttachment(filename string) (*Attachment, bool) {
	for i := range t.Attachments {
		if t.Attachments[i].Filename == filename {
			return &t.Attachments[i], true
		}
	}
	return nil, false
}
