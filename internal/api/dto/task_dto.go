package dto

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/pkg/util"
)

// CreateTaskRequest payload. Form tags cover the multipart variant used
// when attachments ride along with creation.
type CreateTaskRequest struct {
	Title          string              `json:"title" form:"title"`
	Description    string              `json:"description" form:"description"`
	Status         domain.TaskStatus   `json:"status" form:"status"`
	Priority       domain.TaskPriority `json:"priority" form:"priority"`
	DueDate        string              `json:"dueDate" form:"dueDate"`
	AssignedTo     string              `json:"assignedTo" form:"assignedTo"`
	Tags           []string            `json:"tags" form:"tags"`
	EstimatedHours float64             `json:"estimatedHours" form:"estimatedHours"`
	ActualHours    float64             `json:"actualHours" form:"actualHours"`
}

// Validate applies the creation rules.
func (r CreateTaskRequest) Validate() []util.FieldError {
	var errs fieldErrors
	title := strings.TrimSpace(r.Title)
	if title == "" {
		errs.add("title", "Title is required")
	} else if utf8.RuneCountInString(title) > 100 {
		errs.add("title", "Title cannot be more than 100 characters")
	}
	description := strings.TrimSpace(r.Description)
	if description == "" {
		errs.add("description", "Description is required")
	} else if utf8.RuneCountInString(description) > 1000 {
		errs.add("description", "Description cannot be more than 1000 characters")
	}
	if r.Status != "" && !domain.ValidTaskStatus(r.Status) {
		errs.add("status", "Invalid status value")
	}
	if r.Priority != "" && !domain.ValidTaskPriority(r.Priority) {
		errs.add("priority", "Invalid priority value")
	}
	if r.DueDate == "" {
		errs.add("dueDate", "Please provide a due date")
	} else if due, ok := parseDueDate(r.DueDate); !ok {
		errs.add("dueDate", "Due date must be a valid ISO 8601 date")
	} else if !due.After(time.Now()) {
		errs.add("dueDate", "Due date must be in the future")
	}
	if strings.TrimSpace(r.AssignedTo) == "" {
		errs.add("assignedTo", "Please assign the task to a user")
	}
	validateTags(&errs, r.Tags)
	if !validHours(r.EstimatedHours) {
		errs.add("estimatedHours", "Estimated hours must be between 0 and 1000")
	}
	if !validHours(r.ActualHours) {
		errs.add("actualHours", "Actual hours must be between 0 and 1000")
	}
	return errs
}

// DueDateValue parses the validated due date.
func (r CreateTaskRequest) DueDateValue() time.Time {
	due, _ := parseDueDate(r.DueDate)
	return due
}

// UpdateTaskRequest payload; nil fields are untouched.
type UpdateTaskRequest struct {
	Title          *string              `json:"title" form:"title"`
	Description    *string              `json:"description" form:"description"`
	Status         *domain.TaskStatus   `json:"status" form:"status"`
	Priority       *domain.TaskPriority `json:"priority" form:"priority"`
	DueDate        *string              `json:"dueDate" form:"dueDate"`
	AssignedTo     *string              `json:"assignedTo" form:"assignedTo"`
	Tags           *[]string            `json:"tags" form:"tags"`
	EstimatedHours *float64             `json:"estimatedHours" form:"estimatedHours"`
	ActualHours    *float64             `json:"actualHours" form:"actualHours"`
}

// Validate applies the update rules.
func (r UpdateTaskRequest) Validate() []util.FieldError {
	var errs fieldErrors
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		if title == "" || utf8.RuneCountInString(title) > 100 {
			errs.add("title", "Title cannot be more than 100 characters")
		}
	}
	if r.Description != nil {
		description := strings.TrimSpace(*r.Description)
		if description == "" || utf8.RuneCountInString(description) > 1000 {
			errs.add("description", "Description cannot be more than 1000 characters")
		}
	}
	if r.Status != nil && !domain.ValidTaskStatus(*r.Status) {
		errs.add("status", "Invalid status value")
	}
	if r.Priority != nil && !domain.ValidTaskPriority(*r.Priority) {
		errs.add("priority", "Invalid priority value")
	}
	if r.DueDate != nil {
		if due, ok := parseDueDate(*r.DueDate); !ok {
			errs.add("dueDate", "Due date must be a valid ISO 8601 date")
		} else if !due.After(time.Now()) {
			errs.add("dueDate", "Due date must be in the future")
		}
	}
	if r.AssignedTo != nil && strings.TrimSpace(*r.AssignedTo) == "" {
		errs.add("assignedTo", "Invalid user ID for assignment")
	}
	if r.Tags != nil {
		validateTags(&errs, *r.Tags)
	}
	if r.EstimatedHours != nil && !validHours(*r.EstimatedHours) {
		errs.add("estimatedHours", "Estimated hours must be between 0 and 1000")
	}
	if r.ActualHours != nil && !validHours(*r.ActualHours) {
		errs.add("actualHours", "Actual hours must be between 0 and 1000")
	}
	return errs
}

// DueDateValue parses the validated due date when present.
func (r UpdateTaskRequest) DueDateValue() *time.Time {
	if r.DueDate == nil {
		return nil
	}
	due, ok := parseDueDate(*r.DueDate)
	if !ok {
		return nil
	}
	return &due
}

// TaskListQuery captures list filters as received on the query string.
type TaskListQuery struct {
	Status     string
	Priority   string
	AssignedTo string
	CreatedBy  string
	Sort       string
	Order      string
	Page       string
	Limit      string
}

var sortableFields = map[string]struct{}{
	"createdAt": {},
	"dueDate":   {},
	"priority":  {},
	"status":    {},
}

// Validate applies the query rules.
func (q TaskListQuery) Validate() []util.FieldError {
	var errs fieldErrors
	if q.Status != "" && !domain.ValidTaskStatus(domain.TaskStatus(q.Status)) {
		errs.add("status", "Invalid status value")
	}
	if q.Priority != "" && !domain.ValidTaskPriority(domain.TaskPriority(q.Priority)) {
		errs.add("priority", "Invalid priority value")
	}
	if q.Sort != "" {
		if _, ok := sortableFields[q.Sort]; !ok {
			errs.add("sort", "Invalid sort field")
		}
	}
	if q.Order != "" && q.Order != "asc" && q.Order != "desc" {
		errs.add("order", "Invalid sort order")
	}
	if q.Page != "" {
		if page, err := strconv.Atoi(q.Page); err != nil || page < 1 {
			errs.add("page", "Page must be a positive integer")
		}
	}
	if q.Limit != "" {
		if limit, err := strconv.Atoi(q.Limit); err != nil || limit < 1 || limit > 100 {
			errs.add("limit", "Limit must be between 1 and 100")
		}
	}
	return errs
}

// PageValue returns the validated page number or its default.
func (q TaskListQuery) PageValue() int {
	page, err := strconv.Atoi(q.Page)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// LimitValue returns the validated page size or its default.
func (q TaskListQuery) LimitValue() int {
	limit, err := strconv.Atoi(q.Limit)
	if err != nil || limit < 1 || limit > 100 {
		return 10
	}
	return limit
}

// UserRefResponse is the populated reference embedded in task responses.
type UserRefResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AttachmentResponse metadata. The storage path stays server-side.
type AttachmentResponse struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	UploadDate   time.Time `json:"uploadDate"`
}

// TaskResponse is the task representation.
type TaskResponse struct {
	ID             string               `json:"id"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	Status         domain.TaskStatus    `json:"status"`
	Priority       domain.TaskPriority  `json:"priority"`
	DueDate        time.Time            `json:"dueDate"`
	AssignedTo     *UserRefResponse     `json:"assignedTo"`
	CreatedBy      *UserRefResponse     `json:"createdBy"`
	Tags           []string             `json:"tags"`
	EstimatedHours float64              `json:"estimatedHours"`
	ActualHours    float64              `json:"actualHours"`
	Attachments    []AttachmentResponse `json:"attachments"`
	CompletedAt    *time.Time           `json:"completedAt,omitempty"`
	IsOverdue      bool                 `json:"isOverdue"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// NewTaskResponse maps a domain task to its response form.
func NewTaskResponse(task *domain.Task) TaskResponse {
	attachments := make([]AttachmentResponse, 0, len(task.Attachments))
	for _, att := range task.Attachments {
		attachments = append(attachments, AttachmentResponse{
			Filename:     att.Filename,
			OriginalName: att.OriginalName,
			Size:         att.Size,
			MimeType:     att.MimeType,
			UploadDate:   att.UploadDate,
		})
	}

	resp := TaskResponse{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Status:         task.Status,
		Priority:       task.Priority,
		DueDate:        task.DueDate,
		Tags:           task.Tags,
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		Attachments:    attachments,
		CompletedAt:    task.CompletedAt,
		IsOverdue:      task.IsOverdue(time.Now()),
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
	if task.Assignee != nil {
		resp.AssignedTo = &UserRefResponse{ID: task.Assignee.ID, Name: task.Assignee.Name, Email: task.Assignee.Email}
	}
	if task.Creator != nil {
		resp.CreatedBy = &UserRefResponse{ID: task.Creator.ID, Name: task.Creator.Name, Email: task.Creator.Email}
	}
	return resp
}
