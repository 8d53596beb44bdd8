package dto

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/pkg/util"
)

func messagesByField(errs []util.FieldError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field] = fe.Message
	}
	return out
}

func validCreateRequest() CreateTaskRequest {
	return CreateTaskRequest{
		Title:       "Write onboarding guide",
		Description: "Cover setup, access, and first tasks",
		DueDate:     time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		AssignedTo:  "user-1",
	}
}

func TestCreateTaskRequestValid(t *testing.T) {
	assert.Empty(t, validCreateRequest().Validate())
}

func TestCreateTaskRequestRequiredFields(t *testing.T) {
	errs := CreateTaskRequest{}.Validate()
	fields := messagesByField(errs)

	assert.Equal(t, "Title is required", fields["title"])
	assert.Equal(t, "Description is required", fields["description"])
	assert.Equal(t, "Please provide a due date", fields["dueDate"])
	assert.Equal(t, "Please assign the task to a user", fields["assignedTo"])
}

func TestCreateTaskRequestLengthLimits(t *testing.T) {
	req := validCreateRequest()
	req.Title = strings.Repeat("x", 101)
	req.Description = strings.Repeat("x", 1001)

	fields := messagesByField(req.Validate())
	assert.Equal(t, "Title cannot be more than 100 characters", fields["title"])
	assert.Equal(t, "Description cannot be more than 1000 characters", fields["description"])
}

func TestCreateTaskRequestCountsCharactersNotBytes(t *testing.T) {
	// 60 multibyte characters are well under the 100 limit even though the
	// byte length exceeds it.
	req := validCreateRequest()
	req.Title = strings.Repeat("日", 60)
	assert.Empty(t, req.Validate())

	req.Title = strings.Repeat("日", 101)
	fields := messagesByField(req.Validate())
	assert.Equal(t, "Title cannot be more than 100 characters", fields["title"])
}

func TestCreateTaskRequestEnumChecks(t *testing.T) {
	req := validCreateRequest()
	req.Status = domain.TaskStatus("archived")
	req.Priority = domain.TaskPriority("urgent")

	fields := messagesByField(req.Validate())
	assert.Equal(t, "Invalid status value", fields["status"])
	assert.Equal(t, "Invalid priority value", fields["priority"])
}

func TestCreateTaskRequestDueDateInPast(t *testing.T) {
	req := validCreateRequest()
	req.DueDate = time.Now().Add(-time.Hour).Format(time.RFC3339)

	fields := messagesByField(req.Validate())
	assert.Equal(t, "Due date must be in the future", fields["dueDate"])
}

func TestCreateTaskRequestDueDateFormats(t *testing.T) {
	req := validCreateRequest()
	req.DueDate = time.Now().Add(48 * time.Hour).Format("2006-01-02")
	assert.Empty(t, req.Validate(), "date-only form is accepted")

	req.DueDate = "next tuesday"
	fields := messagesByField(req.Validate())
	assert.Equal(t, "Due date must be a valid ISO 8601 date", fields["dueDate"])
}

func TestCreateTaskRequestTagLength(t *testing.T) {
	req := validCreateRequest()
	req.Tags = []string{"ok", "this-tag-is-way-too-long-to-accept"}

	fields := messagesByField(req.Validate())
	assert.Equal(t, "Each tag must be a string of max 20 characters", fields["tags"])
}

func TestCreateTaskRequestHoursRange(t *testing.T) {
	req := validCreateRequest()
	req.EstimatedHours = -1
	req.ActualHours = 1001

	fields := messagesByField(req.Validate())
	assert.Equal(t, "Estimated hours must be between 0 and 1000", fields["estimatedHours"])
	assert.Equal(t, "Actual hours must be between 0 and 1000", fields["actualHours"])
}

func TestUpdateTaskRequestEmptyIsValid(t *testing.T) {
	assert.Empty(t, UpdateTaskRequest{}.Validate())
}

func TestUpdateTaskRequestChecksProvidedFields(t *testing.T) {
	badStatus := domain.TaskStatus("done")
	blank := "   "
	req := UpdateTaskRequest{Status: &badStatus, Title: &blank}

	fields := messagesByField(req.Validate())
	assert.Equal(t, "Invalid status value", fields["status"])
	assert.Contains(t, fields, "title")
}

func TestTaskListQueryDefaults(t *testing.T) {
	q := TaskListQuery{}
	assert.Empty(t, q.Validate())
	assert.Equal(t, 1, q.PageValue())
	assert.Equal(t, 10, q.LimitValue())
}

func TestTaskListQueryBounds(t *testing.T) {
	q := TaskListQuery{Page: "0", Limit: "101"}
	fields := messagesByField(q.Validate())
	assert.Equal(t, "Page must be a positive integer", fields["page"])
	assert.Equal(t, "Limit must be between 1 and 100", fields["limit"])
}

func TestTaskListQuerySortWhitelist(t *testing.T) {
	assert.Empty(t, TaskListQuery{Sort: "dueDate", Order: "desc"}.Validate())

	fields := messagesByField(TaskListQuery{Sort: "title"}.Validate())
	assert.Equal(t, "Invalid sort field", fields["sort"])

	fields = messagesByField(TaskListQuery{Order: "sideways"}.Validate())
	assert.Equal(t, "Invalid sort order", fields["order"])
}

func TestNewTaskResponsePopulatesReferences(t *testing.T) {
	assignee := "u2"
	now := time.Now()
	task := &domain.Task{
		ID:          "t1",
		Title:       "Task",
		Description: "Description",
		Status:      domain.TaskStatusPending,
		Priority:    domain.TaskPriorityHigh,
		DueDate:     now.Add(-time.Hour),
		AssignedTo:  &assignee,
		CreatedBy:   "u1",
		Assignee:    &domain.UserSummary{ID: "u2", Name: "Assignee", Email: "a@example.com"},
		Creator:     &domain.UserSummary{ID: "u1", Name: "Creator", Email: "c@example.com"},
		Attachments: []domain.Attachment{{Filename: "f.pdf", OriginalName: "orig.pdf", Path: "/srv/up/f.pdf"}},
	}

	resp := NewTaskResponse(task)
	require.NotNil(t, resp.AssignedTo)
	assert.Equal(t, "Assignee", resp.AssignedTo.Name)
	require.NotNil(t, resp.CreatedBy)
	assert.Equal(t, "u1", resp.CreatedBy.ID)
	assert.True(t, resp.IsOverdue, "past due date on a pending task")
	require.Len(t, resp.Attachments, 1)
	assert.Equal(t, "orig.pdf", resp.Attachments[0].OriginalName)
}

func TestNewTaskResponseOverdueIgnoresCompleted(t *testing.T) {
	task := &domain.Task{
		Status:  domain.TaskStatusCompleted,
		DueDate: time.Now().Add(-time.Hour),
	}
	assert.False(t, NewTaskResponse(task).IsOverdue)
}
