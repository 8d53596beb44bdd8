package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/task-service/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestBuildTaskWhereEmptyFilter(t *testing.T) {
	where, args := buildTaskWhere(TaskFilter{})
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestBuildTaskWhereAllFilters(t *testing.T) {
	status := domain.TaskStatusPending
	priority := domain.TaskPriorityHigh
	where, args := buildTaskWhere(TaskFilter{
		Status:     &status,
		Priority:   &priority,
		AssignedTo: strPtr("u1"),
		CreatedBy:  strPtr("u2"),
	})

	assert.Equal(t, "1=1 AND t.status=$1 AND t.priority=$2 AND t.assigned_to=$3 AND t.created_by=$4", where)
	assert.Equal(t, []any{status, priority, "u1", "u2"}, args)
}

func TestBuildTaskWherePlaceholdersStayNumbered(t *testing.T) {
	// Skipping a filter must not leave gaps in the placeholder numbering.
	where, args := buildTaskWhere(TaskFilter{CreatedBy: strPtr("u2")})
	assert.Equal(t, "1=1 AND t.created_by=$1", where)
	assert.Len(t, args, 1)
}

func TestOrderClauseDefaultsToNewestFirst(t *testing.T) {
	assert.Equal(t, "t.created_at DESC", orderClause(TaskFilter{}))
	assert.Equal(t, "t.created_at DESC", orderClause(TaskFilter{Sort: "title"}))
}

func TestOrderClauseExplicitSortDefaultsAscending(t *testing.T) {
	assert.Equal(t, "t.due_date ASC", orderClause(TaskFilter{Sort: "dueDate"}))
	assert.Equal(t, "t.priority ASC", orderClause(TaskFilter{Sort: "priority", Order: "sideways"}))
}

func TestOrderClauseDescending(t *testing.T) {
	assert.Equal(t, "t.due_date DESC", orderClause(TaskFilter{Sort: "dueDate", Order: "desc"}))
	assert.Equal(t, "t.status DESC", orderClause(TaskFilter{Sort: "status", Order: "DESC"}))
}

func TestSortColumnsWhitelist(t *testing.T) {
	assert.Len(t, sortColumns, 4)
	for _, field := range []string{"createdAt", "dueDate", "priority", "status"} {
		assert.Contains(t, sortColumns, field)
	}
}
