package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/task-service/internal/domain"
)

// TaskFilter captures list parameters. Every provided field becomes an
// equality constraint; absent fields impose none.
type TaskFilter struct {
	Status     *domain.TaskStatus
	Priority   *domain.TaskPriority
	AssignedTo *string
	CreatedBy  *string
	Sort       string
	Order      string
	Limit      int
	Offset     int
}

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Count(ctx context.Context, filter TaskFilter) (int64, error)
	AddAttachments(ctx context.Context, taskID string, attachments []domain.Attachment) error
	RemoveAttachment(ctx context.Context, taskID, filename string) error
	ReassignAssignee(ctx context.Context, userID string) error
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

// sortColumns whitelists the sortable fields and maps API names to columns.
var sortColumns = map[string]string{
	"createdAt": "t.created_at",
	"dueDate":   "t.due_date",
	"priority":  "t.priority",
	"status":    "t.status",
}

const taskSelect = `
        SELECT t.id, t.title, t.description, t.status, t.priority, t.due_date,
               t.assigned_to, t.created_by, t.tags, t.estimated_hours, t.actual_hours,
               t.completed_at, t.created_at, t.updated_at,
               au.name, au.email, cu.name, cu.email
        FROM tasks t
        LEFT JOIN users au ON au.id = t.assigned_to
        LEFT JOIN users cu ON cu.id = t.created_by`

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (title, description, status, priority, due_date, assigned_to, created_by,
                           tags, estimated_hours, actual_hours, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.AssignedTo,
		task.CreatedBy,
		task.Tags,
		task.EstimatedHours,
		task.ActualHours,
		task.CompletedAt,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	// created_by is immutable and deliberately absent from the SET list.
	const query = `
        UPDATE tasks SET title=$1, description=$2, status=$3, priority=$4, due_date=$5,
            assigned_to=$6, tags=$7, estimated_hours=$8, actual_hours=$9, completed_at=$10,
            updated_at=NOW()
        WHERE id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.AssignedTo,
		task.Tags,
		task.EstimatedHours,
		task.ActualHours,
		task.CompletedAt,
		task.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, taskSelect+` WHERE t.id=$1`, id)
	task, err := scanTask(row)
	if err != nil {
		return nil, err
	}
	attachments, err := r.attachmentsFor(ctx, []string{task.ID})
	if err != nil {
		return nil, err
	}
	task.Attachments = attachments[task.ID]
	return task, nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	where, args := buildTaskWhere(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY %s LIMIT %d OFFSET %d",
		taskSelect, where, orderClause(filter), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Task
	ids := make([]string, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
		ids = append(ids, task.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		attachments, err := r.attachmentsFor(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range result {
			result[i].Attachments = attachments[result[i].ID]
		}
	}
	return result, nil
}

func (r *taskRepository) Count(ctx context.Context, filter TaskFilter) (int64, error) {
	where, args := buildTaskWhere(filter)
	var total int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tasks t WHERE "+where, args...).Scan(&total)
	return total, err
}

func (r *taskRepository) AddAttachments(ctx context.Context, taskID string, attachments []domain.Attachment) error {
	const query = `
        INSERT INTO task_attachments (task_id, filename, original_name, path, size_bytes, mime_type)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, upload_date`
	for i := range attachments {
		att := &attachments[i]
		if err := r.pool.QueryRow(ctx, query,
			taskID,
			att.Filename,
			att.OriginalName,
			att.Path,
			att.Size,
			att.MimeType,
		).Scan(&att.ID, &att.UploadDate); err != nil {
			return err
		}
	}
	return nil
}

func (r *taskRepository) RemoveAttachment(ctx context.Context, taskID, filename string) error {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM task_attachments WHERE task_id=$1 AND filename=$2`, taskID, filename)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) ReassignAssignee(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tasks SET assigned_to=NULL, updated_at=NOW() WHERE assigned_to=$1`, userID)
	return err
}

func (r *taskRepository) attachmentsFor(ctx context.Context, taskIDs []string) (map[string][]domain.Attachment, error) {
	const query = `
        SELECT id, task_id, filename, original_name, path, size_bytes, mime_type, upload_date
        FROM task_attachments WHERE task_id = ANY($1) ORDER BY upload_date`
	rows, err := r.pool.Query(ctx, query, taskIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]domain.Attachment)
	for rows.Next() {
		var att domain.Attachment
		var taskID string
		if err := rows.Scan(
			&att.ID,
			&taskID,
			&att.Filename,
			&att.OriginalName,
			&att.Path,
			&att.Size,
			&att.MimeType,
			&att.UploadDate,
		); err != nil {
			return nil, err
		}
		result[taskID] = append(result[taskID], att)
	}
	return result, rows.Err()
}

// buildTaskWhere translates the filter into a WHERE clause with numbered
// placeholders shared by List and Count so both see the same result set.
func buildTaskWhere(filter TaskFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("t.priority=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("t.created_by=$%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

// orderClause resolves the sort whitelist. No sort means newest first by
// creation time; an explicit sort defaults to ascending unless desc is asked.
func orderClause(filter TaskFilter) string {
	column, ok := sortColumns[filter.Sort]
	if !ok {
		return "t.created_at DESC"
	}
	if strings.EqualFold(filter.Order, "desc") {
		return column + " DESC"
	}
	return column + " ASC"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var assigneeName, assigneeEmail, creatorName, creatorEmail *string
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.AssignedTo,
		&task.CreatedBy,
		&task.Tags,
		&task.EstimatedHours,
		&task.ActualHours,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
		&assigneeName,
		&assigneeEmail,
		&creatorName,
		&creatorEmail,
	); err != nil {
		return nil, err
	}
	if task.AssignedTo != nil && assigneeName != nil && assigneeEmail != nil {
		task.Assignee = &domain.UserSummary{ID: *task.AssignedTo, Name: *assigneeName, Email: *assigneeEmail}
	}
	if creatorName != nil && creatorEmail != nil {
		task.Creator = &domain.UserSummary{ID: task.CreatedBy, Name: *creatorName, Email: *creatorEmail}
	}
	return &task, nil
}
