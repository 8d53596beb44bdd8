package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/repository"
	"github.com/spec-kit/task-service/internal/storage"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

const attachmentFieldName = "attachments"

// TaskService coordinates task workflows: CRUD, the list query engine, and
// the attachment lifecycle.
type TaskService struct {
	tasks          repository.TaskRepository
	users          repository.UserRepository
	store          storage.BlobStore
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	maxFileSize    int64
	maxAttachments int
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo       repository.TaskRepository
	UserRepo       repository.UserRepository
	Store          storage.BlobStore
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	MaxFileSize    int64
	MaxAttachments int
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	maxFileSize := deps.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = 5 * 1024 * 1024
	}
	maxAttachments := deps.MaxAttachments
	if maxAttachments <= 0 {
		maxAttachments = domain.MaxAttachmentsPerTask
	}
	return &TaskService{
		tasks:          deps.TaskRepo,
		users:          deps.UserRepo,
		store:          deps.Store,
		dispatcher:     deps.Dispatcher,
		logger:         deps.Logger,
		maxFileSize:    maxFileSize,
		maxAttachments: maxAttachments,
	}
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Title          string
	Description    string
	Status         domain.TaskStatus
	Priority       domain.TaskPriority
	DueDate        time.Time
	AssignedTo     string
	Tags           []string
	EstimatedHours float64
	ActualHours    float64
}

// TaskUpdateInput describes a partial update; nil fields are left untouched.
// The creator is immutable and has no corresponding field.
type TaskUpdateInput struct {
	Title          *string
	Description    *string
	Status         *domain.TaskStatus
	Priority       *domain.TaskPriority
	DueDate        *time.Time
	AssignedTo     *string
	Tags           *[]string
	EstimatedHours *float64
	ActualHours    *float64
}

// TaskListInput carries the query engine parameters. The engine applies the
// filter verbatim: scoping non-admin callers to their own assignments is the
// caller layer's responsibility.
type TaskListInput struct {
	Status     string
	Priority   string
	AssignedTo string
	CreatedBy  string
	Sort       string
	Order      string
	Page       int
	Limit      int
}

// TaskPage is the bounded, deterministic result of a list query.
type TaskPage struct {
	Tasks []domain.Task
	Total int64
	Page  int
	Limit int
	Pages int
}

// FileUpload carries one uploaded file into the service without binding it
// to the transport's multipart types.
type FileUpload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Open         func() (io.ReadCloser, error)
}

// Create validates and persists a new task with up to the configured number
// of PDF attachments. Files are checked before any blob is written.
func (s *TaskService) Create(ctx context.Context, creatorID string, input TaskCreateInput, files []FileUpload) (*domain.Task, error) {
	if input.AssignedTo != "" {
		if _, err := s.users.GetByID(ctx, input.AssignedTo); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("Assigned user not found")
			}
			return nil, err
		}
	}
	if err := s.validateFiles(files); err != nil {
		return nil, err
	}

	task := &domain.Task{
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		Status:         input.Status,
		Priority:       input.Priority,
		DueDate:        input.DueDate,
		CreatedBy:      creatorID,
		Tags:           input.Tags,
		EstimatedHours: input.EstimatedHours,
		ActualHours:    input.ActualHours,
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = domain.TaskPriorityMedium
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if input.AssignedTo != "" {
		assignee := input.AssignedTo
		task.AssignedTo = &assignee
	}
	if task.Status == domain.TaskStatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
	}

	saved, err := s.saveBlobs(ctx, files)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		s.removeBlobs(saved)
		return nil, err
	}
	if len(saved) > 0 {
		if err := s.tasks.AddAttachments(ctx, task.ID, saved); err != nil {
			s.removeBlobs(saved)
			return nil, err
		}
	}

	s.publish(ctx, events.Event{
		Type:    events.EventTaskCreated,
		TaskID:  task.ID,
		ActorID: creatorID,
		Payload: events.TaskCreatedPayload{
			Title:      task.Title,
			Priority:   task.Priority,
			AssignedTo: task.AssignedTo,
			DueDate:    task.DueDate,
		},
	})
	for _, att := range saved {
		s.publish(ctx, events.Event{
			Type:    events.EventAttachmentAdded,
			TaskID:  task.ID,
			ActorID: creatorID,
			Payload: events.AttachmentChangedPayload{
				Filename:     att.Filename,
				OriginalName: att.OriginalName,
				Size:         att.Size,
			},
		})
	}

	return s.tasks.GetByID(ctx, task.ID)
}

// List runs the query engine: equality filter, whitelisted sort, bounded
// pagination, and consistent metadata (tasks.length <= limit, zero rows once
// skip >= total).
func (s *TaskService) List(ctx context.Context, input TaskListInput) (*TaskPage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	filter := repository.TaskFilter{
		Sort:   input.Sort,
		Order:  input.Order,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if input.Status != "" {
		status := domain.TaskStatus(input.Status)
		filter.Status = &status
	}
	if input.Priority != "" {
		priority := domain.TaskPriority(input.Priority)
		filter.Priority = &priority
	}
	if input.AssignedTo != "" {
		assignedTo := input.AssignedTo
		filter.AssignedTo = &assignedTo
	}
	if input.CreatedBy != "" {
		createdBy := input.CreatedBy
		filter.CreatedBy = &createdBy
	}

	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.tasks.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return &TaskPage{
		Tasks: tasks,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	}, nil
}

// Update applies a partial update to a task already authorized by the
// ownership policy.
func (s *TaskService) Update(ctx context.Context, actorID string, task *domain.Task, input TaskUpdateInput) (*domain.Task, error) {
	oldStatus := task.Status
	oldAssignee := task.AssignedTo

	if input.AssignedTo != nil && (task.AssignedTo == nil || *input.AssignedTo != *task.AssignedTo) {
		if _, err := s.users.GetByID(ctx, *input.AssignedTo); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("Assigned user not found")
			}
			return nil, err
		}
	}

	if input.Title != nil {
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = *input.DueDate
	}
	if input.AssignedTo != nil {
		assignee := *input.AssignedTo
		task.AssignedTo = &assignee
	}
	if input.Tags != nil {
		task.Tags = *input.Tags
	}
	if input.EstimatedHours != nil {
		task.EstimatedHours = *input.EstimatedHours
	}
	if input.ActualHours != nil {
		task.ActualHours = *input.ActualHours
	}

	// completedAt tracks transitions into and out of the completed status.
	if task.Status == domain.TaskStatusCompleted && task.CompletedAt == nil {
		now := time.Now()
		task.CompletedAt = &now
	} else if task.Status != domain.TaskStatusCompleted && task.CompletedAt != nil {
		task.CompletedAt = nil
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	if task.Status != oldStatus {
		s.publish(ctx, events.Event{
			Type:    events.EventTaskStatusChanged,
			TaskID:  task.ID,
			ActorID: actorID,
			Payload: events.TaskStatusChangedPayload{OldStatus: oldStatus, NewStatus: task.Status},
		})
	}
	if !sameAssignee(oldAssignee, task.AssignedTo) {
		s.publish(ctx, events.Event{
			Type:    events.EventTaskAssigned,
			TaskID:  task.ID,
			ActorID: actorID,
			Payload: events.TaskAssignedPayload{OldAssignee: oldAssignee, NewAssignee: task.AssignedTo},
		})
	}

	return s.tasks.GetByID(ctx, task.ID)
}

// Delete removes a task and cascades blob deletion. A blob that cannot be
// removed is logged and never blocks the task removal.
func (s *TaskService) Delete(ctx context.Context, actorID string, task *domain.Task) error {
	for _, att := range task.Attachments {
		if err := s.store.Remove(att.Filename); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("failed to delete attachment blob",
				zap.String("task_id", task.ID),
				zap.String("filename", att.Filename),
				zap.Error(err))
		}
	}

	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		Type:    events.EventTaskDeleted,
		TaskID:  task.ID,
		ActorID: actorID,
		Payload: events.TaskDeletedPayload{
			Title:           task.Title,
			AttachmentCount: len(task.Attachments),
		},
	})
	return nil
}

// UploadAttachments adds files to a task, rejecting the whole batch before
// any blob write when a limit would be exceeded.
func (s *TaskService) UploadAttachments(ctx context.Context, actorID string, task *domain.Task, files []FileUpload) (*domain.Task, error) {
	if len(files) == 0 {
		return nil, apperrors.NewValidationError("No files uploaded")
	}
	if err := s.validateFiles(files); err != nil {
		return nil, err
	}
	if len(task.Attachments)+len(files) > s.maxAttachments {
		return nil, apperrors.NewLimitExceeded(
			fmt.Sprintf("Maximum of %d attachments allowed per task", s.maxAttachments))
	}

	saved, err := s.saveBlobs(ctx, files)
	if err != nil {
		return nil, err
	}
	if err := s.tasks.AddAttachments(ctx, task.ID, saved); err != nil {
		s.removeBlobs(saved)
		return nil, err
	}

	for _, att := range saved {
		s.publish(ctx, events.Event{
			Type:    events.EventAttachmentAdded,
			TaskID:  task.ID,
			ActorID: actorID,
			Payload: events.AttachmentChangedPayload{
				Filename:     att.Filename,
				OriginalName: att.OriginalName,
				Size:         att.Size,
			},
		})
	}

	return s.tasks.GetByID(ctx, task.ID)
}

// Attachment resolves an attachment on the task and its blob path for
// download.
func (s *TaskService) Attachment(task *domain.Task, filename string) (*domain.Attachment, string, error) {
	att, ok := task.FindAttachment(filename)
	if !ok {
		return nil, "", apperrors.NewNotFound("Attachment")
	}
	if !s.store.Exists(att.Filename) {
		return nil, "", apperrors.NewDomainError("NOT_FOUND", "File not found on server", 404)
	}
	return att, s.store.Path(att.Filename), nil
}

// DeleteAttachment removes the blob and its metadata. A blob already gone
// from the store is tolerated; the metadata removal proceeds regardless.
func (s *TaskService) DeleteAttachment(ctx context.Context, actorID string, task *domain.Task, filename string) (*domain.Task, error) {
	att, ok := task.FindAttachment(filename)
	if !ok {
		return nil, apperrors.NewNotFound("Attachment")
	}

	if err := s.store.Remove(att.Filename); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("attachment blob already missing",
				zap.String("task_id", task.ID),
				zap.String("filename", att.Filename))
		} else {
			s.logger.Error("failed to delete attachment blob",
				zap.String("task_id", task.ID),
				zap.String("filename", att.Filename),
				zap.Error(err))
		}
	}

	if err := s.tasks.RemoveAttachment(ctx, task.ID, filename); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:    events.EventAttachmentRemoved,
		TaskID:  task.ID,
		ActorID: actorID,
		Payload: events.AttachmentChangedPayload{
			Filename:     att.Filename,
			OriginalName: att.OriginalName,
			Size:         att.Size,
		},
	})

	return s.tasks.GetByID(ctx, task.ID)
}

func (s *TaskService) validateFiles(files []FileUpload) error {
	if len(files) > s.maxAttachments {
		return apperrors.NewLimitExceeded(
			fmt.Sprintf("Too many files. Maximum %d files allowed", s.maxAttachments))
	}
	for _, file := range files {
		if file.MimeType != domain.PDFMimeType {
			return apperrors.NewInvalidFileType("Invalid file type. Only PDF files are allowed.")
		}
		if file.Size > s.maxFileSize {
			return apperrors.NewFileTooLarge("File size too large. Maximum size is 5MB")
		}
	}
	return nil
}

func (s *TaskService) saveBlobs(ctx context.Context, files []FileUpload) ([]domain.Attachment, error) {
	saved := make([]domain.Attachment, 0, len(files))
	for _, file := range files {
		src, err := file.Open()
		if err != nil {
			s.removeBlobs(saved)
			return nil, err
		}

		filename := storage.GenerateFilename(attachmentFieldName, file.OriginalName)
		path, err := s.store.Save(ctx, filename, src)
		src.Close()
		if err != nil {
			s.removeBlobs(saved)
			return nil, err
		}

		saved = append(saved, domain.Attachment{
			Filename:     filename,
			OriginalName: file.OriginalName,
			Path:         path,
			Size:         file.Size,
			MimeType:     file.MimeType,
			UploadDate:   time.Now(),
		})
	}
	return saved, nil
}

func (s *TaskService) removeBlobs(attachments []domain.Attachment) {
	for _, att := range attachments {
		if err := s.store.Remove(att.Filename); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("failed to clean up blob", zap.String("filename", att.Filename), zap.Error(err))
		}
	}
}

func (s *TaskService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
