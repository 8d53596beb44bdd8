package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/api/dto"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/service"
	"github.com/spec-kit/task-service/pkg/util"
)

// attachmentField is the multipart field carrying uploaded files.
const attachmentField = "attachments"

// TasksHandler exposes the task CRUD and attachment endpoints.
type TasksHandler struct {
	tasks *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(tasks *service.TaskService) *TasksHandler {
	return &TasksHandler{tasks: tasks}
}

// List handles GET /api/tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	query := dto.TaskListQuery{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		AssignedTo: c.Query("assignedTo"),
		CreatedBy:  c.Query("createdBy"),
		Sort:       c.Query("sort"),
		Order:      c.Query("order"),
		Page:       c.Query("page"),
		Limit:      c.Query("limit"),
	}
	if errs := query.Validate(); len(errs) > 0 {
		return util.NewValidationFailed(errs)
	}

	page, err := h.tasks.List(c.UserContext(), service.TaskListInput{
		Status:     query.Status,
		Priority:   query.Priority,
		AssignedTo: query.AssignedTo,
		CreatedBy:  query.CreatedBy,
		Sort:       query.Sort,
		Order:      query.Order,
		Page:       query.PageValue(),
		Limit:      query.LimitValue(),
	})
	if err != nil {
		return err
	}

	tasks := make([]dto.TaskResponse, 0, len(page.Tasks))
	for i := range page.Tasks {
		tasks = append(tasks, dto.NewTaskResponse(&page.Tasks[i]))
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"results": len(tasks),
		"total":   page.Total,
		"page":    page.Page,
		"pages":   page.Pages,
		"data":    fiber.Map{"tasks": tasks},
	})
}

// Create handles POST /api/tasks. Accepts JSON, or multipart form data when
// attachments ride along with the task.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return util.NewUnauthorized("Access denied. No token provided.")
	}

	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("Invalid request body")
	}
	if errs := req.Validate(); len(errs) > 0 {
		return util.NewValidationFailed(errs)
	}

	files, err := formFiles(c, false)
	if err != nil {
		return err
	}

	task, err := h.tasks.Create(c.UserContext(), user.ID, service.TaskCreateInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		DueDate:        req.DueDateValue(),
		AssignedTo:     req.AssignedTo,
		Tags:           req.Tags,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
	}, files)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": "Task created successfully",
		"data":    fiber.Map{"task": dto.NewTaskResponse(task)},
	})
}

// Get handles GET /api/tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	task, ok := auth.TaskFromContext(c)
	if !ok {
		return util.NewNotFound("Task")
	}
	return c.JSON(fiber.Map{
		"status": "success",
		"data":   fiber.Map{"task": dto.NewTaskResponse(task)},
	})
}

// Update handles PUT /api/tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	task, ok := auth.TaskFromContext(c)
	if !ok {
		return util.NewNotFound("Task")
	}

	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("Invalid request body")
	}
	if errs := req.Validate(); len(errs) > 0 {
		return util.NewValidationFailed(errs)
	}

	updated, err := h.tasks.Update(c.UserContext(), user.ID, task, service.TaskUpdateInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		DueDate:        req.DueDateValue(),
		AssignedTo:     req.AssignedTo,
		Tags:           req.Tags,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Task updated successfully",
		"data":    fiber.Map{"task": dto.NewTaskResponse(updated)},
	})
}

// Delete handles DELETE /api/tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	task, ok := auth.TaskFromContext(c)
	if !ok {
		return util.NewNotFound("Task")
	}

	if err := h.tasks.Delete(c.UserContext(), user.ID, task); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Task deleted successfully",
	})
}

// UploadAttachments handles POST /api/tasks/:id/attachments.
func (h *TasksHandler) UploadAttachments(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	task, ok := auth.TaskFromContext(c)
	if !ok {
		return util.NewNotFound("Task")
	}

	files, err := formFiles(c, true)
	if err != nil {
		return err
	}

	updated, err := h.tasks.UploadAttachments(c.UserContext(), user.ID, task, files)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Files uploaded successfully",
		"data":    fiber.Map{"task": dto.NewTaskResponse(updated)},
	})
}

// DownloadAttachment handles GET /api/tasks/:id/attachments/:filename.
func (h *TasksHandler) DownloadAttachment(c *fiber.Ctx) error {
	task, ok := auth.TaskFromContext(c)
	if !ok {
		return util.NewNotFound("Task")
	}

	att, path, err := h.tasks.Attachment(task, c.Params("filename"))
	if err != nil {
		return err
	}
	return c.Download(path, att.OriginalName)
}

// DeleteAttachment handles DELETE /api/tasks/:id/attachments/:filename.
func (h *TasksHandler) DeleteAttachment(c *fiber.Ctx) error {
	user, _ := auth.CurrentUser(c)
	task, ok := auth.TaskFromContext(c)
	if !ok {
		return util.NewNotFound("Task")
	}

	updated, err := h.tasks.DeleteAttachment(c.UserContext(), user.ID, task, c.Params("filename"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Attachment deleted successfully",
		"data":    fiber.Map{"task": dto.NewTaskResponse(updated)},
	})
}

// formFiles extracts uploads from a multipart body. When required is set an
// empty upload is an error; otherwise a non-multipart body yields no files.
func formFiles(c *fiber.Ctx, required bool) ([]service.FileUpload, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), "multipart/") {
		if required {
			return nil, util.NewValidationError("No files uploaded")
		}
		return nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, util.NewValidationError("Invalid multipart form")
	}

	headers := form.File[attachmentField]
	if required && len(headers) == 0 {
		return nil, util.NewValidationError("No files uploaded")
	}

	files := make([]service.FileUpload, 0, len(headers))
	for _, header := range headers {
		files = append(files, fileUpload(header))
	}
	return files, nil
}

func fileUpload(header *multipart.FileHeader) service.FileUpload {
	return service.FileUpload{
		OriginalName: header.Filename,
		MimeType:     header.Header.Get(fiber.HeaderContentType),
		Size:         header.Size,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}
