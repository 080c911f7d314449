package handlers

import (
	"net/http"
	"strconv"

	"taskify/backend/internal/models"
	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxPage         = 100000
)

type TaskHandler struct {
	taskService services.TaskService
	log         zerolog.Logger
}

func NewTaskHandler(taskService services.TaskService, log zerolog.Logger) *TaskHandler {
	RegisterValidators()
	return &TaskHandler{taskService: taskService, log: log}
}

type deleteTaskRequest struct {
	UUID string `json:"uuid" binding:"required,uuid"`
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), identity.UserID, req)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}

	id, err := uuid.FromString(c.Param("uuid"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid task id")
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), identity.UserID, id)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}

	query, ok := parseListQuery(c)
	if !ok {
		return
	}

	page, err := h.taskService.ListTasks(c.Request.Context(), identity.UserID, query)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *TaskHandler) PastTasks(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.PastTasks(c.Request.Context(), identity.UserID)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), identity.User, req)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req services.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	task, err := h.taskService.UpdateTaskStatus(c.Request.Context(), identity.User, req)
	if err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}

	var req deleteTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	id, err := uuid.FromString(req.UUID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid task id")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), identity.User, id); err != nil {
		handleServiceError(c, err, h.log)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func parseListQuery(c *gin.Context) (services.ListTasksQuery, bool) {
	query := services.ListTasksQuery{
		Status:   models.TaskStatus(c.Query("status")),
		Page:     1,
		PageSize: defaultPageSize,
	}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 || page > maxPage {
			respondError(c, http.StatusBadRequest, "invalid_request", "page must be between 1 and "+strconv.Itoa(maxPage))
			return query, false
		}
		query.Page = page
	}
	if raw := c.Query("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			respondError(c, http.StatusBadRequest, "invalid_request", "pageSize must be a positive integer")
			return query, false
		}
		if size > maxPageSize {
			size = maxPageSize
		}
		query.PageSize = size
	}
	return query, true
}
