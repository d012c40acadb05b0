package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bizdesk/internal/middleware"
	"bizdesk/internal/model"
	"bizdesk/internal/service"
	"bizdesk/pkg/response"
)

type TaskHandler struct {
	taskService service.TaskService
	lifecycle   lifecycleRoutes
	auth        *middleware.Auth
}

func NewTaskHandler(taskService service.TaskService, tracker service.Tracker, auth *middleware.Auth) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		lifecycle:   lifecycleRoutes{tracker: tracker, kind: model.KindTask},
		auth:        auth,
	}
}

func (h *TaskHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.auth.RequirePermission("tasks.read")
	write := h.auth.RequirePermission("tasks.write")

	group := router.Group("/tasks")
	{
		group.GET("", read, h.List)
		group.GET("/:id", read, h.Get)
		group.POST("", write, h.Create)
		group.PUT("/:id", write, h.Update)
		group.POST("/:id/comments", write, h.Comment)
		group.GET("/:id/activity", read, h.Activity)
	}
	h.lifecycle.register(group, read, write)
}

// Create opens a new task
// @Summary      Create task
// @Description  Opened in status todo; tasks carry no document number
// @Tags         tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTaskRequest  true  "Task"
// @Success      201      {object}  response.Response{data=model.Task}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req service.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.taskService.Create(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rec))
}

// List returns tasks, newest first
// @Summary      List tasks
// @Tags         tasks
// @Security     BearerAuth
// @Produce      json
// @Param        status       query     string  false  "Status"
// @Param        priority     query     string  false  "Priority"
// @Param        assignee_id  query     string  false  "Assigned user ID"
// @Param        customer_id  query     string  false  "Customer ID"
// @Param        search       query     string  false  "Free-text search"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Failure      400          {object}  response.Response
// @Router       /api/tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	page, err := h.taskService.List(c.Request.Context(), recordQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagedRecords(page))
}

// Get returns one task
// @Summary      Get task
// @Tags         tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response{data=model.Task}
// @Failure      404  {object}  response.Response
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := h.taskService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// Update edits the task's details. Status changes go through PUT /tasks/:id/status.
// @Summary      Update task
// @Tags         tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string  true  "Task ID"
// @Param        payload  body      service.UpdateTaskRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=model.Task}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.taskService.Update(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rec))
}

// Comment adds a comment to the task's activity log
// @Summary      Comment on task
// @Tags         tasks
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Task ID"
// @Param        payload  body      service.TaskCommentRequest  true  "Comment"
// @Success      201      {object}  response.Response{data=service.TaskActivityResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/tasks/{id}/comments [post]
func (h *TaskHandler) Comment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.TaskCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.taskService.Comment(c.Request.Context(), id, req, middleware.CurrentActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entry))
}

// Activity lists the task's activity log, oldest first
// @Summary      Task activity
// @Tags         tasks
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  response.Response{data=[]service.TaskActivityResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/tasks/{id}/activity [get]
func (h *TaskHandler) Activity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entries, err := h.taskService.Activity(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}
