package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waiyaki/maintraq/db"
	"github.com/waiyaki/maintraq/internal/middleware"
	"github.com/waiyaki/maintraq/internal/models"
	"github.com/waiyaki/maintraq/internal/notify"
	"github.com/waiyaki/maintraq/internal/utils"
	"github.com/waiyaki/maintraq/internal/workflow"
	"gorm.io/gorm"
)

type CreateTaskRequest struct {
	Description  string `json:"description" binding:"required,min=10,max=255"`
	DetailedInfo string `json:"detailed_info"`
	FacilityID   uint   `json:"facility_id" binding:"required"`
}

// UpdateTaskRequest carries optional field updates; absent fields are left
// unchanged. Which ones are honored depends on the actor's role.
type UpdateTaskRequest struct {
	Description  *string `json:"description" binding:"omitempty,min=10,max=255"`
	DetailedInfo *string `json:"detailed_info"`
	FacilityID   *uint   `json:"facility_id"`
	Confirmed    *bool   `json:"confirmed"`
	Resolved     *bool   `json:"resolved"`
	Acknowledged *bool   `json:"acknowledged"`
	Progress     *int    `json:"progress"`
	AssignedToID *uint   `json:"assigned_to_id"`
}

type RejectTaskRequest struct {
	RejectionReasons string `json:"rejection_reasons"`
}

type TaskUserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type TaskResponse struct {
	ID            uint              `json:"id"`
	Description   string            `json:"description"`
	DetailedInfo  string            `json:"detailed_info"`
	Facility      string            `json:"facility"`
	FacilityID    uint              `json:"facility_id"`
	RequestedBy   TaskUserResponse  `json:"requested_by"`
	AssignedTo    *TaskUserResponse `json:"assigned_to"`
	Confirmed     bool              `json:"confirmed"`
	Resolved      bool              `json:"resolved"`
	Acknowledged  bool              `json:"acknowledged"`
	Progress      int               `json:"progress"`
	Status        string            `json:"status"`
	DateRequested time.Time         `json:"date_requested"`
	Updated       time.Time         `json:"updated"`
	DateCompleted *time.Time        `json:"date_completed"`
}

// ListTasks serves the index listing. Admins see every task, maintainers the
// ones assigned to them, requesters their own.
func ListTasks(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	query := db.DB.Preload("Facility").Preload("RequestedBy").Preload("AssignedTo").
		Order("date_requested DESC")

	switch {
	case currentUser.Admin:
	case currentUser.Maintenance:
		query = query.Where("assigned_to_id = ?", currentUser.ID)
	default:
		query = query.Where("requested_by_id = ?", currentUser.ID)
	}

	var tasks []models.Task

	if err := query.Find(&tasks).Error; err != nil {
		log.Printf("Failed to list tasks: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	response := make([]TaskResponse, 0, len(tasks))

	for i := range tasks {
		response = append(response, taskResponse(&tasks[i]))
	}

	ctx.JSON(http.StatusOK, gin.H{"role": currentUser.Role(), "tasks": response})
}

// TaskRequestForm returns the choices a requester needs to file a task.
func TaskRequestForm(ctx *gin.Context) {
	var facilities []models.Facility

	if err := db.DB.Order("name").Find(&facilities).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve facilities"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"facilities": facilities,
		"fields":     []string{"description", "detailed_info", "facility_id"},
	})
}

func CreateTask(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateTaskRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Description must be between 10 and 255 characters and a facility is required"})
		return
	}

	var facility models.Facility

	if err := db.DB.First(&facility, req.FacilityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unknown facility"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	task := models.Task{
		FacilityID:    facility.ID,
		RequestedByID: currentUser.ID,
		Description:   req.Description,
		DetailedInfo:  req.DetailedInfo,
		Progress:      workflow.NotStarted,
	}

	if err := db.DB.Create(&task).Error; err != nil {
		log.Printf("Failed to create task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	if err := db.DB.Preload("Facility").Preload("RequestedBy").First(&task, task.ID).Error; err != nil {
		log.Printf("Failed to reload task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	Notifier.TaskCreated(ctx.Request.Context(), &task)

	ctx.JSON(http.StatusCreated, taskResponse(&task))
}

func ViewTask(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	task, ok := loadTask(ctx)

	if !ok {
		return
	}

	if !canView(currentUser, task) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to view this task"})
		return
	}

	ctx.JSON(http.StatusOK, taskResponse(task))
}

// UpdateTaskForm returns the task plus the fields the current actor may
// write, with the select choices the admin and maintainer forms need.
func UpdateTaskForm(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	task, ok := loadTask(ctx)

	if !ok {
		return
	}

	if !canView(currentUser, task) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to view this task"})
		return
	}

	response := gin.H{
		"task":     taskResponse(task),
		"writable": writableFields(currentUser),
		"progress_choices": []gin.H{
			{"value": int(workflow.NotStarted), "label": workflow.NotStarted.Label()},
			{"value": int(workflow.Started), "label": workflow.Started.Label()},
			{"value": int(workflow.Pending), "label": workflow.Pending.Label()},
			{"value": int(workflow.Done), "label": workflow.Done.Label()},
		},
	}

	if currentUser.Admin {
		var maintainers []models.User

		if err := db.DB.Where("is_maintenance = ?", true).Order("username").Find(&maintainers).Error; err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		choices := make([]TaskUserResponse, 0, len(maintainers))
		for i := range maintainers {
			choices = append(choices, TaskUserResponse{
				ID:       maintainers[i].ID,
				Username: maintainers[i].Username,
				Email:    maintainers[i].Email,
			})
		}
		response["assignee_choices"] = choices
	}

	ctx.JSON(http.StatusOK, response)
}

func UpdateTask(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	task, ok := loadTask(ctx)

	if !ok {
		return
	}

	// The ownership guard comes before field validation so an actor with no
	// business touching the task learns nothing about the payload's validity.
	if !canUpdate(currentUser, task) {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to update this task"})
		return
	}

	var req UpdateTaskRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// Only maintenance staff may be assigned tasks.
	if req.AssignedToID != nil {
		var assignee models.User

		if err := db.DB.First(&assignee, *req.AssignedToID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unknown assignee"})
				return
			}
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		if !assignee.IsMaintenance {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Tasks can only be assigned to maintenance staff"})
			return
		}
	}

	if req.FacilityID != nil {
		var facility models.Facility

		if err := db.DB.First(&facility, *req.FacilityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unknown facility"})
				return
			}
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	changes := workflow.Changes{
		Description:  req.Description,
		DetailedInfo: req.DetailedInfo,
		FacilityID:   req.FacilityID,
		Confirmed:    req.Confirmed,
		Resolved:     req.Resolved,
		Acknowledged: req.Acknowledged,
		AssignedToID: req.AssignedToID,
	}

	if req.Progress != nil {
		progress := workflow.Progress(*req.Progress)
		changes.Progress = &progress
	}

	next, events, err := workflow.Apply(task.WorkflowState(), changes, currentUser.Actor(), time.Now())

	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrInvalidProgress):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, workflow.ErrNotAssignee), errors.Is(err, workflow.ErrNotAllowed):
			ctx.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to update this task"})
		default:
			log.Printf("Failed to apply task update: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	task.ApplyWorkflowState(next)

	if err := db.DB.Save(task).Error; err != nil {
		log.Printf("Failed to save task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	if err := db.DB.Preload("Facility").Preload("RequestedBy").Preload("AssignedTo").
		First(task, task.ID).Error; err != nil {
		log.Printf("Failed to reload task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var actor models.User

	if err := db.DB.First(&actor, currentUser.ID).Error; err != nil {
		log.Printf("Failed to load acting user: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	Notifier.TaskUpdated(ctx.Request.Context(), events, task, &actor)

	ctx.JSON(http.StatusOK, taskResponse(task))
}

// RejectTaskForm returns the task summary the admin is about to reject.
func RejectTaskForm(ctx *gin.Context) {
	task, ok := loadTask(ctx)

	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"task":   taskResponse(task),
		"fields": []string{"rejection_reasons"},
	})
}

// RejectTask snapshots the task, removes its row for good and notifies the
// requester with the snapshot.
func RejectTask(ctx *gin.Context) {
	task, ok := loadTask(ctx)

	if !ok {
		return
	}

	var req RejectTaskRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	snapshot := notify.RejectedTask{
		TaskID:         task.ID,
		Description:    task.Description,
		DateRequested:  task.DateRequested,
		FacilityName:   task.Facility.Name,
		RequesterID:    task.RequestedByID,
		RequesterEmail: task.RequestedBy.Email,
		RequesterName:  task.RequestedBy.Username,
		Reasons:        req.RejectionReasons,
	}

	if err := db.DB.Delete(task).Error; err != nil {
		log.Printf("Failed to delete task: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject task"})
		return
	}

	Notifier.TaskRejected(ctx.Request.Context(), snapshot)

	ctx.JSON(http.StatusOK, gin.H{"message": "Task rejected and the requester notified"})
}

func loadTask(ctx *gin.Context) (*models.Task, bool) {
	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	var task models.Task

	if err := db.DB.Preload("Facility").Preload("RequestedBy").Preload("AssignedTo").
		First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			log.Printf("Failed to load task: %v", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		}
		return nil, false
	}

	return &task, true
}

// canView applies the ownership guard: admins and maintenance staff bypass
// it, a requester only sees their own tasks.
func canView(user middleware.AuthenticatedUser, task *models.Task) bool {
	if user.Admin || user.Maintenance {
		return true
	}
	return task.RequestedByID == user.ID
}

// canUpdate mirrors the state machine's role guard so it can run before any
// field validation. The state machine remains the authority on what each
// role may change.
func canUpdate(user middleware.AuthenticatedUser, task *models.Task) bool {
	switch {
	case user.Admin:
		return true
	case user.Maintenance:
		return task.AssignedToID != nil && *task.AssignedToID == user.ID
	default:
		return task.RequestedByID == user.ID
	}
}

func writableFields(user middleware.AuthenticatedUser) []string {
	switch {
	case user.Admin:
		return []string{"description", "detailed_info", "facility_id", "confirmed", "assigned_to_id", "acknowledged", "progress", "resolved"}
	case user.Maintenance:
		return []string{"acknowledged", "progress"}
	default:
		return []string{"description", "detailed_info", "facility_id"}
	}
}

func taskResponse(task *models.Task) TaskResponse {
	response := TaskResponse{
		ID:            task.ID,
		Description:   task.Description,
		DetailedInfo:  task.DetailedInfo,
		Facility:      task.Facility.Name,
		FacilityID:    task.FacilityID,
		RequestedBy:   TaskUserResponse{ID: task.RequestedBy.ID, Username: task.RequestedBy.Username, Email: task.RequestedBy.Email},
		Confirmed:     task.Confirmed,
		Resolved:      task.Resolved,
		Acknowledged:  task.Acknowledged,
		Progress:      int(task.Progress),
		Status:        task.Status(),
		DateRequested: task.DateRequested,
		Updated:       task.Updated,
		DateCompleted: task.DateCompleted,
	}

	if task.AssignedTo != nil {
		response.AssignedTo = &TaskUserResponse{
			ID:       task.AssignedTo.ID,
			Username: task.AssignedTo.Username,
			Email:    task.AssignedTo.Email,
		}
	}

	return response
}
