package models

import (
	"time"

	"github.com/waiyaki/maintraq/internal/workflow"
)

// Task has no soft-delete column on purpose: an admin rejection removes the
// row for good, after the rejection notice has captured a snapshot of it.
type Task struct {
	ID uint `gorm:"primarykey"`

	FacilityID    uint  `gorm:"not null;index"`
	RequestedByID uint  `gorm:"not null;index"`
	AssignedToID  *uint `gorm:"index"`

	Description  string `gorm:"size:255;not null"`
	DetailedInfo string

	Confirmed    bool              `gorm:"default:false"`
	Resolved     bool              `gorm:"default:false"`
	Acknowledged bool              `gorm:"default:false"`
	Progress     workflow.Progress `gorm:"default:0"`

	DateRequested time.Time `gorm:"index;autoCreateTime"`
	Updated       time.Time `gorm:"autoUpdateTime"`
	DateCompleted *time.Time

	// Relationships
	Facility    Facility `gorm:"foreignKey:FacilityID"`
	RequestedBy User     `gorm:"foreignKey:RequestedByID"`
	AssignedTo  *User    `gorm:"foreignKey:AssignedToID"`
}

// Status renders the progress counter for display.
func (t *Task) Status() string {
	return t.Progress.Label()
}

// WorkflowState snapshots the mutable fields the state machine operates on.
func (t *Task) WorkflowState() workflow.State {
	return workflow.State{
		FacilityID:    t.FacilityID,
		RequestedByID: t.RequestedByID,
		AssignedToID:  t.AssignedToID,
		Description:   t.Description,
		DetailedInfo:  t.DetailedInfo,
		Confirmed:     t.Confirmed,
		Resolved:      t.Resolved,
		Acknowledged:  t.Acknowledged,
		Progress:      t.Progress,
		DateCompleted: t.DateCompleted,
	}
}

// ApplyWorkflowState writes a post-transition state back onto the task row.
func (t *Task) ApplyWorkflowState(s workflow.State) {
	t.FacilityID = s.FacilityID
	t.AssignedToID = s.AssignedToID
	t.Description = s.Description
	t.DetailedInfo = s.DetailedInfo
	t.Confirmed = s.Confirmed
	t.Resolved = s.Resolved
	t.Acknowledged = s.Acknowledged
	t.Progress = s.Progress
	t.DateCompleted = s.DateCompleted
}
