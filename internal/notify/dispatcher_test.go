package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waiyaki/maintraq/internal/mailer"
	"github.com/waiyaki/maintraq/internal/models"
	"github.com/waiyaki/maintraq/internal/workflow"
)

const adminAddr = "admin@example.com"

func fixtureTask() *models.Task {
	assigneeID := uint(20)
	return &models.Task{
		ID:            1,
		FacilityID:    1,
		RequestedByID: 10,
		AssignedToID:  &assigneeID,
		Description:   "Broken sink in the west wing washroom",
		DateRequested: time.Now(),
		Facility:      models.Facility{ID: 1, Name: "West Wing"},
		RequestedBy:   models.User{Email: "requester@example.com", Username: "wanjiku"},
		AssignedTo:    &models.User{Email: "fixer@example.com", Username: "fixer"},
	}
}

func newTestDispatcher() (*Dispatcher, *mailer.Mock) {
	mock := mailer.NewMock()
	return New(mock, nil, adminAddr, ""), mock
}

func TestTaskCreatedNotifiesAdmin(t *testing.T) {
	d, mock := newTestDispatcher()

	d.TaskCreated(context.Background(), fixtureTask())

	require.Len(t, mock.Sent, 1)
	assert.Equal(t, adminAddr, mock.Sent[0].To)
	assert.Equal(t, "New Maintenance Request", mock.Sent[0].Subject)
	assert.Contains(t, mock.Sent[0].Body, "Broken sink")
	assert.Contains(t, mock.Sent[0].Body, "West Wing")
}

func TestTaskUpdatedEventRouting(t *testing.T) {
	actor := &models.User{Username: "fixer"}

	tests := []struct {
		event     workflow.Event
		recipient string
		subject   string
	}{
		{workflow.EventAssigned, "fixer@example.com", "New Task Assignment"},
		{workflow.EventConfirmed, "requester@example.com", "Task Request Confirmed"},
		{workflow.EventResolved, "requester@example.com", "Task Resolved"},
		{workflow.EventDone, adminAddr, "Task Completed"},
	}

	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			d, mock := newTestDispatcher()

			d.TaskUpdated(context.Background(), []workflow.Event{tt.event}, fixtureTask(), actor)

			require.Len(t, mock.Sent, 1)
			assert.Equal(t, tt.recipient, mock.Sent[0].To)
			assert.Equal(t, tt.subject, mock.Sent[0].Subject)
		})
	}
}

func TestTaskUpdatedMultipleEvents(t *testing.T) {
	d, mock := newTestDispatcher()
	actor := &models.User{Username: "admin"}

	events := []workflow.Event{workflow.EventAssigned, workflow.EventConfirmed}
	d.TaskUpdated(context.Background(), events, fixtureTask(), actor)

	require.Len(t, mock.Sent, 2)
	assert.Equal(t, "fixer@example.com", mock.Sent[0].To)
	assert.Equal(t, "requester@example.com", mock.Sent[1].To)
}

func TestTaskUpdatedNoEventsSendsNothing(t *testing.T) {
	d, mock := newTestDispatcher()

	d.TaskUpdated(context.Background(), nil, fixtureTask(), &models.User{})

	assert.Empty(t, mock.Sent)
}

func TestDoneCreditsActor(t *testing.T) {
	d, mock := newTestDispatcher()
	completed := time.Now()
	task := fixtureTask()
	task.DateCompleted = &completed

	d.TaskUpdated(context.Background(), []workflow.Event{workflow.EventDone}, task, &models.User{Username: "fixer"})

	require.Len(t, mock.Sent, 1)
	assert.Contains(t, mock.Sent[0].Body, "fixer has marked this task as done")
}

func TestTaskRejectedCarriesSnapshot(t *testing.T) {
	d, mock := newTestDispatcher()

	d.TaskRejected(context.Background(), RejectedTask{
		TaskID:         1,
		Description:    "Broken sink in the west wing washroom",
		DateRequested:  time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		FacilityName:   "West Wing",
		RequesterEmail: "requester@example.com",
		RequesterName:  "wanjiku",
		Reasons:        "Duplicate of an existing request",
	})

	require.Len(t, mock.Sent, 1)
	sent := mock.Sent[0]
	assert.Equal(t, "requester@example.com", sent.To)
	assert.Equal(t, "Task Request Rejected", sent.Subject)
	assert.Contains(t, sent.Body, "Broken sink")
	assert.Contains(t, sent.Body, "West Wing")
	assert.Contains(t, sent.Body, "Duplicate of an existing request")
}

func TestConfirmAccountLinksToken(t *testing.T) {
	d, mock := newTestDispatcher()
	user := &models.User{Username: "wanjiku", Email: "requester@example.com"}
	user.ID = 10

	d.ConfirmAccount(context.Background(), user, "the-token")

	require.Len(t, mock.Sent, 1)
	assert.Equal(t, "requester@example.com", mock.Sent[0].To)
	assert.Contains(t, mock.Sent[0].Body, "/confirm/the-token")
}

func TestEmailChangeMailsNewAddress(t *testing.T) {
	d, mock := newTestDispatcher()
	user := &models.User{Username: "wanjiku", Email: "old@example.com"}
	user.ID = 10

	d.EmailChange(context.Background(), user, "new@example.com", "the-token")

	require.Len(t, mock.Sent, 1)
	assert.Equal(t, "new@example.com", mock.Sent[0].To)
	assert.Contains(t, mock.Sent[0].Body, "/change-email/the-token")
}

func TestNoAdminConfiguredSkipsAdminMail(t *testing.T) {
	mock := mailer.NewMock()
	d := New(mock, nil, "", "")

	d.TaskCreated(context.Background(), fixtureTask())
	d.TaskUpdated(context.Background(), []workflow.Event{workflow.EventDone}, fixtureTask(), &models.User{})

	assert.Empty(t, mock.Sent)
}
