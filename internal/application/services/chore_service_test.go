package services

import (
	"context"
	"strings"
	"testing"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/infrastructure/logger"
)

func newChoreFixture() (*syncFixture, *ChoreService) {
	f := newSyncFixture(nil)
	svc := NewChoreService(f.chores, f.remote, f.service, logger.NewNop())
	return f, svc
}

func TestAddChoreSyncsAndRebinds(t *testing.T) {
	f, svc := newChoreFixture()
	f.remote.createdID = "google-task-1"

	resp, err := svc.Add(context.Background(), "Sam", "Take out the trash")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.ID != "google-task-1" {
		t.Errorf("id = %q, want the remote id after rebinding", resp.ID)
	}

	chore, err := f.chores.GetByID(context.Background(), "google-task-1")
	if err != nil {
		t.Fatalf("chore not stored under remote id: %v", err)
	}
	if chore.AssignedTo != "Sam" || chore.Description != "Take out the trash" {
		t.Errorf("stored chore = %+v", chore)
	}
	if chore.Status != entities.ChoreStatusNeedsAction {
		t.Errorf("status = %q, want needsAction", chore.Status)
	}
}

func TestAddChoreRemoteFailureKeepsLocal(t *testing.T) {
	f, svc := newChoreFixture()
	// createdID unset: the fake remote rejects the create.

	resp, err := svc.Add(context.Background(), "Sam", "Dishes")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !resp.Success {
		t.Error("local-only add must still report success")
	}
	if !strings.Contains(resp.Message, "local") {
		t.Errorf("message = %q, should report the partial outcome", resp.Message)
	}

	chore, err := f.chores.GetByID(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("chore missing under surrogate id %q: %v", resp.ID, err)
	}
	if chore.AssignedTo != "Sam" {
		t.Errorf("stored chore = %+v", chore)
	}
}

func TestUpdateStatusPushesToRemote(t *testing.T) {
	f, svc := newChoreFixture()
	f.chores.chores["c1"] = &entities.Chore{
		ID: "c1", AssignedTo: "Sam", Description: "Dishes",
		Status: entities.ChoreStatusNeedsAction,
	}

	if err := svc.UpdateStatus(context.Background(), "c1", entities.ChoreStatusCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	c, _ := f.chores.GetByID(context.Background(), "c1")
	if c.Status != entities.ChoreStatusCompleted {
		t.Errorf("status = %q, want completed", c.Status)
	}
	if len(f.remote.statusCalls) != 1 || f.remote.statusCalls[0] != "c1:completed" {
		t.Errorf("remote calls = %v, want the push", f.remote.statusCalls)
	}
}

func TestUpdateStatusInvisibleStaysLocal(t *testing.T) {
	f, svc := newChoreFixture()
	f.chores.chores["c1"] = &entities.Chore{
		ID: "c1", AssignedTo: "Sam", Description: "Dishes",
		Status: entities.ChoreStatusNeedsAction,
	}

	if err := svc.UpdateStatus(context.Background(), "c1", entities.ChoreStatusInvisible); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	c, _ := f.chores.GetByID(context.Background(), "c1")
	if c.Status != entities.ChoreStatusInvisible {
		t.Errorf("status = %q, want invisible", c.Status)
	}
	if len(f.remote.statusCalls) != 0 {
		t.Errorf("remote calls = %v, invisible must never be pushed", f.remote.statusCalls)
	}
}

func TestUpdateStatusUnknownChore(t *testing.T) {
	_, svc := newChoreFixture()

	err := svc.UpdateStatus(context.Background(), "missing", entities.ChoreStatusCompleted)
	if err != entities.ErrChoreNotFound {
		t.Errorf("error = %v, want ErrChoreNotFound", err)
	}
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	_, svc := newChoreFixture()

	err := svc.UpdateStatus(context.Background(), "c1", entities.ChoreStatus("done"))
	if err != entities.ErrInvalidStatus {
		t.Errorf("error = %v, want ErrInvalidStatus", err)
	}
}
