package models

import (
	"fmt"

	"github.com/iudanet/chatsync/internal/crdt"
)

// Поля документа задачи
const (
	TaskFieldTitle       = "title"
	TaskFieldDescription = "description"
	TaskFieldStatus      = "status"
	TaskFieldAssignee    = "assignee"
	TaskFieldDue         = "due"
	TaskFieldLabels      = "labels" // множество
)

// TaskFields список полей-регистров задачи, доступных для изменения
var TaskFields = []string{
	TaskFieldTitle,
	TaskFieldDescription,
	TaskFieldStatus,
	TaskFieldAssignee,
	TaskFieldDue,
}

// Task представление задачи, материализованное из CRDT документа.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	Due         string   `json:"due,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// TaskFromDocument материализует задачу из документа.
func TaskFromDocument(doc *crdt.Document) (*Task, error) {
	state := doc.State()
	task := &Task{
		ID:     doc.ID,
		Labels: state.Sets[TaskFieldLabels],
	}

	fields := map[string]*string{
		TaskFieldTitle:       &task.Title,
		TaskFieldDescription: &task.Description,
		TaskFieldStatus:      &task.Status,
		TaskFieldAssignee:    &task.Assignee,
		TaskFieldDue:         &task.Due,
	}
	for name, dst := range fields {
		if _, err := state.Decode(name, dst); err != nil {
			return nil, fmt.Errorf("failed to materialize task %s: %w", doc.ID, err)
		}
	}

	return task, nil
}

// IsTaskField проверяет, что имя поля является регистром задачи.
func IsTaskField(name string) bool {
	for _, f := range TaskFields {
		if f == name {
			return true
		}
	}
	return false
}
