package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/iudanet/chatsync/internal/crdt"
	"github.com/iudanet/chatsync/internal/models"
)

// TaskChanges изменения задачи из флагов команды task
type TaskChanges struct {
	Fields       map[string]string
	AddLabels    []string
	RemoveLabels []string
}

// Mutations превращает изменения в операции редактора
func (tc TaskChanges) Mutations() ([]crdt.Mutation, error) {
	for field := range tc.Fields {
		if !models.IsTaskField(field) {
			return nil, fmt.Errorf("unknown task field %q", field)
		}
	}

	// Порядок полей фиксирован, чтобы метки операций не зависели от обхода map
	var mutations []crdt.Mutation
	for _, field := range models.TaskFields {
		if value, ok := tc.Fields[field]; ok {
			mutations = append(mutations, crdt.SetField(field, value))
		}
	}
	for _, label := range tc.AddLabels {
		mutations = append(mutations, crdt.AddElement(models.TaskFieldLabels, label))
	}
	for _, label := range tc.RemoveLabels {
		mutations = append(mutations, crdt.RemoveElement(models.TaskFieldLabels, label))
	}
	return mutations, nil
}

func (c *Cli) runTask(ctx context.Context, taskID string, changes TaskChanges, offline bool) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	mutations, err := changes.Mutations()
	if err != nil {
		return err
	}

	var task *models.Task
	if len(mutations) == 0 {
		task, err = c.dataService.GetTask(ctx, taskID)
	} else {
		task, err = c.dataService.UpdateTask(ctx, taskID, mutations...)
	}
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	printTask(c, task)
	if len(mutations) > 0 {
		c.trySync(ctx, offline)
	}
	return nil
}

func printTask(c *Cli, task *models.Task) {
	c.io.Printf("Task %s\n", task.ID)
	c.io.Printf("  Title:       %s\n", task.Title)
	if task.Description != "" {
		c.io.Printf("  Description: %s\n", task.Description)
	}
	if task.Status != "" {
		c.io.Printf("  Status:      %s\n", task.Status)
	}
	if task.Assignee != "" {
		c.io.Printf("  Assignee:    %s\n", task.Assignee)
	}
	if task.Due != "" {
		c.io.Printf("  Due:         %s\n", task.Due)
	}
	if len(task.Labels) > 0 {
		c.io.Printf("  Labels:      %s\n", strings.Join(task.Labels, ", "))
	}
}
