package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/notterun/internal/task"
)

// TaskFile is the JSON form of a batch file.
type TaskFile struct {
	Model    string   `json:"model,omitempty"`
	Provider string   `json:"provider,omitempty"`
	MaxSteps int      `json:"max_steps,omitempty"`
	Tasks    []string `json:"tasks"`
}

// LoadTasks reads a batch file. JSON files hold a TaskFile or a bare array
// of strings; any other file holds one task per non-blank line.
func LoadTasks(path string) (*TaskFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tasks file: %w", err)
	}

	var tf TaskFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := parseJSONTasks(data, &tf); err != nil {
			return nil, fmt.Errorf("parse tasks file: %w", err)
		}
		tf.Tasks = task.CleanTasks(tf.Tasks)
	} else {
		tf.Tasks = task.SplitTasks(string(data))
	}

	if err := validate(&tf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &tf, nil
}

func parseJSONTasks(data []byte, tf *TaskFile) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &tf.Tasks)
	}
	return json.Unmarshal(data, tf)
}

// validate rejects empty batches and out-of-range step budgets.
func validate(tf *TaskFile) error {
	if len(tf.Tasks) == 0 {
		return task.ErrEmptyBatch
	}
	if tf.MaxSteps != 0 && (tf.MaxSteps < task.MinSteps || tf.MaxSteps > task.MaxSteps) {
		return task.ErrStepBudget
	}
	return nil
}
