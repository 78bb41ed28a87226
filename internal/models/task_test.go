package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatusTrackable(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{StatusNew, true},
		{StatusInProgress, true},
		{StatusCompleted, false},
		{StatusCancelled, false},
		{TaskStatus("archived"), false},
		{TaskStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Trackable())
		})
	}
}

func TestTaskStatusValid(t *testing.T) {
	assert.True(t, StatusNew.Valid())
	assert.True(t, StatusCompleted.Valid())
	assert.False(t, TaskStatus("nope").Valid())
}
