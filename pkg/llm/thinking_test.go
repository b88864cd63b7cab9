package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripThinking(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no tags", "  plain answer \n", "plain answer"},
		{"leading think block", "<think>\nlet me see\n</think>\n\nThe table stores orders.", "The table stores orders."},
		{"think not at start is kept", "Answer <think>x</think>", "Answer <think>x</think>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripThinking(tt.in))
		})
	}
}
