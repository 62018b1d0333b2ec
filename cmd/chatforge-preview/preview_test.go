package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence/file"
)

func seedPreviewFlow(t *testing.T) *file.Persistence {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	flow := &models.Flow{
		ID:   "flow-1",
		Name: "Greeter",
		Slug: "greeter",
		Nodes: []*models.FlowNode{
			{ID: "start", Type: models.NodeTypeStart, Name: "Start"},
			{ID: "ask", Type: models.NodeTypeQuestion, Name: "Ask Name", Config: map[string]any{
				"prompt":       "What is your name?",
				"variableName": "name",
			}},
			{ID: "bye", Type: models.NodeTypeEnd, Name: "End", Config: map[string]any{
				"message": "Goodbye!",
			}},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "ask"},
			{ID: "t2", FromNodeID: "ask", ToNodeID: "bye"},
		},
	}

	require.NoError(t, store.FlowRepository().Save(context.Background(), flow))

	return store
}

func TestRunPreview(t *testing.T) {
	t.Parallel()

	store := seedPreviewFlow(t)

	var output bytes.Buffer

	err := runPreview(context.Background(), store, previewOptions{
		flowID:  "flow-1",
		noDelay: true,
		input:   strings.NewReader("Alice\n"),
		output:  &output,
	})
	require.NoError(t, err)

	transcript := output.String()
	assert.Contains(t, transcript, "Previewing Greeter (greeter)")
	assert.Contains(t, transcript, "bot: What is your name?")
	assert.Contains(t, transcript, "you: Alice")
	assert.Contains(t, transcript, "bot: Goodbye!")
	assert.Contains(t, transcript, "Conversation ended after 3 steps.")
}

func TestRunPreview_FlowNotFound(t *testing.T) {
	t.Parallel()

	store := seedPreviewFlow(t)

	var output bytes.Buffer

	err := runPreview(context.Background(), store, previewOptions{
		flowID: "ghost",
		input:  strings.NewReader(""),
		output: &output,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRunPreview_EOFStopsRun(t *testing.T) {
	t.Parallel()

	store := seedPreviewFlow(t)

	var output bytes.Buffer

	err := runPreview(context.Background(), store, previewOptions{
		flowID:  "flow-1",
		noDelay: true,
		input:   strings.NewReader(""),
		output:  &output,
	})
	require.NoError(t, err)

	assert.Contains(t, output.String(), "bot: What is your name?")
	assert.NotContains(t, output.String(), "Goodbye!")
}
