package simulator

import (
	"context"
	"fmt"
	"strings"

	"github.com/chatforge/chatforge/pkg/models"
)

// Executor produces the output of integration nodes (action, ai_response,
// api_call) during a preview run. The returned result is stored under the
// node's resultVariable, when configured.
type Executor interface {
	Execute(ctx context.Context, node *models.FlowNode, vars models.VariableContext) (output string, result any, err error)
}

// MockExecutor is the default preview executor. It never performs real
// side effects; outputs are deterministic so preview runs are repeatable.
type MockExecutor struct{}

func (MockExecutor) Execute(_ context.Context, node *models.FlowNode, _ models.VariableContext) (string, any, error) {
	switch node.Type {
	case models.NodeTypeAction:
		actionType := node.ConfigString("actionType", "unconfigured")

		return fmt.Sprintf("[mock] executed action %q", actionType), "completed", nil

	case models.NodeTypeAIResponse:
		prompt := strings.TrimSpace(node.ConfigString("prompt", ""))
		if prompt == "" {
			prompt = "empty prompt"
		}

		response := fmt.Sprintf("[mock] AI response to: %s", prompt)

		return response, response, nil

	case models.NodeTypeAPICall:
		method := node.ConfigString("method", "GET")
		url := node.ConfigString("url", "")

		return fmt.Sprintf("[mock] %s %s -> 200 OK", method, url),
			map[string]any{"status": 200.0, "ok": true}, nil

	default:
		return "", nil, fmt.Errorf("node type %q has no executor", node.Type)
	}
}
