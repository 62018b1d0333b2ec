package registry

import "github.com/chatforge/chatforge/pkg/models"

const (
	// DefaultAIModel is the model preset for new AI response nodes.
	DefaultAIModel = "gpt-4"

	// DefaultAITemperature is the sampling temperature preset for new AI
	// response nodes.
	DefaultAITemperature = 0.7
)

// builtinDefinitions returns the closed set of node types. Order here is
// the toolbox display order.
func builtinDefinitions() []*NodeTypeDefinition {
	return []*NodeTypeDefinition{
		{
			Type:          models.NodeTypeStart,
			Label:         "Start",
			Icon:          "play_circle",
			Color:         "#4caf50",
			Description:   "Entry point of the flow. Every runnable flow has exactly one.",
			Category:      models.NodeCategoryBasic,
			IsImplemented: true,
			Schema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Type:          models.NodeTypeMessage,
			Label:         "Message",
			Icon:          "chat_bubble",
			Color:         "#2196f3",
			Description:   "Sends a message to the contact and continues.",
			Category:      models.NodeCategoryBasic,
			IsImplemented: true,
			DefaultConfig: func() map[string]any {
				return map[string]any{"message": "Enter your message here"}
			},
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{"type": "string", "minLength": 1},
				},
				"required": []any{"message"},
			},
		},
		{
			Type:          models.NodeTypeQuestion,
			Label:         "Question",
			Icon:          "help",
			Color:         "#9c27b0",
			Description:   "Asks the contact a question and stores the answer in a variable.",
			Category:      models.NodeCategoryInteraction,
			IsImplemented: true,
			DefaultConfig: func() map[string]any {
				return map[string]any{
					"variableName": "",
					"prompt":       "Enter your question here",
					"required":     true,
				}
			},
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"variableName": map[string]any{"type": "string"},
					"prompt":       map[string]any{"type": "string", "minLength": 1},
					"required":     map[string]any{"type": "boolean"},
				},
				"required": []any{"prompt"},
			},
		},
		{
			Type:          models.NodeTypeCondition,
			Label:         "Condition",
			Icon:          "call_split",
			Color:         "#ff9800",
			Description:   "Branch point. Routing is decided by the conditions on its outgoing transitions, not by node config.",
			Category:      models.NodeCategoryLogic,
			IsImplemented: true,
			DefaultConfig: func() map[string]any {
				return map[string]any{"conditions": []any{}}
			},
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"conditions": map[string]any{"type": "array"},
				},
			},
		},
		{
			Type:          models.NodeTypeAction,
			Label:         "Action",
			Icon:          "bolt",
			Color:         "#f44336",
			Description:   "Performs a platform action such as tagging a contact or assigning a team.",
			Category:      models.NodeCategoryLogic,
			IsImplemented: true,
			DefaultConfig: func() map[string]any {
				return map[string]any{"actionType": ""}
			},
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"actionType":     map[string]any{"type": "string"},
					"resultVariable": map[string]any{"type": "string"},
				},
			},
		},
		{
			Type:          models.NodeTypeAIResponse,
			Label:         "AI Response",
			Icon:          "smart_toy",
			Color:         "#00bcd4",
			Description:   "Generates a reply with a language model using the configured prompt.",
			Category:      models.NodeCategoryAdvanced,
			IsImplemented: true,
			DefaultConfig: func() map[string]any {
				return map[string]any{
					"prompt":      "",
					"model":       DefaultAIModel,
					"temperature": DefaultAITemperature,
				}
			},
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prompt":         map[string]any{"type": "string"},
					"model":          map[string]any{"type": "string"},
					"temperature":    map[string]any{"type": "number", "minimum": 0, "maximum": 2},
					"resultVariable": map[string]any{"type": "string"},
				},
			},
		},
		{
			Type:          models.NodeTypeAPICall,
			Label:         "API Call",
			Icon:          "cloud",
			Color:         "#607d8b",
			Description:   "Calls an external HTTP endpoint and stores the result.",
			Category:      models.NodeCategoryIntegration,
			IsImplemented: true,
			DefaultConfig: func() map[string]any {
				return map[string]any{"url": "", "method": "GET"}
			},
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{"type": "string"},
					"method": map[string]any{
						"type": "string",
						"enum": []any{"GET", "POST", "PUT", "PATCH", "DELETE"},
					},
					"resultVariable": map[string]any{"type": "string"},
				},
			},
		},
		{
			Type:          models.NodeTypeEnd,
			Label:         "End",
			Icon:          "stop_circle",
			Color:         "#795548",
			Description:   "Terminates the conversation with a closing message.",
			Category:      models.NodeCategoryBasic,
			IsImplemented: true,
			DefaultConfig: func() map[string]any {
				return map[string]any{"message": "Thank you! Goodbye."}
			},
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{"type": "string"},
				},
			},
		},
	}
}
