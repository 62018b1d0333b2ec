package builder

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/services"
)

// ValidateNode checks a node's name and configuration and returns the list
// of human-readable issues. An empty list means the node is valid. The
// config is checked against the node type's JSON schema plus a few
// semantic rules the schema cannot express.
func (s *Session) ValidateNode(nodeID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flow == nil {
		return nil, ErrNotLoaded
	}

	node := s.flow.NodeByID(nodeID)
	if node == nil {
		return nil, services.ErrNodeNotFound
	}

	issues := make([]string, 0)

	if strings.TrimSpace(node.Name) == "" {
		issues = append(issues, "node name must not be empty")
	}

	configIssues, err := s.configIssuesLocked(node)
	if err != nil {
		return nil, err
	}

	return append(issues, configIssues...), nil
}

// configIssuesLocked checks a node's config against its type's JSON schema
// and the semantic rules. Caller holds the session lock.
func (s *Session) configIssuesLocked(node *models.FlowNode) ([]string, error) {
	def, err := s.registry.DefinitionOf(node.Type)
	if err != nil {
		return []string{fmt.Sprintf("unknown node type %q", node.Type)}, nil
	}

	issues := make([]string, 0)

	if def.Schema != nil {
		result, err := gojsonschema.Validate(
			gojsonschema.NewGoLoader(def.Schema),
			gojsonschema.NewGoLoader(node.Config),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to validate node config: %w", err)
		}

		for _, issue := range result.Errors() {
			issues = append(issues, fmt.Sprintf("%s: %s", issue.Field(), issue.Description()))
		}
	}

	return append(issues, semanticIssues(node)...), nil
}

// checkConfigLocked rejects an explicitly supplied config that fails
// validation, so invalid configs never reach the backend. Catalog defaults
// are placeholders and stay out of scope; only configs the caller sent are
// checked. Caller holds the session lock.
func (s *Session) checkConfigLocked(node *models.FlowNode) error {
	issues, err := s.configIssuesLocked(node)
	if err != nil {
		return err
	}

	if len(issues) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidNodeConfig, strings.Join(issues, "; "))
	}

	return nil
}

// semanticIssues covers the per-type rules the JSON schemas leave open.
func semanticIssues(node *models.FlowNode) []string {
	issues := make([]string, 0)

	switch node.Type {
	case models.NodeTypeQuestion:
		if strings.TrimSpace(node.ConfigString("variableName", "")) == "" {
			issues = append(issues, "question nodes require a variable name to store the answer")
		}
	case models.NodeTypeAPICall:
		raw := strings.TrimSpace(node.ConfigString("url", ""))
		if raw == "" {
			issues = append(issues, "api call nodes require a URL")
		} else if _, err := url.ParseRequestURI(raw); err != nil {
			issues = append(issues, fmt.Sprintf("invalid URL %q", raw))
		}
	case models.NodeTypeAIResponse:
		if strings.TrimSpace(node.ConfigString("prompt", "")) == "" {
			issues = append(issues, "ai response nodes require a prompt")
		}
	case models.NodeTypeAction:
		if strings.TrimSpace(node.ConfigString("actionType", "")) == "" {
			issues = append(issues, "action nodes require an action type")
		}
	}

	return issues
}
