package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/pkg/models"
)

func TestEvaluate_Operators(t *testing.T) {
	t.Parallel()

	vars := models.VariableContext{
		"age":    "18",
		"name":   "Alice",
		"status": "active",
		"score":  42.5,
		"vip":    true,
	}

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{"equal strings", `status == 'active'`, true},
		{"equal strings negative", `status == 'inactive'`, false},
		{"equal double quotes", `status == "active"`, true},
		{"not equal", `status != 'inactive'`, true},
		{"numeric equal across types", `age == 18`, true},
		{"numeric equal with decimal", `age == 18.0`, true},
		{"greater than", `score > 40`, true},
		{"greater than negative", `score > 50`, false},
		{"less than", `age < 21`, true},
		{"greater or equal boundary", `age >= 18`, true},
		{"less or equal boundary", `age <= 18`, true},
		{"contains", `name contains 'lic'`, true},
		{"contains negative", `name contains 'bob'`, false},
		{"startsWith", `name startsWith 'Al'`, true},
		{"startsWith negative", `name startsWith 'li'`, false},
		{"boolean literal", `vip == true`, true},
		{"empty expression is fallback", ``, true},
		{"whitespace only is fallback", `   `, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := Evaluate(tt.expression, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluate_Malformed(t *testing.T) {
	t.Parallel()

	vars := models.VariableContext{"age": "18"}

	tests := []struct {
		name       string
		expression string
	}{
		{"no operator", `age`},
		{"missing right-hand side", `age ==`},
		{"bare word literal", `age == adult`},
		{"left side not identifier", `'age' == 18`},
		{"double operator", `== == 18`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Evaluate(tt.expression, vars)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedCondition)
		})
	}
}

func TestEvaluate_MissingVariable(t *testing.T) {
	t.Parallel()

	vars := models.VariableContext{}

	result, err := Evaluate(`age == 18`, vars)
	require.NoError(t, err)
	assert.False(t, result, "missing variable should not satisfy equality")

	result, err = Evaluate(`age != 18`, vars)
	require.NoError(t, err)
	assert.True(t, result, "missing variable satisfies inequality")
}

func TestEvaluate_NonNumericComparison(t *testing.T) {
	t.Parallel()

	vars := models.VariableContext{"name": "Alice"}

	_, err := Evaluate(`name > 10`, vars)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedCondition)
}

func TestParse_OperatorInsideQuotes(t *testing.T) {
	t.Parallel()

	expr, err := Parse(`answer == 'a == b'`)
	require.NoError(t, err)
	assert.Equal(t, "answer", expr.Variable)
	assert.Equal(t, "==", expr.Operator)
	assert.Equal(t, "a == b", expr.Literal)
}

func TestParse_WordOperatorNeedsSpaces(t *testing.T) {
	t.Parallel()

	// "containsX" is not the contains operator.
	_, err := Parse(`name containsX 'a'`)
	require.Error(t, err)
}
