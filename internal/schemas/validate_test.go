package schemas

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewSchema_IsValidJSON(t *testing.T) {
	src, err := Source(Review)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(src), &doc))
	assert.Equal(t, "object", doc["type"])
}

func TestValidate_Review(t *testing.T) {
	tests := []struct {
		name       string
		document   string
		wantFields []string
	}{
		{
			name:     "complete narrative",
			document: `{"overall_feedback":"Solid","weak_sections":[],"phrasing_suggestions":[{"original":"a","improved":"b"}],"quick_fixes":[{"title":"t","description":"d","impact":"High","effort_minutes":10}]}`,
		},
		{
			name:     "effort as string is accepted",
			document: `{"overall_feedback":"Solid","weak_sections":[],"phrasing_suggestions":[],"quick_fixes":[{"title":"t","effort_minutes":"10"}]}`,
		},
		{
			name:       "missing quick fixes",
			document:   `{"overall_feedback":"Solid","weak_sections":[],"phrasing_suggestions":[]}`,
			wantFields: []string{"(root)"},
		},
		{
			name:       "wrong list type",
			document:   `{"overall_feedback":"Solid","weak_sections":"none","phrasing_suggestions":[],"quick_fixes":[]}`,
			wantFields: []string{"weak_sections"},
		},
		{
			name:       "not json",
			document:   `Here is your review`,
			wantFields: []string{"(root)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Review, tt.document)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
			assert.Equal(t, tt.wantFields, ve.Fields())
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("missing.schema.json", `{}`)
	var le *SchemaLoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "missing.schema.json", le.Path)
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`

	assert.NoError(t, ValidateJSONString(schema, `{"name":"x"}`))

	err := ValidateJSONString(schema, `{"name":1}`)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Error(), "name")

	err = ValidateJSONString(`{"type":`, `{}`)
	var le *SchemaLoadError
	require.True(t, errors.As(err, &le))
}
