package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Create(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	tests := []struct {
		name    string
		body    string
		wantErr bool
		path    string
	}{
		{"title only", `{"title":"A"}`, false, ""},
		{"title and html description", `{"title":"A","description":"<b>x</b>"}`, false, ""},
		{"unknown fields ignored", `{"title":"A","done":true}`, false, ""},
		{"missing title", `{"description":"x"}`, true, ""},
		{"empty title", `{"title":""}`, true, "title"},
		{"numeric title", `{"title":42}`, true, "title"},
		{"numeric description", `{"title":"A","description":1}`, true, "description"},
		{"array body", `[]`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(CreateTodo, []byte(tt.body))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			require.NotEmpty(t, ve.Errors)
			assert.Equal(t, tt.path, ve.Errors[0].Path)
		})
	}
}

func TestValidate_Update(t *testing.T) {
	v := MustNew()

	assert.NoError(t, v.Validate(UpdateTodo, []byte(`{}`)))
	assert.NoError(t, v.Validate(UpdateTodo, []byte(`{"description":""}`)))
	assert.Error(t, v.Validate(UpdateTodo, []byte(`{"title":""}`)))
}

func TestValidate_Malformed(t *testing.T) {
	v := MustNew()

	err := v.Validate(CreateTodo, []byte(`{"title":`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestValidate_UnknownSchema(t *testing.T) {
	v := MustNew()
	assert.Error(t, v.Validate("nope.json", []byte(`{}`)))
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{
		{Path: "title", Message: "length must be >= 1, but got 0"},
		{Message: "missing properties: 'title'"},
	}}
	assert.Equal(t, "title: length must be >= 1, but got 0; missing properties: 'title'", err.Error())
}
