package login_test

import (
	"testing"

	"github.com/omochice/socket-chat-client/internal/login"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "simple", input: "alice99", want: "alice99"},
		{name: "underscore and hyphen", input: "a_b-c", want: "a_b-c"},
		{name: "single char", input: "x", want: "x"},
		{name: "surrounding whitespace is trimmed", input: "  bob \t", want: "bob"},
		{name: "null-ish but longer is fine", input: "nullable", want: "nullable"},
		{name: "empty", input: "", wantErr: login.ErrRequired},
		{name: "blank", input: "   ", wantErr: login.ErrRequired},
		{name: "literal null", input: "null", wantErr: login.ErrInvalid},
		{name: "null any case", input: " NuLL ", wantErr: login.ErrInvalid},
		{name: "inner space", input: "bob smith", wantErr: login.ErrInvalid},
		{name: "punctuation", input: "bob!", wantErr: login.ErrInvalid},
		{name: "non ascii letter", input: "zoë", wantErr: login.ErrInvalid},
		{name: "dot", input: "a.b", wantErr: login.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := login.Validate(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestForm_SubmitSuccess(t *testing.T) {
	var f login.Form
	f.SetValue(" alice99 ")

	name, ok := f.Submit()
	assert.True(t, ok)
	assert.Equal(t, "alice99", name)
	assert.Empty(t, f.Error())
}

func TestForm_ErrorClearsOnEdit(t *testing.T) {
	var f login.Form

	_, ok := f.Submit()
	require.False(t, ok)
	assert.Equal(t, "Username is required", f.Error())

	f.SetValue("bad name")
	assert.Empty(t, f.Error(), "editing clears the error")

	_, ok = f.Submit()
	require.False(t, ok)
	assert.Equal(t, "Please enter a valid username", f.Error())

	f.SetValue("bad nam")
	assert.Empty(t, f.Error())
	assert.Equal(t, "bad nam", f.Value())
}

func TestForm_Reset(t *testing.T) {
	var f login.Form
	f.SetValue("null")
	_, _ = f.Submit()
	require.NotEmpty(t, f.Error())

	f.Reset()
	assert.Empty(t, f.Value())
	assert.Empty(t, f.Error())
}
