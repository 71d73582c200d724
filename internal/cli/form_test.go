package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormResolvesLabels(t *testing.T) {
	out, err := execute(t, NewFormCommand(&RootOptions{Format: "text"}), nil, "fetch_action")
	require.NoError(t, err)

	assert.Contains(t, out, "Network request (fetch_action)")
	assert.Contains(t, out, "Request URL")
	assert.Contains(t, out, "Network Proxy")
	assert.Contains(t, out, "optional")
	assert.Contains(t, out, "Get|Post|Delete|Put")
	assert.NotContains(t, out, "envelope:")
}

func TestFormLocalized(t *testing.T) {
	out, err := execute(t, NewFormCommand(&RootOptions{Format: "json", Locale: "zh-CN"}), nil, "fetch_action")
	require.NoError(t, err)

	var res FormResult
	decodeData(t, out, &res)
	assert.Equal(t, "网络请求", res.Title)
	require.Len(t, res.Fields, 5)
	assert.Equal(t, "请求地址", res.Fields[0].Label)
	assert.Equal(t, 0.0, res.Model["timeout"])
	assert.Equal(t, false, res.Model["http2"])
	assert.Empty(t, res.Envelope)
}

func TestFormEnvelope(t *testing.T) {
	opts := &RootOptions{Format: "json"}
	out, err := execute(t, NewFormCommand(opts), nil, "fetch_action",
		"--set", "method=Get",
		"--set", "timeout=30",
		"--plug", "url=card-1.Success.a.hello",
	)
	require.NoError(t, err)

	var res FormResult
	decodeData(t, out, &res)
	require.NotEmpty(t, res.Envelope)

	var env struct {
		Type  string                     `json:"type"`
		Value map[string]json.RawMessage `json:"value"`
	}
	require.NoError(t, json.Unmarshal(res.Envelope, &env))
	assert.Equal(t, "Json", env.Type)
	assert.JSONEq(t, `"Get"`, string(env.Value["method"]))
	assert.JSONEq(t, `30`, string(env.Value["timeout"]))
	assert.JSONEq(t, `{"type":"Plug","value":{"type":"String","key":["Success","a","hello"]}}`, string(env.Value["url"]))
}

func TestFormErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown card", []string{"nope_action"}, ErrCodeNotFound},
		{"bad assignment", []string{"fetch_action", "--set", "url"}, ErrCodeBadInput},
		{"bad plug", []string{"fetch_action", "--plug", "=x"}, ErrCodeBadInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, NewFormCommand(&RootOptions{Format: "text"}), nil, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 30.0, parseValue("30"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, map[string]any{"a": 1.0}, parseValue(`{"a":1}`))
	assert.Equal(t, "https://example.com", parseValue("https://example.com"))
	assert.Equal(t, "Get", parseValue("Get"))
}
