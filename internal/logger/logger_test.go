package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	l := New("debug", "json")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	l = New("nonsense", "text")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}

func TestRedact(t *testing.T) {
	in := map[string]any{
		"email":    "john@gmail.com",
		"password": "Password123!",
		"input": map[string]any{
			"first_name":   "John",
			"Password":     "x",
			"access_token": "y",
		},
	}

	out := Redact(in)

	assert.Equal(t, "john@gmail.com", out["email"])
	assert.Equal(t, Mask, out["password"])
	nested := out["input"].(map[string]any)
	assert.Equal(t, "John", nested["first_name"])
	assert.Equal(t, Mask, nested["Password"])
	assert.Equal(t, Mask, nested["access_token"])
	assert.Equal(t, "Password123!", in["password"], "input is not modified")
}

func TestRedactHook(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", "json")
	l.SetOutput(&buf)

	l.WithFields(logrus.Fields{"authorization": "Bearer 1|abc", "user_id": 3}).Info("request")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, Mask, entry["authorization"])
	assert.Equal(t, float64(3), entry["user_id"])
}
