// Package logger builds the application's logrus logger.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Mask replaces the value of every sensitive field.
const Mask = "[REDACTED]"

// sensitiveKeys are matched case-insensitively against field names.
var sensitiveKeys = []string{"password", "token", "authorization", "secret"}

// New returns a logger writing to stdout at level with a "json" or "text"
// formatter. Sensitive fields are redacted on every entry.
func New(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	l.AddHook(redactHook{})
	return l
}

// IsSensitive reports whether a field name holds a credential.
func IsSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Redact returns a copy of fields with sensitive values masked, descending
// into nested maps.
func Redact(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch {
		case IsSensitive(k):
			out[k] = Mask
		case isMap(v):
			out[k] = Redact(v.(map[string]any))
		default:
			out[k] = v
		}
	}
	return out
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

type redactHook struct{}

func (redactHook) Levels() []logrus.Level { return logrus.AllLevels }

func (redactHook) Fire(e *logrus.Entry) error {
	for k, v := range e.Data {
		if IsSensitive(k) {
			e.Data[k] = Mask
		} else if m, ok := v.(map[string]any); ok {
			e.Data[k] = Redact(m)
		}
	}
	return nil
}
