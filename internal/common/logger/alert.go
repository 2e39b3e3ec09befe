package logger

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Alerter receives log lines that should page someone.
type Alerter interface {
	SendLogMessage(level, message string, fields map[string]interface{}) error
}

// alert forwards error and fatal lines, with their fields, to the alerter.
// Error alerts are sent on their own goroutine; fatal ones block because the
// process exits right after.
func (l *loggerImpl) alert(level zerolog.Level, msg string, fields []interface{}) {
	if l.alerter == nil || level < l.zl.GetLevel() {
		return
	}

	name := "ERROR"
	if level >= zerolog.FatalLevel {
		name = "FATAL"
	}
	m := fieldsToMap(fields)

	if level >= zerolog.FatalLevel {
		_ = l.alerter.SendLogMessage(name, msg, m)
		return
	}
	go func() {
		_ = l.alerter.SendLogMessage(name, msg, m)
	}()
}

// fieldsToMap accepts the same shapes as logWithFields: a single map or
// key/value pairs. Errors are rendered as their message.
func fieldsToMap(fields []interface{}) map[string]interface{} {
	if len(fields) == 1 {
		if m, ok := fields[0].(map[string]interface{}); ok {
			out := make(map[string]interface{}, len(m))
			for k, v := range m {
				out[k] = alertValue(v)
			}
			return out
		}
	}
	if len(fields) == 0 || len(fields)%2 != 0 {
		return nil
	}

	out := make(map[string]interface{}, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		out[key] = alertValue(fields[i+1])
	}
	return out
}

func alertValue(v interface{}) interface{} {
	switch val := v.(type) {
	case error:
		if val == nil {
			return nil
		}
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}
