package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every log line written with a context that
// carries them.
type LogFields struct {
	RunID      *string // aggregation run
	SourceID   *int64
	ModuleName *string
	Component  string // e.g. "bigscreen.aggregation"
}

// WithLogFields enriches ctx. Newer non-empty values win over older ones.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing
	if next.RunID != nil {
		result.RunID = next.RunID
	}
	if next.SourceID != nil {
		result.SourceID = next.SourceID
	}
	if next.ModuleName != nil {
		result.ModuleName = next.ModuleName
	}
	if next.Component != "" {
		result.Component = next.Component
	}
	return result
}

// Ptr returns a pointer to v, for filling LogFields inline.
func Ptr[T any](v T) *T {
	return &v
}
