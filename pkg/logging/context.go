package logging

import (
	"context"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	MessageIDKey contextKey = "message_id"
	ServiceKey   contextKey = "service"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, MessageIDKey, messageID)
}

func WithService(ctx context.Context, service string) context.Context {
	return context.WithValue(ctx, ServiceKey, service)
}

func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

func GetMessageID(ctx context.Context) string {
	if v, ok := ctx.Value(MessageIDKey).(string); ok {
		return v
	}
	return ""
}

func GetService(ctx context.Context) string {
	if v, ok := ctx.Value(ServiceKey).(string); ok {
		return v
	}
	return ""
}

// GetLogFields collects the context-carried identifiers as alternating
// key/value pairs suitable for a sugared logger.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 6)

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}

	if messageID := GetMessageID(ctx); messageID != "" {
		fields = append(fields, "message_id", messageID)
	}

	if service := GetService(ctx); service != "" {
		fields = append(fields, "service", service)
	}

	return fields
}
