package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func runeLen(value string) int {
	return utf8.RuneCountInString(value)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func stringPtr(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
