package util

import (
	"context"
)

// Context keys.
type ctxKey string

const ctxKeyCredential ctxKey = "credential"

// ContextWithCredentialName adds the authenticated credential's display
// name to the context. Only the display name is stored, never the key.
func ContextWithCredentialName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeyCredential, name)
}

// CredentialNameFromContext extracts the credential display name from context.
func CredentialNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyCredential).(string); ok {
		return v
	}
	return ""
}
