package handlers

import (
	"context"

	"github.com/matiasleandrokruk/zigmirror/internal/api/ctxkeys"
)

// unknownListener labels requests served outside RequestLogger, e.g. in tests
// that call a handler directly.
const unknownListener = "unknown"

// getListener retrieves the listener name injected by RequestLogger.
func getListener(ctx context.Context) string {
	if name := ctxkeys.String(ctx, ctxkeys.Listener); name != "" {
		return name
	}
	return unknownListener
}
