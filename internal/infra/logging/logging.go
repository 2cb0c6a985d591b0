// Package logging builds the process-wide zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/zigmirror/internal/infra/config"
)

// New returns a JSON production logger, or a human-readable development
// logger when format is config.LogFormatDevelopment.
func New(format string) (*zap.Logger, error) {
	switch format {
	case "", config.LogFormatProduction:
		return zap.NewProduction()
	case config.LogFormatDevelopment:
		return zap.NewDevelopment()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
