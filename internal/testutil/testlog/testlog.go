// Package testlog configures logging for tests that exercise the network
// channels, so a hanging test leaves a trace of the last exchange.
package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/unrealctl/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Str("test", t.Name()).Msg("start")
}
