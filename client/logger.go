package client

import (
	"os"

	"github.com/rs/zerolog"
)

// logger is the package-level logger. Quiet by default, so the driver does
// not pollute application output; raise the level with SetLogger when
// debugging the wire protocol.
var logger = zerolog.New(os.Stderr).With().Timestamp().Str("driver", "opteryx").Logger().Level(zerolog.WarnLevel)

// SetLogger replaces the package-level logger.
func SetLogger(l zerolog.Logger) {
	logger = l
}
