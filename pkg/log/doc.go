/*
Package log provides structured logging for the coordinator using zerolog.

It wraps a single global zerolog.Logger, configured once via Init, plus a
set of WithX helpers that derive component- or entity-scoped child loggers
carrying a fixed context field.

# Usage

Initializing the logger:

	import "github.com/cuemby/vpncoord/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("cluster initialized")
	log.Warn("node heartbeat missed")
	log.Error("failed to connect to containerd")
	log.Fatal("cannot start without a data directory") // exits process

Structured logging against the global Logger:

	log.Logger.Info().
		Str("node_id", nodeID).
		Int("voters", len(voters)).
		Msg("cluster bootstrapped")

Component and entity loggers:

	consensusLog := log.WithComponent("consensus")
	consensusLog.Info().Msg("starting raft loop")

	nodeLog := log.WithNodeID(nodeID)
	nodeLog.Warn().Msg("heartbeat missed")

Each WithX helper (WithComponent, WithNodeID, WithServiceID, WithTaskID,
WithUserID, WithOperationID) returns a zerolog.Logger value, not a pointer —
store it in a struct field and reuse it rather than re-deriving on every
call.

# Conventions

  - JSON output in production (JSONOutput: true), console in development.
  - Use .Err(err) for error values rather than formatting them into the
    message string, so log aggregators can query on the error field.
  - Never log user key material (UserConfig.PrivateKey, Password) or raw
    traffic payloads — only identifiers and counters.
  - Component loggers are created once per long-lived object (a Supervisor,
    a raft FSM, a batch engine) and stored, not recreated per call.

# See also

  - https://github.com/rs/zerolog
  - pkg/errors for the typed error values logged via .Err()
*/
package log
