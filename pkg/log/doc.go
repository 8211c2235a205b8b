/*
Package log provides structured logging for Quarry built on zerolog.

Call Init once at process start, then either use the package-level helpers
(Info, Warn, Error) or derive child loggers carrying standard fields:

	logger := log.WithComponent("discovery")
	logger.Info().Str("pod_type", "virsh").Msg("starting round")

WithRack and WithRound attach the rack controller ident and discovery round
id so one round's log lines can be correlated across components.
*/
package log
