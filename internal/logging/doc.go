// Package logging provides structured logging for shinyhunt runs.
//
// Log entries are JSON lines produced by log/slog. Each hunt tags its
// entries with a run ID, and stage-scoped loggers add the stage name, so a
// single log file can hold the history of many runs and still be filtered
// afterwards.
//
// # Write Path
//
// Producers never touch the file directly. [Open] builds this chain:
//
//	slog.JSONHandler -> AsyncWriter (bounded queue) -> RotatingWriter -> file
//
// [AsyncWriter] owns the only goroutine that writes to disk. A full queue
// drops the line and increments [Logger.Dropped] instead of blocking the hunt
// loop. Because there is a single writer, rotation and compression never race
// with appends.
//
// # Rotation
//
// [RotatingWriter] caps the active file at MaxSizeMB. On overflow the file is
// renamed to shinyhunt.log.1, older backups shift up, and anything past
// MaxBackups is deleted. With Compress set, backups become shinyhunt.log.N.gz.
//
// # History
//
// [ReadHistory] parses a log file back into entries, [FilterLogs] narrows them
// by level, run, stage, time and message, and [Summarize] folds them into one
// [RunSummary] per run (resets performed, final outcome).
//
// # Testing
//
// Use [NopLogger] to discard output in tests.
package logging
