package arr

import (
	"github.com/hnipps/pulsarr/pkg/models"
)

// ConsoleProgressReporter implements the ProgressReporter interface for console output
type ConsoleProgressReporter struct {
	logger Logger
}

// NewConsoleProgressReporter creates a new ConsoleProgressReporter
func NewConsoleProgressReporter(logger Logger) ProgressReporter {
	return &ConsoleProgressReporter{
		logger: logger,
	}
}

// StartPhase reports the start of processing one content class
func (r *ConsoleProgressReporter) StartPhase(name string, total int) {
	r.logger.Info("")
	r.logger.Info("Processing %d %s...", total, name)
}

// ReportDeleted reports that an item was (or in dry run would be) deleted
func (r *ConsoleProgressReporter) ReportDeleted(kind, title string, instanceID int, dryRun bool) {
	if dryRun {
		r.logger.Info("  🏃 DRY RUN: Would delete %s \"%s\" from instance %d", kind, title, instanceID)
		return
	}
	r.logger.Info("  🗑️  Deleted %s \"%s\" from instance %d", kind, title, instanceID)
}

// ReportSkipped reports that an item was skipped
func (r *ConsoleProgressReporter) ReportSkipped(kind, title, reason string) {
	r.logger.Debug("  ⏭️  Skipped %s \"%s\": %s", kind, title, reason)
}

// ReportProtected reports that an item is shielded by a protection playlist
func (r *ConsoleProgressReporter) ReportProtected(kind, title string) {
	r.logger.Info("  🛡️  Protected %s \"%s\"", kind, title)
}

// ReportError reports an error during processing
func (r *ConsoleProgressReporter) ReportError(err error) {
	r.logger.Error("  ❌ Error: %s", err.Error())
}

// Finish reports the final delete sync statistics
func (r *ConsoleProgressReporter) Finish(result *models.DeletionResult, dryRun bool) {
	r.logger.Info("")
	r.logger.Info("================================================")
	if dryRun {
		r.logger.Info("Delete Sync Summary (dry run):")
	} else {
		r.logger.Info("Delete Sync Summary:")
	}

	if result.SafetyTriggered {
		r.logger.Warn("  ⚠️  Safety check triggered: %s", result.SafetyMessage)
		r.logger.Warn("  No content was deleted")
		r.logger.Info("")
		return
	}

	r.logger.Info("  Items processed: %d", result.Total.Processed)
	r.logger.Info("  Movies: %d deleted, %d skipped, %d protected",
		result.Movies.Deleted, result.Movies.Skipped, result.Movies.Protected)
	r.logger.Info("  Shows: %d deleted, %d skipped, %d protected",
		result.Shows.Deleted, result.Shows.Skipped, result.Shows.Protected)
	r.logger.Info("")

	if result.Total.Deleted == 0 {
		r.logger.Info("ℹ️  Nothing to delete - every library item is still wanted.")
	}
}
