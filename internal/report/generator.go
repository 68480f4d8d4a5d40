package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hnipps/pulsarr/pkg/models"
)

const defaultReportsDir = "reports"

// Generator handles the generation and output of delete sync reports
type Generator struct {
	dir    string
	logger Logger
}

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NewGenerator creates a new report generator writing to ./reports
func NewGenerator(logger Logger) *Generator {
	return NewGeneratorWithDir(defaultReportsDir, logger)
}

// NewGeneratorWithDir creates a report generator writing to dir
func NewGeneratorWithDir(dir string, logger Logger) *Generator {
	return &Generator{
		dir:    dir,
		logger: logger,
	}
}

// GenerateReport saves a delete sync report to disk and optionally prints it
func (g *Generator) GenerateReport(report *models.DeleteSyncReport, printToTerminal bool) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if report.Result == nil {
		return fmt.Errorf("report has no result")
	}

	// Always save report to disk
	if err := g.saveReportToDisk(report); err != nil {
		return fmt.Errorf("failed to save report to disk: %w", err)
	}

	if printToTerminal {
		g.printReportToTerminal(report)
	}

	return nil
}

// saveReportToDisk saves the report as JSON to the reports directory
func (g *Generator) saveReportToDisk(report *models.DeleteSyncReport) error {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("delete-sync-report-%s.json", timestamp)
	if report.RunType == "dry-run" {
		filename = fmt.Sprintf("delete-sync-report-dryrun-%s.json", timestamp)
	}

	path := filepath.Join(g.dir, filename)

	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	g.logger.Info("📄 Report saved to: %s", path)
	return nil
}

// printReportToTerminal prints the report in human-readable format to the terminal
func (g *Generator) printReportToTerminal(report *models.DeleteSyncReport) {
	result := report.Result

	g.logger.Info("")
	g.logger.Info("📊 DELETE SYNC REPORT")
	g.logger.Info("==========================================")
	g.logger.Info("Generated: %s", report.GeneratedAt)
	g.logger.Info("Run Type: %s", report.RunType)
	g.logger.Info("Duration: %dms", report.DurationMS)
	g.logger.Info("")

	if result.SafetyTriggered {
		g.logger.Warn("🛑 Safety triggered: %s", result.SafetyMessage)
		g.logger.Info("==========================================")
		return
	}

	g.logger.Info("Processed: %d (deleted %d, skipped %d, protected %d)",
		result.Total.Processed, result.Total.Deleted, result.Total.Skipped, result.Total.Protected)

	if result.Total.Deleted == 0 {
		g.logger.Info("🎉 Nothing was deleted!")
		return
	}

	g.printItems("Movies", result.Movies.Items)
	g.printItems("Shows", result.Shows.Items)
	g.logger.Info("==========================================")
}

func (g *Generator) printItems(heading string, items []models.DeletedItem) {
	if len(items) == 0 {
		return
	}
	g.logger.Info("")
	g.logger.Info("%s:", heading)
	for i, item := range items {
		g.logger.Info("%d. %s", i+1, item.Title)
		g.logger.Info("   GUID: %s", item.GUID)
		g.logger.Info("   Instance: %d", item.Instance)
	}
}
