package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hnipps/pulsarr/internal/arr"
	"github.com/hnipps/pulsarr/internal/config"
	"github.com/hnipps/pulsarr/pkg/models"
)

const (
	defaultMaxRetries = 3
	maxListedItems    = 10
)

// Dispatcher sends delete sync summaries to the channels selected by the notify mode
type Dispatcher struct {
	mode           string
	onlyOnDeletion bool
	discordURL     string
	appriseURL     string
	client         *http.Client
	maxRetries     uint64
	newBackOff     func() backoff.BackOff
	logger         arr.Logger
}

// NewDispatcher creates a dispatcher from the notify configuration
func NewDispatcher(cfg config.NotifyConfig, timeout time.Duration, logger arr.Logger) *Dispatcher {
	return &Dispatcher{
		mode:           cfg.Mode,
		onlyOnDeletion: cfg.OnlyOnDeletion,
		discordURL:     cfg.DiscordWebhookURL,
		appriseURL:     cfg.AppriseURL,
		client:         &http.Client{Timeout: timeout},
		maxRetries:     defaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
		logger: logger,
	}
}

func (d *Dispatcher) sendsDiscord() bool {
	switch d.mode {
	case config.NotifyAll, config.NotifyBoth, config.NotifyDiscordOnly, config.NotifyWebhookOnly:
		return d.discordURL != ""
	}
	return false
}

func (d *Dispatcher) sendsApprise() bool {
	switch d.mode {
	case config.NotifyAll, config.NotifyBoth, config.NotifyAppriseOnly:
		return d.appriseURL != ""
	}
	return false
}

// NotifyDeleteSync delivers the run summary. Every selected channel is
// attempted; the joined error reports each failed one.
func (d *Dispatcher) NotifyDeleteSync(ctx context.Context, result *models.DeletionResult, dryRun bool) error {
	if result == nil {
		return errors.New("notify: result is nil")
	}
	if d.mode == config.NotifyNone || d.mode == "" {
		return nil
	}
	if d.onlyOnDeletion && !result.SafetyTriggered && result.Total.Deleted == 0 {
		d.logger.Debug("Skipping delete sync notification: nothing was deleted")
		return nil
	}

	summary := buildSummary(result, dryRun)

	var errs []error
	if d.sendsDiscord() {
		if err := d.deliver(ctx, "discord", d.discordURL, discordPayload(summary)); err != nil {
			errs = append(errs, err)
		}
	}
	if d.sendsApprise() {
		if err := d.deliver(ctx, "apprise", d.appriseURL, apprisePayload(summary)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deliver posts payload to url, retrying network failures, 429 and 5xx responses
func (d *Dispatcher) deliver(ctx context.Context, channel, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal payload: %w", channel, err)
	}

	attempt := 0
	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		return nil
	}
	notifyRetry := func(err error, wait time.Duration) {
		d.logger.Warn("%s notification attempt %d failed (%v), retrying in %s", channel, attempt, err, wait)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(d.newBackOff(), d.maxRetries), ctx)
	if err := backoff.RetryNotify(operation, policy, notifyRetry); err != nil {
		return fmt.Errorf("%s notification failed after %d attempt(s): %w", channel, attempt, err)
	}

	d.logger.Info("📣 Delete sync summary sent to %s", channel)
	return nil
}

// summary is the channel-neutral content of one notification
type summary struct {
	Title       string
	Description string
	Level       string // info, success or warning
	Fields      []summaryField
}

type summaryField struct {
	Name  string
	Value string
}

func buildSummary(result *models.DeletionResult, dryRun bool) summary {
	if result.SafetyTriggered {
		return summary{
			Title:       "Delete Sync Safety Triggered",
			Description: result.SafetyMessage + "\nNo content was deleted.",
			Level:       "warning",
		}
	}

	title := "Delete Sync Complete"
	verb := "deleted"
	if dryRun {
		title = "Delete Sync Simulation"
		verb = "would be deleted"
	}

	s := summary{
		Title: title,
		Description: fmt.Sprintf("%d item(s) %s, %d skipped, %d protected (%d processed)",
			result.Total.Deleted, verb, result.Total.Skipped, result.Total.Protected, result.Total.Processed),
		Level: "success",
	}
	if result.Total.Deleted == 0 {
		s.Level = "info"
	}
	if len(result.Movies.Items) > 0 {
		s.Fields = append(s.Fields, summaryField{Name: fmt.Sprintf("Movies (%d)", result.Movies.Deleted), Value: listTitles(result.Movies.Items)})
	}
	if len(result.Shows.Items) > 0 {
		s.Fields = append(s.Fields, summaryField{Name: fmt.Sprintf("Shows (%d)", result.Shows.Deleted), Value: listTitles(result.Shows.Items)})
	}
	return s
}

func listTitles(items []models.DeletedItem) string {
	var b strings.Builder
	for i, item := range items {
		if i == maxListedItems {
			fmt.Fprintf(&b, "…and %d more", len(items)-maxListedItems)
			break
		}
		b.WriteString("• " + item.Title + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Discord webhook structures
type discordWebhookPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func discordPayload(s summary) discordWebhookPayload {
	embed := discordEmbed{
		Title:       s.Title,
		Description: s.Description,
		Color:       levelColor(s.Level),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	for _, f := range s.Fields {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: f.Name, Value: f.Value})
	}
	return discordWebhookPayload{Username: "Pulsarr", Embeds: []discordEmbed{embed}}
}

func levelColor(level string) int {
	switch level {
	case "warning":
		return 0xFFA500
	case "success":
		return 0x2ECC71
	default:
		return 0x3498DB
	}
}

// appriseNotification is the body of an Apprise API /notify call
type appriseNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Type  string `json:"type"`
}

func apprisePayload(s summary) appriseNotification {
	body := s.Description
	for _, f := range s.Fields {
		body += "\n\n" + f.Name + ":\n" + f.Value
	}
	return appriseNotification{Title: s.Title, Body: body, Type: s.Level}
}
