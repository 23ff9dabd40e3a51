// Package notify sends pipeline lifecycle emails to the active admin users.
// In dry-run mode nothing leaves the process: the message is logged and
// recorded in the event log exactly as a real send would be.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/wneessen/go-mail"

	"salescli/internal/auth"
	"salescli/internal/config"
	apperrors "salescli/internal/errors"
	"salescli/internal/events"
)

// systemUser attributes notification events that no acting user triggered.
const systemUser = "system"

const dryRunSubjectPrefix = "[DRY RUN] "
const dryRunFooter = "\n\nNOTE: This is a dry run. No email was actually sent."

// Notifier sends lifecycle emails and records the outcome in the event log.
type Notifier struct {
	cfg    config.NotifyConfig
	dir    *auth.Directory
	events *events.Log
	logger *slog.Logger
}

// NewNotifier creates a notifier. Recipients are resolved from the user
// directory at send time, so directory changes between sends are picked up.
func NewNotifier(cfg config.NotifyConfig, dir *auth.Directory, eventLog *events.Log, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{cfg: cfg, dir: dir, events: eventLog, logger: logger}
}

// PipelineStarted announces that a run has begun.
func (n *Notifier) PipelineStarted(ctx context.Context) error {
	return n.send(ctx, "Pipeline Started", "The data pipeline has begun execution.", nil)
}

// DataCleaned announces that the cleaned dataset was written, attaching it
// when it exists.
func (n *Notifier) DataCleaned(ctx context.Context, cleanedFile string) error {
	body := fmt.Sprintf("Cleaned data is ready: %s", cleanedFile)
	return n.send(ctx, "Data Cleaned", body, existingFiles(cleanedFile))
}

// PipelineCompleted announces a successful run, attaching the artifacts that
// exist.
func (n *Notifier) PipelineCompleted(ctx context.Context, cleanedFile, reportFile string) error {
	body := fmt.Sprintf(
		"The data pipeline has completed successfully.\n\nCleaned file: %s\nReport file: %s",
		cleanedFile, reportFile)
	return n.send(ctx, "Pipeline Completed", body, existingFiles(cleanedFile, reportFile))
}

// PipelineFailed announces a failed run.
func (n *Notifier) PipelineFailed(ctx context.Context, errMsg string) error {
	body := fmt.Sprintf("The data pipeline encountered an error:\n%s", errMsg)
	return n.send(ctx, "Pipeline Failed", body, nil)
}

// send delivers one email to the active admins, or records what would have
// been sent in dry-run mode. A delivery failure is recorded as an
// EMAIL_FAILED event and swallowed; only configuration problems surface as
// errors, and the caller decides whether those are fatal.
func (n *Notifier) send(ctx context.Context, subject, body string, attachments []string) error {
	if !n.cfg.Enabled {
		n.logger.DebugContext(ctx, "notifications disabled, skipping email",
			slog.String("subject", subject))
		return nil
	}

	recipients := n.dir.RecipientsByRole(auth.RoleAdmin)
	names := baseNames(attachments)

	if n.cfg.DryRun {
		prefixed := dryRunSubjectPrefix + subject
		n.logger.InfoContext(ctx, "dry run, email not sent",
			slog.Any("recipients", recipients),
			slog.String("subject", prefixed),
			slog.String("body", body+dryRunFooter))
		_, err := n.events.Emit(events.TypeEmailSent, systemUser, events.LevelInfo, map[string]interface{}{
			"recipients":  recipients,
			"dry_run":     true,
			"subject":     prefixed,
			"attachments": names,
		})
		return err
	}

	if err := n.validateSMTP(); err != nil {
		return err
	}
	if len(recipients) == 0 {
		n.logger.InfoContext(ctx, "no recipients found, skipping email",
			slog.String("subject", subject))
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(n.sender()); err != nil {
		return apperrors.NewNotifyError("invalid sender address", err)
	}
	if err := msg.To(recipients...); err != nil {
		return apperrors.NewNotifyError("invalid recipient address", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		msg.AttachFile(path)
	}

	client, err := mail.NewClient(n.cfg.SMTPHost,
		mail.WithPort(n.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return apperrors.NewNotifyError("failed to create mail client", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		n.logger.WarnContext(ctx, "failed to send email",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
		_, emitErr := n.events.Emit(events.TypeEmailFailed, systemUser, events.LevelWarning, map[string]interface{}{
			"error":       err.Error(),
			"recipients":  recipients,
			"subject":     subject,
			"attachments": names,
		})
		return emitErr
	}

	n.logger.InfoContext(ctx, "email sent",
		slog.Int("recipients", len(recipients)),
		slog.String("subject", subject))
	_, err = n.events.Emit(events.TypeEmailSent, systemUser, events.LevelInfo, map[string]interface{}{
		"recipients":  recipients,
		"subject":     subject,
		"attachments": names,
	})
	return err
}

// validateSMTP checks the live-mode credentials. The placeholder host from
// sample configurations counts as unconfigured.
func (n *Notifier) validateSMTP() error {
	var details []string
	if n.cfg.SMTPHost == "" {
		details = append(details, "notify.smtp_host")
	}
	if n.cfg.SMTPPort == 0 {
		details = append(details, "notify.smtp_port")
	}
	if n.cfg.Username == "" {
		details = append(details, "notify.smtp_user")
	}
	if n.cfg.Password == "" {
		details = append(details, "notify.smtp_pass")
	}
	if n.cfg.SMTPHost == "smtp.example.com" {
		details = append(details, "notify.smtp_host default")
	}
	if len(details) > 0 {
		return apperrors.NewNotifyError(
			"SMTP configuration incomplete, missing or default values: "+strings.Join(details, ", "), nil)
	}
	return nil
}

func (n *Notifier) sender() string {
	if n.cfg.Sender != "" {
		return n.cfg.Sender
	}
	if n.cfg.Username != "" {
		return n.cfg.Username
	}
	return "no-reply@example.com"
}

// existingFiles keeps the paths that exist on disk.
func existingFiles(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func baseNames(paths []string) []string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	return names
}
