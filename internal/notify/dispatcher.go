// internal/notify/dispatcher.go
package notify

import (
	"context"
	"fmt"

	"signup-notifier/internal/common/config"
	"signup-notifier/internal/common/logger"
	"signup-notifier/internal/common/metrics"
	"signup-notifier/internal/mail"
	"signup-notifier/internal/models"
)

// SendState is the terminal state of one dispatch attempt.
type SendState int

const (
	// StateSuppressed: policy decided not to send. Not a failure.
	StateSuppressed SendState = iota
	// StateUnsendable: no template resolved anywhere in the cascade.
	StateUnsendable
	// StateTransmitted: the transport accepted the message.
	StateTransmitted
	// StateTransmitFailed: the transport rejected or errored.
	StateTransmitFailed
)

func (s SendState) String() string {
	switch s {
	case StateSuppressed:
		return "suppressed"
	case StateUnsendable:
		return "unsendable"
	case StateTransmitted:
		return "transmitted"
	case StateTransmitFailed:
		return "transmit_failed"
	default:
		return "unknown"
	}
}

// SendResult describes the outcome of one Send call. Transport failures
// land here as StateTransmitFailed with Detail set; the error return is
// reserved for infrastructure faults (stores unreachable) where the
// outcome of the send itself is unknown.
type SendResult struct {
	State      SendState
	Detail     string
	Recipients Recipients
}

// Dispatcher runs the full pipeline for one notification: policy gate,
// template resolution, rendering, recipient composition, extension hooks
// and transmission.
type Dispatcher struct {
	cfg       config.NotificationConfig
	resolver  *TemplateResolver
	renderer  *ContentRenderer
	composer  *RecipientComposer
	transport mail.Transport
	hooks     *Interceptors
	records   RecordSource
	logger    logger.Logger
}

func NewDispatcher(
	cfg config.NotificationConfig,
	resolver *TemplateResolver,
	renderer *ContentRenderer,
	composer *RecipientComposer,
	transport mail.Transport,
	hooks *Interceptors,
	records RecordSource,
	log logger.Logger,
) *Dispatcher {
	if hooks == nil {
		hooks = NewInterceptors()
	}
	return &Dispatcher{
		cfg:       cfg,
		resolver:  resolver,
		renderer:  renderer,
		composer:  composer,
		transport: transport,
		hooks:     hooks,
		records:   records,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

// Send runs one notification through the pipeline. sheetID and taskID may
// be zero when the originating records are gone (reschedule snapshots);
// the render context must then carry everything the template needs.
func (d *Dispatcher) Send(ctx context.Context, cat models.Category, participant models.Participant, sheetID, taskID int64, rc RenderContext) (SendResult, error) {
	if !d.cfg.CategoryEnabled(cat.String()) {
		d.logger.Debug("category disabled", map[string]interface{}{"category": cat.String()})
		return d.finish(cat, SendResult{State: StateSuppressed, Detail: "category disabled"}), nil
	}

	var (
		tmpl  models.Template
		found bool
		err   error
	)
	if cat.Overridable() {
		tmpl, found, err = d.resolver.Resolve(ctx, cat, sheetID, taskID)
	} else {
		tmpl, found, err = d.resolver.ResolveValidation(ctx, cat, rc.TemplateOverrideID)
	}
	if err != nil {
		return SendResult{}, err
	}
	if !found {
		d.logger.Warn("no template resolved", map[string]interface{}{
			"category": cat.String(), "sheetId": sheetID, "taskId": taskID,
		})
		return d.finish(cat, SendResult{State: StateUnsendable, Detail: "no template configured"}), nil
	}

	// The sheet may legitimately be gone for queued reschedule sends; an
	// absent sheet just means no chair swap and no chair CCs.
	var sheet models.Sheet
	if sheetID != 0 {
		sheet, _, err = d.records.Sheet(ctx, sheetID)
		if err != nil {
			return SendResult{}, err
		}
	}

	d.hooks.applyPreRender(&rc)

	subject, body := d.renderer.Render(tmpl, rc, d.cfg.HTMLEmails)
	subject, body = d.hooks.applyPostRender(subject, body, &rc)

	rcp, ok := d.composer.Compose(cat, participant, sheet)
	if !ok {
		return d.finish(cat, SendResult{State: StateSuppressed, Detail: "no recipients"}), nil
	}
	rcp = d.hooks.applyPreSend(rcp)
	if rcp.Empty() {
		return d.finish(cat, SendResult{State: StateSuppressed, Detail: "no recipients"}), nil
	}

	fromName, fromEmail := d.sender(tmpl)

	result := SendResult{Recipients: rcp}
	if d.cfg.IndividualEmails && !isReminder(cat) {
		result.State, result.Detail = d.sendIndividually(ctx, fromName, fromEmail, subject, body, rcp)
	} else {
		result.State, result.Detail = d.sendCombined(ctx, fromName, fromEmail, subject, body, rcp)
	}

	return d.finish(cat, result), nil
}

// sendCombined transmits one message carrying the full to/cc sets.
func (d *Dispatcher) sendCombined(ctx context.Context, fromName, fromEmail, subject, body string, rcp Recipients) (SendState, string) {
	msg := &mail.Message{
		From:     fromEmail,
		FromName: fromName,
		To:       rcp.To,
		CC:       rcp.CC,
		Subject:  subject,
		Body:     body,
		HTML:     d.cfg.HTMLEmails,
	}
	ok, err := d.transport.Send(ctx, msg)
	if err != nil {
		return StateTransmitFailed, err.Error()
	}
	if !ok {
		return StateTransmitFailed, "transport declined the message"
	}
	return StateTransmitted, ""
}

// sendIndividually transmits one copy per recipient, to and cc alike. Every
// recipient is attempted even after a failure; any failure makes the
// overall state TransmitFailed.
func (d *Dispatcher) sendIndividually(ctx context.Context, fromName, fromEmail, subject, body string, rcp Recipients) (SendState, string) {
	var failures int
	var detail string
	for _, addr := range append(append([]string{}, rcp.To...), rcp.CC...) {
		msg := &mail.Message{
			From:     fromEmail,
			FromName: fromName,
			To:       []string{addr},
			Subject:  subject,
			Body:     body,
			HTML:     d.cfg.HTMLEmails,
		}
		ok, err := d.transport.Send(ctx, msg)
		if err != nil {
			failures++
			detail = err.Error()
		} else if !ok {
			failures++
			detail = "transport declined the message"
		}
	}
	if failures > 0 {
		return StateTransmitFailed, fmt.Sprintf("%d of %d individual sends failed: %s",
			failures, len(rcp.To)+len(rcp.CC), detail)
	}
	return StateTransmitted, ""
}

// SendOperatorSummary mails a short batch report to the configured
// operator address. Runs that sent nothing stay silent. Failures are
// logged, not propagated; a missing summary must never fail a batch.
func (d *Dispatcher) SendOperatorSummary(ctx context.Context, pathway string, sent int) {
	if !d.cfg.OperatorSummary || d.cfg.OperatorEmail == "" || sent <= 0 {
		return
	}

	msg := &mail.Message{
		From:     d.cfg.FromEmail,
		FromName: d.cfg.FromName,
		To:       []string{d.cfg.OperatorEmail},
		Subject:  fmt.Sprintf("[%s] %s batch: %d notification(s) sent", d.cfg.SiteName, pathway, sent),
		Body:     fmt.Sprintf("The %s batch on %s finished and sent %d notification(s).\n", pathway, d.cfg.SiteName, sent),
	}
	if ok, err := d.transport.Send(ctx, msg); err != nil || !ok {
		fields := map[string]interface{}{"pathway": pathway}
		if err != nil {
			fields["error"] = err.Error()
		}
		d.logger.Error("operator summary send failed", fields)
	}
}

// sender picks the from identity: template override first, configured
// identity otherwise.
func (d *Dispatcher) sender(tmpl models.Template) (name, email string) {
	name, email = d.cfg.FromName, d.cfg.FromEmail
	if tmpl.FromName != "" {
		name = tmpl.FromName
	}
	if tmpl.FromEmail != "" {
		email = tmpl.FromEmail
	}
	return name, email
}

func (d *Dispatcher) finish(cat models.Category, result SendResult) SendResult {
	metrics.NotificationsSent.WithLabelValues(cat.String(), result.State.String()).Inc()
	return result
}

// isReminder reports whether cat is one of the two reminder categories,
// which always go out as a single combined message.
func isReminder(cat models.Category) bool {
	return cat == models.CategoryReminder1 || cat == models.CategoryReminder2
}
