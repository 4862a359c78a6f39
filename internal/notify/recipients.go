// internal/notify/recipients.go
package notify

import (
	"regexp"
	"strings"

	"signup-notifier/internal/common/config"
	"signup-notifier/internal/common/logger"
	"signup-notifier/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Recipients is the composed to/cc address sets for one logical send.
type Recipients struct {
	To []string
	CC []string
}

// Empty reports whether there is nobody to send to.
func (r Recipients) Empty() bool { return len(r.To) == 0 }

// RecipientComposer builds the to/cc sets for a send, applying the chair
// delivery swap, the CC policies and deduplication. Invalid addresses are
// dropped silently at every step.
type RecipientComposer struct {
	cfg    config.NotificationConfig
	extra  []string
	logger logger.Logger
}

func NewRecipientComposer(cfg config.NotificationConfig, log logger.Logger) *RecipientComposer {
	return &RecipientComposer{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "recipient-composer"}),
	}
}

// AddExtensionCC registers extension-contributed CC addresses merged into
// every composed CC set.
func (c *RecipientComposer) AddExtensionCC(addrs ...string) {
	c.extra = append(c.extra, addrs...)
}

// Compose returns the recipient sets for one send. ok is false for the
// legitimate "nothing to send" outcome: a chair-only send with no chair
// addresses configured, or a primary recipient with no usable address.
func (c *RecipientComposer) Compose(cat models.Category, participant models.Participant, sheet models.Sheet) (Recipients, bool) {
	chairPrimary := (cat == models.CategoryClear && sheet.ClearToChair) ||
		(cat == models.CategoryConfirmation && sheet.ConfirmToChair)

	var to []string
	if chairPrimary {
		to = validAddresses(sheet.ChairEmails)
		if len(to) == 0 {
			c.logger.Info("chair-only send with no chair addresses", map[string]interface{}{
				"category": cat.String(), "sheetId": sheet.ID,
			})
			return Recipients{}, false
		}
	} else {
		if !isValidEmail(participant.Email) {
			c.logger.Warn("participant has no usable address", map[string]interface{}{
				"category": cat.String(), "participantId": participant.ID,
			})
			return Recipients{}, false
		}
		to = []string{strings.TrimSpace(participant.Email)}
	}

	var cc []string

	// Chair CC policy: "always" copies chairs on every send, "never" on
	// none, "default" only on the sends chairs are the default audience
	// for (confirmation and clear) when they are not already primary.
	if !chairPrimary {
		switch c.cfg.CCChairs {
		case config.CCChairsAlways:
			cc = append(cc, sheet.ChairEmails...)
		case config.CCChairsDefault:
			if cat == models.CategoryConfirmation || cat == models.CategoryClear {
				cc = append(cc, sheet.ChairEmails...)
			}
		}
	}

	// The validation-send CC suppression is narrower than the chair policy
	// and evaluated independently of it.
	if c.cfg.GlobalCC != "" {
		suppress := cat == models.CategorySignupValidation && c.cfg.NoCCValidation
		if !suppress {
			cc = append(cc, c.cfg.GlobalCC)
		}
	}

	cc = append(cc, c.extra...)
	cc = dedupeAddresses(validAddresses(cc), to)

	return Recipients{To: to, CC: cc}, true
}

// validAddresses trims and keeps only well-formed addresses.
func validAddresses(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if isValidEmail(a) {
			out = append(out, a)
		}
	}
	return out
}

// dedupeAddresses removes case-insensitive duplicates and anything already
// present in the primary set.
func dedupeAddresses(addrs, primary []string) []string {
	seen := make(map[string]bool, len(addrs)+len(primary))
	for _, p := range primary {
		seen[strings.ToLower(p)] = true
	}

	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		key := strings.ToLower(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func isValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}
