// internal/mail/transport.go
package mail

import "context"

// Message is one outbound email. CC and BCC ride as headers on a single
// send; per-recipient fan-out happens above this layer.
type Message struct {
	From     string
	FromName string
	To       []string
	CC       []string
	BCC      []string
	ReplyTo  string
	Subject  string
	Body     string
	HTML     bool
	Headers  map[string]string
}

// Transport is the injected mail-send primitive. The boolean is the only
// delivery signal this engine ever assumes; a false/error result is a
// transport failure, never retried at this layer.
type Transport interface {
	Send(ctx context.Context, msg *Message) (bool, error)
}

// Recipients returns every address the message targets, primaries first.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.CC)+len(m.BCC))
	out = append(out, m.To...)
	out = append(out, m.CC...)
	out = append(out, m.BCC...)
	return out
}
