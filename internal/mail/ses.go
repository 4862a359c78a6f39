// internal/mail/ses.go
package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	apperrors "signup-notifier/internal/common/errors"
	"signup-notifier/internal/common/logger"
)

// SESAPI is the slice of the SES client this transport uses, kept as an
// interface for mocking.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESTransport sends through AWS SES.
type SESTransport struct {
	client SESAPI
	logger logger.Logger
}

func NewSESTransport(ctx context.Context, region string, log logger.Logger) (*SESTransport, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SESTransport{
		client: ses.NewFromConfig(cfg),
		logger: log.WithFields(map[string]interface{}{"transport": "ses"}),
	}, nil
}

// NewSESTransportWithClient wires a pre-built client, used by tests.
func NewSESTransportWithClient(client SESAPI, log logger.Logger) *SESTransport {
	return &SESTransport{
		client: client,
		logger: log.WithFields(map[string]interface{}{"transport": "ses"}),
	}
}

func (t *SESTransport) Send(ctx context.Context, msg *Message) (bool, error) {
	source := msg.From
	if msg.FromName != "" {
		source = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}

	body := &types.Body{}
	if msg.HTML {
		body.Html = &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")}
	} else {
		body.Text = &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")}
	}

	input := &ses.SendEmailInput{
		Source: aws.String(source),
		Destination: &types.Destination{
			ToAddresses:  msg.To,
			CcAddresses:  msg.CC,
			BccAddresses: msg.BCC,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		t.logger.Error("SES send failed", map[string]interface{}{
			"to":    msg.To,
			"error": err.Error(),
		})
		return false, apperrors.NewTransportFailedError("ses", err)
	}

	t.logger.Info("email sent", map[string]interface{}{
		"to":        msg.To,
		"messageId": aws.ToString(out.MessageId),
	})
	return true, nil
}
