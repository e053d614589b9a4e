package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"

	"weddingrsvp/internal/config"
)

// SESMailer delivers mail through Amazon SES v2.
type SESMailer struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
}

func NewSES(cfg *config.Config) (*SESMailer, error) {
	if cfg.EmailFrom == "" {
		return nil, fmt.Errorf("ses provider requires EMAIL_FROM")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info().Str("from", cfg.EmailFrom).Str("region", cfg.AWSRegion).Msg("SES mailer enabled")

	return &SESMailer{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: cfg.EmailFrom,
		fromName:  cfg.EmailFromName,
	}, nil
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	subject, textBody, htmlBody, err := render(msg)
	if err != nil {
		return err
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress(m.fromName, m.fromEmail)),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", msg.Kind, err)
	}

	evt := log.Info().Str("kind", string(msg.Kind)).Str("to", msg.To)
	if result.MessageId != nil {
		evt = evt.Str("message_id", *result.MessageId)
	}
	evt.Msg("email sent")
	return nil
}
