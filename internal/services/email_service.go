package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"

	"github.com/BradenHooton/gatehouse/internal/models"
	pkglogger "github.com/BradenHooton/gatehouse/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailSender delivers verification links. Callers treat failures as soft.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, account *models.Account, token string) error
}

// SESAPI is the subset of the SES client used for sending
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESEmailSender sends verification emails through AWS SES
type SESEmailSender struct {
	client      SESAPI
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewSESEmailSender loads the default AWS credential chain for region
func NewSESEmailSender(ctx context.Context, region, fromAddress, baseURL string, logger *slog.Logger) (*SESEmailSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESEmailSenderWithClient(ses.NewFromConfig(cfg), fromAddress, baseURL, logger), nil
}

func NewSESEmailSenderWithClient(client SESAPI, fromAddress, baseURL string, logger *slog.Logger) *SESEmailSender {
	return &SESEmailSender{
		client:      client,
		fromAddress: fromAddress,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		logger:      logger,
	}
}

func (s *SESEmailSender) SendVerificationEmail(ctx context.Context, account *models.Account, token string) error {
	link := verificationLink(s.baseURL, token)
	greeting := "Welcome!"
	if account.FirstName != "" {
		greeting = fmt.Sprintf("Welcome, %s!", account.FirstName)
	}

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>Confirm your email address</h1>
    <p>%s</p>
    <p>Confirm your address to finish creating your account:</p>
    <p><a href="%s" style="display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Confirm email</a></p>
    <p>Or paste this link into your browser:<br><code>%s</code></p>
    <p>The link expires in 24 hours. If you did not sign up, ignore this message.</p>
  </div>
</body>
</html>
`, html.EscapeString(greeting), html.EscapeString(link), html.EscapeString(link))

	textBody := fmt.Sprintf(`Confirm your email address

%s

Confirm your address to finish creating your account:
%s

The link expires in 24 hours. If you did not sign up, ignore this message.
`, greeting, link)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{account.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String("Confirm your email address")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	s.logger.Info("verification email sent",
		slog.String("user_id", account.ID),
		slog.String("email", pkglogger.SanitizedEmail(account.Email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogEmailSender writes the verification link to the log instead of sending
// mail. It is meant for local development.
type LogEmailSender struct {
	baseURL string
	logger  *slog.Logger
}

func NewLogEmailSender(baseURL string, logger *slog.Logger) *LogEmailSender {
	return &LogEmailSender{baseURL: strings.TrimSuffix(baseURL, "/"), logger: logger}
}

func (s *LogEmailSender) SendVerificationEmail(ctx context.Context, account *models.Account, token string) error {
	s.logger.Info("verification email (not sent)",
		slog.String("user_id", account.ID),
		slog.String("email", pkglogger.SanitizedEmail(account.Email)),
		slog.String("link", verificationLink(s.baseURL, token)))
	return nil
}

func verificationLink(baseURL, token string) string {
	return baseURL + "/verify-email?token=" + url.QueryEscape(token)
}
