package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/goldenfragrance/shop/internal/config"
	"github.com/goldenfragrance/shop/internal/models"
)

// Mailer sends transactional email through AWS SES.
type Mailer struct {
	client      *ses.Client
	senderEmail string
	adminEmail  string
	log         *slog.Logger
}

func NewMailer(cfg *config.Config, log *slog.Logger) (*Mailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWS_REGION),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWS_ACCESS_KEY_ID, cfg.AWS_SECRET_ACCESS_KEY, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: load AWS config: %w", err)
	}

	if cfg.SENDER_EMAIL == "" {
		return nil, fmt.Errorf("notify: sender email is not configured")
	}

	return &Mailer{
		client:      ses.NewFromConfig(awsCfg),
		senderEmail: cfg.SENDER_EMAIL,
		adminEmail:  cfg.ADMIN_EMAIL,
		log:         log,
	}, nil
}

func (m *Mailer) OrderStatusChanged(ctx context.Context, order *models.Order, oldStatus string) error {
	subject := fmt.Sprintf("Order Update - #%s", order.OrderNumber)

	trackingLine := ""
	trackingHTML := ""
	if order.TrackingNumber != "" {
		trackingLine = fmt.Sprintf("\nTracking: %s %s\n%s\n",
			order.TrackingCompany, order.TrackingNumber, order.TrackingURL)
		trackingHTML = fmt.Sprintf("<p>Tracking: %s %s<br/><a href=%q>%s</a></p>",
			order.TrackingCompany, order.TrackingNumber, order.TrackingURL, order.TrackingURL)
	}

	bodyText := fmt.Sprintf(
		"Dear %s,\n\nYour order #%s is now %s (was %s).\n\n"+
			"Total: %d Kč\n%s\nBest regards,\nGolden Fragrance",
		order.FullName, order.OrderNumber, order.Status, oldStatus,
		order.FinalTotal(), trackingLine)

	bodyHTML := fmt.Sprintf(`
        <html>
        <body>
            <p>Dear %s,</p>
            <p>Your order <strong>#%s</strong> is now <strong>%s</strong> (was %s).</p>
            <p>Total: %d Kč</p>
            %s
            <p>Best regards,<br/>Golden Fragrance</p>
        </body>
        </html>`,
		order.FullName, order.OrderNumber, order.Status, oldStatus,
		order.FinalTotal(), trackingHTML)

	return m.send(ctx, order.Email, subject, bodyText, bodyHTML)
}

func (m *Mailer) NewOrderAlert(ctx context.Context, order *models.Order) error {
	if m.adminEmail == "" {
		return fmt.Errorf("notify: admin email is not configured")
	}

	subject := fmt.Sprintf("New Pending Order #%s", order.OrderNumber)
	bodyText := fmt.Sprintf(
		"A new order has been placed and is pending.\n\n"+
			"Order Number: %s\nCustomer: %s\nEmail: %s\n"+
			"Total Amount: %d Kč\nCreated At: %s\nStatus: %s",
		order.OrderNumber, order.FullName, order.Email,
		order.FinalTotal(), order.CreatedAt.Format("2006-01-02 15:04"), order.Status)

	return m.send(ctx, m.adminEmail, subject, bodyText, "")
}

func (m *Mailer) send(ctx context.Context, recipient, subject, bodyText, bodyHTML string) error {
	if recipient == "" {
		return fmt.Errorf("notify: recipient email is empty")
	}

	body := &types.Body{
		Text: &types.Content{
			Charset: aws.String("UTF-8"),
			Data:    aws.String(bodyText),
		},
	}
	if bodyHTML != "" {
		body.Html = &types.Content{
			Charset: aws.String("UTF-8"),
			Data:    aws.String(bodyHTML),
		}
	}

	input := &ses.SendEmailInput{
		Source: aws.String(m.senderEmail),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
			Body: body,
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("notify: send email to %s: %w", recipient, err)
	}

	m.log.Info("email_sent", "recipient", recipient, "subject", subject)
	return nil
}
