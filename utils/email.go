// utils/email.go
package utils

import (
	"context"
	"fmt"
	"strconv"

	"go-bakery/models"

	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Template variables every provider reads to address the message.
const (
	VarToEmail = "to_email"
	VarToName  = "to_name"
)

const defaultSendGridHost = "https://api.sendgrid.com"

// EmailSender sends a templated email through the named mail service.
type EmailSender interface {
	Send(ctx context.Context, serviceID, templateID string, vars map[string]string) error
}

// TemplateProvider delivers one templated message through a concrete API.
type TemplateProvider interface {
	SendTemplate(ctx context.Context, templateID string, vars map[string]string) error
}

// EmailService routes templated emails to the provider registered for a service id
type EmailService struct {
	providers map[string]TemplateProvider
	logger    *zap.Logger
}

// NewEmailService returns an EmailService without providers
func NewEmailService(logger *zap.Logger) *EmailService {
	return &EmailService{
		providers: make(map[string]TemplateProvider),
		logger:    logger,
	}
}

// Register binds a provider to serviceID
func (es *EmailService) Register(serviceID string, p TemplateProvider) {
	es.providers[serviceID] = p
}

// Send delivers a templated email. Failures are returned, never panicked.
func (es *EmailService) Send(ctx context.Context, serviceID, templateID string, vars map[string]string) error {
	p, ok := es.providers[serviceID]
	if !ok {
		return fmt.Errorf("%w: %q", models.ErrUnknownEmailService, serviceID)
	}
	if vars[VarToEmail] == "" {
		return models.NewValidationError(VarToEmail, "recipient is required")
	}
	if templateID == "" {
		return models.NewValidationError("template", "template id is required")
	}

	if err := p.SendTemplate(ctx, templateID, vars); err != nil {
		es.logger.Error("failed to send email",
			zap.String("service", serviceID),
			zap.String("template", templateID),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	es.logger.Debug("email sent",
		zap.String("service", serviceID),
		zap.String("template", templateID))
	return nil
}

// SendGridProvider sends dynamic-template emails through the SendGrid v3 API
type SendGridProvider struct {
	apiKey   string
	host     string
	fromAddr string
	fromName string
}

// NewSendGridProvider creates a provider; an empty host selects the public API
func NewSendGridProvider(apiKey, host, fromAddr, fromName string) *SendGridProvider {
	if host == "" {
		host = defaultSendGridHost
	}
	return &SendGridProvider{apiKey: apiKey, host: host, fromAddr: fromAddr, fromName: fromName}
}

func (p *SendGridProvider) SendTemplate(ctx context.Context, templateID string, vars map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(p.fromName, p.fromAddr))
	m.SetTemplateID(templateID)

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(vars[VarToName], vars[VarToEmail]))
	for k, v := range vars {
		personalization.SetDynamicTemplateData(k, v)
	}
	m.AddPersonalizations(personalization)

	request := sendgrid.GetRequest(p.apiKey, "/v3/mail/send", p.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(m)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return err
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid responded %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// PostmarkProvider sends templated emails through Postmark
type PostmarkProvider struct {
	client *postmark.Client
	from   string
}

// NewPostmarkProvider creates a provider for the given server token
func NewPostmarkProvider(serverToken, from string) *PostmarkProvider {
	return &PostmarkProvider{
		client: postmark.NewClient(serverToken, ""),
		from:   from,
	}
}

func (p *PostmarkProvider) SendTemplate(ctx context.Context, templateID string, vars map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id, err := strconv.ParseInt(templateID, 10, 64)
	if err != nil {
		return fmt.Errorf("postmark template id %q: %w", templateID, err)
	}

	model := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		model[k] = v
	}

	_, err = p.client.SendTemplatedEmail(postmark.TemplatedEmail{
		TemplateId:    id,
		TemplateModel: model,
		From:          p.from,
		To:            vars[VarToEmail],
	})
	return err
}
