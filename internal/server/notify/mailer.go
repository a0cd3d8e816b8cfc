package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"time"

	"github.com/wneessen/go-mail"
)

// DeliverFunc hands a rendered message to a transport.
type DeliverFunc func(ctx context.Context, msg *Message) error

// Mailer renders notifications and passes them to a transport.
type Mailer struct {
	renderer *Renderer
	deliver  DeliverFunc
}

var _ Sender = (*Mailer)(nil)

// NewMailer creates a Mailer with a custom transport.
func NewMailer(mainURL string, deliver DeliverFunc) *Mailer {
	return &Mailer{renderer: NewRenderer(mainURL), deliver: deliver}
}

// SMTPConfig содержит параметры SMTP сервера
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	MainURL  string
	// Timeout bounds one delivery when the caller's context has no earlier deadline.
	Timeout time.Duration
}

const defaultSMTPTimeout = 15 * time.Second

// NewSMTPMailer delivers multipart (text + HTML) messages over SMTP,
// upgrading to STARTTLS when the server offers it. PLAIN auth is used when
// a username is set. A delivery is abandoned as soon as ctx is done.
func NewSMTPMailer(cfg SMTPConfig) (*Mailer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}

	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	// fail on a bad host or port at startup, not on the first signup
	if _, err := mail.NewClient(cfg.Host, opts...); err != nil {
		return nil, fmt.Errorf("invalid smtp config: %w", err)
	}

	return NewMailer(cfg.MainURL, func(ctx context.Context, msg *Message) error {
		m, err := buildMsg(cfg.From, msg)
		if err != nil {
			return err
		}

		var stops []func() bool
		defer func() {
			for _, stop := range stops {
				stop()
			}
		}()

		client, err := mail.NewClient(cfg.Host, append(slices.Clip(opts),
			mail.WithDialContextFunc(func(dctx context.Context, network, addr string) (net.Conn, error) {
				conn, err := (&net.Dialer{}).DialContext(dctx, network, addr)
				if err != nil {
					return nil, err
				}
				// unblock reads of a stalled server once the request is gone
				stops = append(stops, context.AfterFunc(ctx, func() {
					_ = conn.SetDeadline(time.Now())
				}))
				return conn, nil
			}),
		)...)
		if err != nil {
			return fmt.Errorf("failed to create smtp client: %w", err)
		}

		if err := client.DialAndSendWithContext(ctx, m); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%w: %v", ctxErr, err)
			}
			return err
		}
		return nil
	}), nil
}

// NewLogMailer only logs messages. Used in development.
func NewLogMailer(logger *slog.Logger, mainURL string) *Mailer {
	return NewMailer(mainURL, func(ctx context.Context, msg *Message) error {
		logger.InfoContext(ctx, "email",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject),
			slog.String("text", msg.Text),
		)
		return nil
	})
}

// SendWelcome implements Sender.
func (m *Mailer) SendWelcome(ctx context.Context, to Recipient) error {
	return m.send(ctx, TemplateWelcome, SubjectWelcome, to, "", "")
}

// SendPasswordReset implements Sender.
func (m *Mailer) SendPasswordReset(ctx context.Context, to Recipient, token string) error {
	return m.send(ctx, TemplatePasswordReset, SubjectReset, to, token, "")
}

// SendWelcomeFromRoot implements Sender.
func (m *Mailer) SendWelcomeFromRoot(ctx context.Context, to Recipient, path string) error {
	return m.send(ctx, TemplateWelcomeFromRoot, SubjectWelcome, to, path, "")
}

// SendCustomMessage implements Sender.
func (m *Mailer) SendCustomMessage(ctx context.Context, to Recipient, msg, path string) error {
	return m.send(ctx, TemplateCustom, SubjectCustom, to, path, msg)
}

func (m *Mailer) send(ctx context.Context, name, subject string, to Recipient, path, text string) error {
	msg, err := m.renderer.Render(name, subject, to, path, text)
	if err != nil {
		return err
	}
	if err := m.deliver(ctx, msg); err != nil {
		return fmt.Errorf("failed to deliver %s email: %w", name, err)
	}
	return nil
}

func buildMsg(from string, msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(mainTitle, from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}
