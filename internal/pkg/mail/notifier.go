package mail

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/orbitcommerce/auth-core/internal/config"
	"go.uber.org/zap"
)

// Kind selects the notification template.
type Kind string

const (
	KindWelcome       Kind = "welcome"
	KindActivation    Kind = "activation"
	KindPasswordReset Kind = "password_reset"
)

// Recipient is the slice of an identity a notification needs. Key holds
// the activation or reset key when the kind uses one.
type Recipient struct {
	Username string
	Email    string
	Key      string
}

var templates = map[Kind]*template.Template{
	KindWelcome: template.Must(template.New("welcome").Parse(
		`<p>Hi {{.Username}},</p><p>Welcome aboard! Your account is ready to use.</p>`)),
	KindActivation: template.Must(template.New("activation").Parse(
		`<p>Hi {{.Username}},</p><p>Activate your account by following ` +
			`<a href="{{.SiteURL}}/activate?key={{.Key}}">this link</a>.</p>`)),
	KindPasswordReset: template.Must(template.New("reset").Parse(
		`<p>Hi {{.Username}},</p><p>Reset your password by following ` +
			`<a href="{{.SiteURL}}/reset-password?key={{.Key}}">this link</a>. ` +
			`If you did not request this, ignore this message.</p>`)),
}

var subjects = map[Kind]string{
	KindWelcome:       "Welcome!",
	KindActivation:    "Activate your account",
	KindPasswordReset: "Password reset request",
}

// Notifier sends the auth lifecycle notifications. All sends are
// fire-and-forget: failures are logged and never reach the caller.
type Notifier struct {
	sender  *Sender
	siteURL string
	logger  *zap.Logger
}

func NewNotifier(cfg config.MailConfig, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:  NewSender(cfg),
		siteURL: strings.TrimRight(cfg.SiteURL, "/"),
		logger:  logger,
	}
}

// Dispatch renders and sends the notification on a background goroutine.
func (n *Notifier) Dispatch(kind Kind, to Recipient) {
	go func() {
		if err := n.send(kind, to); err != nil {
			n.logger.Warn("notification send failed",
				zap.String("kind", string(kind)),
				zap.String("email", to.Email),
				zap.Error(err))
		}
	}()
}

func (n *Notifier) send(kind Kind, to Recipient) error {
	tmpl, ok := templates[kind]
	if !ok {
		return fmt.Errorf("unknown notification kind %q", kind)
	}

	var body strings.Builder
	err := tmpl.Execute(&body, struct {
		Username string
		Key      string
		SiteURL  string
	}{Username: to.Username, Key: to.Key, SiteURL: n.siteURL})
	if err != nil {
		return err
	}

	return n.sender.Send(Message{
		To:      []string{to.Email},
		Subject: subjects[kind],
		HTML:    body.String(),
	})
}
