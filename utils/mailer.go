package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
)

type EmailData struct {
	Subject  string
	To       []string
	CC       []string
	Template string
	Data     interface{}
}

var emailTemplates = map[string]*template.Template{
	"team_status": template.Must(template.New("team_status").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .status { font-size: 20px; font-weight: bold; margin: 20px 0; text-align: center; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>{{.TeamName}}</h2>
    </div>

    <div class="content">
        <p>Hola {{.RepresentativeName}},</p>
        <p>El estado de la inscripción de tu equipo ha cambiado / Your team registration status has changed:</p>

        <div class="status">{{.Status}}</div>
    </div>

    <div class="footer">
        <p>© {{.Year}} Motoreg</p>
    </div>
</body>
</html>`)),
}

// Mailer sends templated HTML mail over SMTP.
type Mailer struct {
	dialer    *gomail.Dialer
	fromName  string
	fromEmail string
}

func NewMailer(host string, port int, username, password, fromName, fromEmail string) *Mailer {
	return &Mailer{
		dialer:    gomail.NewDialer(host, port, username, password),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

// RenderEmail executes a named template. Template data gets Subject and Year
// when it is a map.
func RenderEmail(name, subject string, data interface{}) (string, error) {
	tmpl, ok := emailTemplates[name]
	if !ok {
		return "", fmt.Errorf("template '%s' not found", name)
	}
	if m, ok := data.(map[string]interface{}); ok {
		m["Subject"] = subject
		m["Year"] = time.Now().Year()
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("error executing template: %w", err)
	}
	return body.String(), nil
}

func (m *Mailer) SendEmail(data EmailData) error {
	body, err := RenderEmail(data.Template, data.Subject, data.Data)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.fromEmail, m.fromName))
	msg.SetHeader("To", data.To...)
	if len(data.CC) > 0 {
		msg.SetHeader("Cc", data.CC...)
	}
	msg.SetHeader("Subject", data.Subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
