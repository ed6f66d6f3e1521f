package notify

import (
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"

	"workspace-provision/internal/apperr"
	"workspace-provision/internal/domain"
)

//go:embed templates/account_created.html
var defaultTemplate string

// Template renders the notification body. Every placeholder it references
// must be supplied; an unresolved one fails the render.
type Template struct {
	tmpl *template.Template
}

// LoadTemplate parses the template at path, or the built-in one when path is
// empty.
func LoadTemplate(path string) (*Template, error) {
	src := defaultTemplate
	name := "account_created"
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, apperr.Notification("email template not found at "+path, err)
			}
			return nil, apperr.Notification("read email template", err)
		}
		src = string(b)
		name = path
	}
	return ParseTemplate(name, src)
}

func ParseTemplate(name, src string) (*Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, apperr.Notification("parse email template", err)
	}
	return &Template{tmpl: t}, nil
}

// Render fills the template. The password placeholder is only defined when n
// carries a secret.
func (t *Template) Render(n domain.Notification, loginURL string) (string, error) {
	data := map[string]string{
		"username":     n.Username,
		"givenName":    n.GivenName,
		"primaryEmail": n.PrimaryEmail,
		"loginURL":     loginURL,
	}
	if n.Secret != "" {
		data["password"] = n.Secret
	}

	var buf strings.Builder
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", apperr.Notification(fmt.Sprintf("missing a value in the email template %q", t.tmpl.Name()), err)
	}
	return buf.String(), nil
}
