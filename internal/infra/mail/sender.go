package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

var newLeadTemplate = template.Must(template.New("new-lead").Parse(`<h2>New lead for {{.ConferenceID}}</h2>
<table>
  <tr><td>Name</td><td>{{.Name}}</td></tr>
  <tr><td>Email</td><td>{{.Email}}</td></tr>
  {{if .Phone}}<tr><td>Phone</td><td>{{.Phone}}</td></tr>{{end}}
  <tr><td>Company</td><td>{{.Company}}</td></tr>
  {{if .Role}}<tr><td>Role</td><td>{{.Role}}</td></tr>{{end}}
  {{if .BusinessType}}<tr><td>Business type</td><td>{{.BusinessType}}</td></tr>{{end}}
  {{if .Interests}}<tr><td>Interests</td><td>{{.Interests}}</td></tr>{{end}}
  <tr><td>Group size</td><td>{{.GroupSize}}</td></tr>
  {{if .Notes}}<tr><td>Notes</td><td>{{.Notes}}</td></tr>{{end}}
</table>
<p>Lead {{.LeadID}} captured at {{.CreatedAt}}</p>
`))

func NewEmailSender(host string, port int, user, password, from, to string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
	}
}

// NotifyNewLead mails the sales inbox about a captured lead.
func (s *EmailSender) NotifyNewLead(ctx context.Context, lead entity.Lead) error {
	m, err := s.newLeadMessage(lead)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send smtp notification: %w", err)
	}
	return nil
}

func (s *EmailSender) newLeadMessage(lead entity.Lead) (*gomail.Message, error) {
	data := NewLeadEmailData{
		LeadID:       lead.LeadID,
		ConferenceID: lead.ConferenceID,
		Name:         strings.TrimSpace(lead.FirstName + " " + lead.LastName),
		Email:        lead.Email,
		Phone:        lead.Phone,
		Company:      lead.Company,
		Role:         lead.Role,
		BusinessType: lead.BusinessType,
		Interests:    strings.Join(lead.Interests, ", "),
		GroupSize:    lead.GroupSize,
		Notes:        lead.Notes,
		CreatedAt:    entity.FormatTimestamp(lead.CreatedAt),
	}

	var body bytes.Buffer
	if err := newLeadTemplate.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("render notification: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To)
	m.SetHeader("Reply-To", lead.Email)
	m.SetHeader("Subject", fmt.Sprintf("New lead: %s (%s)", data.Name, lead.Company))
	m.SetBody("text/html", body.String())
	return m, nil
}
