package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltmpl "html/template"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"time"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("mailer: message has no recipients")

// Sender delivers a composed message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a plain-text email with an optional HTML alternative.
type Message struct {
	From    mail.Address
	To      []mail.Address
	Subject string
	Text    string
	HTML    string
}

// HasRecipients reports whether at least one recipient is set.
func (m Message) HasRecipients() bool {
	return len(m.To) > 0
}

// Recipients returns the bare addresses of every recipient.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To))
	for _, to := range m.To {
		out = append(out, to.Address)
	}
	return out
}

// Bytes renders the message as an RFC 5322 document with a
// multipart/alternative body.
func (m Message) Bytes() ([]byte, error) {
	body := &bytes.Buffer{}
	alt := multipart.NewWriter(body)

	fmt.Fprintf(body, "From: %s\r\n", m.From.String())
	fmt.Fprintf(body, "To: %s\r\n", joinAddresses(m.To))
	fmt.Fprintf(body, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", stripLineBreaks(m.Subject)))
	fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n", alt.Boundary())
	fmt.Fprint(body, "\r\n")

	w, err := alt.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return nil, fmt.Errorf("create text/plain part: %w", err)
	}
	fmt.Fprintf(w, "%s\r\n", m.Text)

	if m.HTML != "" {
		w, err = alt.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return nil, fmt.Errorf("create text/html part: %w", err)
		}
		fmt.Fprintf(w, "%s\r\n", m.HTML)
	}

	if err := alt.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}
	return body.Bytes(), nil
}

func joinAddresses(addrs []mail.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}

// ReportMessage describes a report email addressed to a parent.
type ReportMessage struct {
	StudentName string
	To          string
	Body        string

	// TrackingBaseURL and TrackingID enable the open pixel and the
	// confirmation link. Both must be set.
	TrackingBaseURL string
	TrackingID      string
}

var reportHTML = htmltmpl.Must(htmltmpl.New("report").Parse(`<html><body>
<pre style="font-family: monospace">{{.Body}}</pre>
{{- if .ConfirmURL}}
<p><a href="{{.ConfirmURL}}">Confirm you have read this report</a></p>
<img src="{{.PixelURL}}" width="1" height="1" alt="" style="display:none">
{{- end}}
</body></html>`))

// Subject is the subject line used for report emails.
func Subject(studentName string) string {
	return "Student Report for " + stripLineBreaks(studentName)
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// stripLineBreaks keeps header values on one line.
func stripLineBreaks(s string) string {
	return lineBreaks.Replace(s)
}

// TrackOpenURL is the address of the open-tracking pixel for id.
func TrackOpenURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/track_open/" + id
}

// ConfirmViewURL is the address of the read-confirmation link for id.
func ConfirmViewURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/confirm_view/" + id
}

// Build composes the message. The sender address is filled in by the Sender.
func (r ReportMessage) Build() (Message, error) {
	to, err := mail.ParseAddress(r.To)
	if err != nil {
		return Message{}, fmt.Errorf("parse recipient %q: %w", r.To, err)
	}

	data := struct {
		Body       string
		ConfirmURL string
		PixelURL   string
	}{Body: r.Body}
	if r.TrackingBaseURL != "" && r.TrackingID != "" {
		data.ConfirmURL = ConfirmViewURL(r.TrackingBaseURL, r.TrackingID)
		data.PixelURL = TrackOpenURL(r.TrackingBaseURL, r.TrackingID)
	}

	html := &bytes.Buffer{}
	if err := reportHTML.Execute(html, data); err != nil {
		return Message{}, fmt.Errorf("render html body: %w", err)
	}

	return Message{
		To:      []mail.Address{*to},
		Subject: Subject(r.StudentName),
		Text:    r.Body,
		HTML:    html.String(),
	}, nil
}
