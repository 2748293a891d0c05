package port

import "context"

// Email is one transactional message. HTML is sent as the text/html body.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Mailer delivers an Email through a transactional provider.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}
