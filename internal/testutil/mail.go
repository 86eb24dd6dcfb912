package testutil

import "sync"

type Mail struct {
	To      string
	Subject string
	Body    string
}

// MailRecorder captures sent mail. Err, when set, fails every Send.
type MailRecorder struct {
	mu   sync.Mutex
	sent []Mail
	Err  error
}

func (s *MailRecorder) Send(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.sent = append(s.sent, Mail{To: to, Subject: subject, Body: body})
	return nil
}

func (s *MailRecorder) Sent() []Mail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Mail(nil), s.sent...)
}

func (s *MailRecorder) Last() (Mail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return Mail{}, false
	}
	return s.sent[len(s.sent)-1], true
}
