package repofakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/dietitian-server/mail"
)

var _ mail.Mailer = (*FakeMailer)(nil)

type FakeMailer struct {
	sent []mail.Message
	err  error
	lock sync.RWMutex
}

func NewFakeMailer() *FakeMailer {
	return &FakeMailer{}
}

// FailWith makes every later Send return err.
func (m *FakeMailer) FailWith(err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.err = err
}

func (m *FakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *FakeMailer) Sent() []mail.Message {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return append([]mail.Message(nil), m.sent...)
}

// LastTo returns the most recent message sent to addr.
func (m *FakeMailer) LastTo(addr string) (mail.Message, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == addr {
			return m.sent[i], true
		}
	}
	return mail.Message{}, false
}
