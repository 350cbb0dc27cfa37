package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/spec-kit/post-scheduler/internal/domain"
)

// fakeVerifier accepts tokens found in the map.
type fakeVerifier struct {
	subjects map[string]string
}

func (v fakeVerifier) Verify(token string) (*domain.Credential, error) {
	if token == "no-sub" {
		return nil, domain.ErrMissingSubject
	}
	subject, ok := v.subjects[token]
	if !ok {
		return nil, domain.ErrInvalidCredential
	}
	return &domain.Credential{Subject: subject}, nil
}

type closeCall struct {
	code   int
	reason string
}

// fakeConn records everything the registry does to it.
type fakeConn struct {
	mu        sync.Mutex
	accepted  bool
	acceptErr error
	sendErr   error
	sent      []string
	closes    []closeCall

	inbound chan error
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan error, 1)}
}

func (c *fakeConn) Accept() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acceptErr != nil {
		return c.acceptErr
	}
	c.accepted = true
	return nil
}

func (c *fakeConn) Send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes = append(c.closes, closeCall{code: code, reason: reason})
	return nil
}

func (c *fakeConn) Receive() error {
	return <-c.inbound
}

func (c *fakeConn) hangUp() {
	c.inbound <- errors.New("client went away")
}

func (c *fakeConn) failSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

func (c *fakeConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *fakeConn) closeCalls() []closeCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]closeCall(nil), c.closes...)
}

func (c *fakeConn) isAccepted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accepted
}

// waitFor polls cond for up to a second.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
