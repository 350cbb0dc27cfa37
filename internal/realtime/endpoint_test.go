package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serveAsync(e *Endpoint, conn Conn, token string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Serve(conn, token)
	}()
	return done
}

func TestServe_RejectedReturnsImmediately(t *testing.T) {
	reg, _ := newTestRegistry()
	endpoint := NewEndpoint(reg, zap.NewNop())
	conn := newFakeConn()

	done := serveAsync(endpoint, conn, "expired")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return for a rejected channel")
	}
	assert.Equal(t, []closeCall{{code: CloseInvalidToken, reason: InvalidTokenReason}}, conn.closeCalls())
	assert.Equal(t, 0, reg.Len())
}

func TestServe_BlocksUntilClientLeaves(t *testing.T) {
	reg, _ := newTestRegistry()
	endpoint := NewEndpoint(reg, zap.NewNop())
	conn := newFakeConn()

	done := serveAsync(endpoint, conn, "good")
	require.True(t, waitFor(func() bool { return reg.Contains(conn) }))

	select {
	case <-done:
		t.Fatal("Serve returned while the client was still connected")
	case <-time.After(20 * time.Millisecond):
	}

	conn.hangUp()
	<-done
	assert.False(t, reg.Contains(conn))
}

func TestServe_OnlyRemainingClientNotified(t *testing.T) {
	reg, _ := newTestRegistry()
	endpoint := NewEndpoint(reg, zap.NewNop())
	first, second := newFakeConn(), newFakeConn()

	firstDone := serveAsync(endpoint, first, "good")
	secondDone := serveAsync(endpoint, second, "other")
	require.True(t, waitFor(func() bool { return reg.Len() == 2 }))

	first.hangUp()
	<-firstDone
	require.Equal(t, 1, reg.Len())

	reg.Broadcast("refresh")

	assert.Empty(t, first.messages())
	assert.Equal(t, []string{"refresh"}, second.messages())

	second.hangUp()
	<-secondDone
}
