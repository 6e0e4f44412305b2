package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/heaterpanel/internal/application"
	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
)

func newPairingFixture() (*fakeAPI, *application.PairingFlow) {
	api := newFakeAPI()
	api.tokens["t1"] = "a@x.com"
	return api, application.NewPairingFlow(api, discardLogger())
}

func TestPairingFlow_StartsIdle(t *testing.T) {
	_, p := newPairingFixture()

	assert.Equal(t, model.PairingIdle, p.State())
	_, ok := p.Session()
	assert.False(t, ok)
}

func TestPairingFlow_PresentCodeShows(t *testing.T) {
	api, p := newPairingFixture()
	api.codes[1] = "data:image/png;base64,AAAA"

	notice, err := p.RequestPairing(context.Background(), "t1", 1)

	require.NoError(t, err)
	assert.Nil(t, notice)
	assert.Equal(t, model.PairingShowing, p.State())

	session, ok := p.Session()
	require.True(t, ok)
	assert.Equal(t, model.PairingSession{InstanceID: 1, Code: "data:image/png;base64,AAAA", Visible: true}, session)
}

func TestPairingFlow_AbsentCodeReturnsToIdleWithNotice(t *testing.T) {
	_, p := newPairingFixture()

	notice, err := p.RequestPairing(context.Background(), "t1", 1)

	require.NoError(t, err, "absent code is not an error")
	require.NotNil(t, notice)
	assert.Equal(t, model.NoticeInfo, notice.Level)
	assert.Contains(t, notice.Message, "Could not get QR Code")
	assert.Equal(t, model.PairingIdle, p.State())
}

func TestPairingFlow_ErrorReturnsToIdleWithNotice(t *testing.T) {
	api, p := newPairingFixture()
	api.failWith(model.KindPairing, 502)

	notice, err := p.RequestPairing(context.Background(), "t1", 1)

	assert.ErrorIs(t, err, model.ErrPairing)
	require.NotNil(t, notice)
	assert.Equal(t, model.NoticeError, notice.Level)
	assert.Equal(t, model.PairingIdle, p.State())
}

func TestPairingFlow_CloseIsIdempotent(t *testing.T) {
	api, p := newPairingFixture()
	api.codes[1] = "code"

	_, err := p.RequestPairing(context.Background(), "t1", 1)
	require.NoError(t, err)

	assert.True(t, p.Close())
	assert.Equal(t, model.PairingIdle, p.State())

	assert.False(t, p.Close(), "second close is a no-op")
	assert.Equal(t, model.PairingIdle, p.State())
}

func TestPairingFlow_ReentrantRequestReplacesSession(t *testing.T) {
	api, p := newPairingFixture()
	api.codes[1] = "code-1"
	api.codes[2] = "code-2"

	_, err := p.RequestPairing(context.Background(), "t1", 1)
	require.NoError(t, err)
	_, err = p.RequestPairing(context.Background(), "t1", 2)
	require.NoError(t, err)

	session, ok := p.Session()
	require.True(t, ok)
	assert.Equal(t, int64(2), session.InstanceID)
	assert.Equal(t, "code-2", session.Code)
}

func TestPairingFlow_ReentrantRequestWithAbsentCodeClearsShownSession(t *testing.T) {
	api, p := newPairingFixture()
	api.codes[1] = "code-1"

	_, err := p.RequestPairing(context.Background(), "t1", 1)
	require.NoError(t, err)

	notice, err := p.RequestPairing(context.Background(), "t1", 2)
	require.NoError(t, err)
	assert.NotNil(t, notice)
	assert.Equal(t, model.PairingIdle, p.State())
}

func TestPairingFlow_RequestingWhileInFlight(t *testing.T) {
	api, p := newPairingFixture()
	api.codes[1] = "code-1"
	api.pairingGate = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.RequestPairing(context.Background(), "t1", 1)
	}()

	require.Eventually(t, func() bool { return p.State() == model.PairingRequesting }, time.Second, time.Millisecond)
	assert.False(t, p.Close(), "close is only valid while showing")

	api.pairingGate <- struct{}{}
	<-done
	assert.Equal(t, model.PairingShowing, p.State())
}

func TestPairingFlow_SupersededResultIsDiscarded(t *testing.T) {
	api, p := newPairingFixture()
	api.codes[1] = "stale"
	api.pairingGate = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		notice, err := p.RequestPairing(context.Background(), "t1", 1)
		assert.Nil(t, notice)
		assert.NoError(t, err)
	}()

	require.Eventually(t, func() bool { return api.pairingCalls.Load() == 1 }, time.Second, time.Millisecond)
	p.Reset()

	api.pairingGate <- struct{}{}
	<-done

	assert.Equal(t, model.PairingIdle, p.State())
}
