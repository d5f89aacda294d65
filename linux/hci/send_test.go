package hci

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/hcicore/linux/hci/cmd"
	"github.com/rigado/hcicore/linux/hci/evt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedController answers each command with the events returned by reply.
type scriptedController struct {
	d     *Dispatcher
	cb    func([]byte)
	reply func(op cmd.OpCode) [][]byte
}

func (s *scriptedController) SendCommand(b []byte) {
	op := cmd.OpCode(uint16(b[0]) | uint16(b[1])<<8)
	for _, e := range s.reply(op) {
		e := e
		s.d.Post(func() { s.cb(e) })
	}
}

func (s *scriptedController) SetEventCallback(cb func([]byte)) {
	s.cb = cb
}

func newScripted(t *testing.T, reply func(op cmd.OpCode) [][]byte, opts ...ChannelOption) (*Dispatcher, *CommandChannel) {
	d := NewDispatcher()
	t.Cleanup(d.Close)

	s := &scriptedController{d: d, reply: reply}
	ch, err := NewCommandChannel(s, d, opts...)
	require.NoError(t, err)
	return d, ch
}

func TestSendDecodesReturnParameters(t *testing.T) {
	d, ch := newScripted(t, func(op cmd.OpCode) [][]byte {
		return [][]byte{commandComplete(op, 1, 0x00, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11)}
	})

	var rp cmd.ReadBDADDRRP
	err := Send(context.Background(), d, ch, &cmd.ReadBDADDR{}, &rp)
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, rp.BDADDR)
}

func TestSendReturnsStatus(t *testing.T) {
	d, ch := newScripted(t, func(op cmd.OpCode) [][]byte {
		return [][]byte{commandComplete(op, 1, byte(ErrDisallowed))}
	})

	err := Send(context.Background(), d, ch, &cmd.Reset{}, nil)
	assert.Equal(t, ErrDisallowed, errors.Cause(err))
}

func TestExchangeAsync(t *testing.T) {
	d, ch := newScripted(t, func(op cmd.OpCode) [][]byte {
		return [][]byte{
			commandStatus(0x00, op, 1),
			evt.NewPacket(evt.DisconnectionCompleteCode, []byte{0x00, 0x40, 0x00, 0x16}),
		}
	})

	e, err := Exchange(context.Background(), d, ch,
		cmd.FromCommand(&cmd.Disconnect{ConnectionHandle: 0x0040, Reason: 0x13}),
		CompleteOnEvent(evt.DisconnectionCompleteCode))
	require.NoError(t, err)
	assert.EqualValues(t, evt.DisconnectionCompleteCode, e.Code())
}

func TestExchangeAsyncFailedStatus(t *testing.T) {
	d, ch := newScripted(t, func(op cmd.OpCode) [][]byte {
		return [][]byte{commandStatus(byte(ErrConnID), op, 1)}
	})

	e, err := Exchange(context.Background(), d, ch,
		cmd.FromCommand(&cmd.Disconnect{ConnectionHandle: 0x0040, Reason: 0x13}),
		CompleteOnEvent(evt.DisconnectionCompleteCode))
	require.NoError(t, err)
	assert.Equal(t, ErrConnID, errors.Cause(checkStatus(e, nil)))
}

func TestExchangeRejected(t *testing.T) {
	d, ch := newScripted(t, func(op cmd.OpCode) [][]byte { return nil })

	p, err := cmd.Raw([]byte{0x00, 0x00, 0x00})
	require.NoError(t, err)
	_, err = Exchange(context.Background(), d, ch, p, CompleteOnCommandComplete())
	assert.Equal(t, ErrRejected, errors.Cause(err))
}

func TestExchangeTimeout(t *testing.T) {
	fatal := make(chan error, 1)
	d, ch := newScripted(t, func(op cmd.OpCode) [][]byte { return nil },
		OptCommandTimeout(20*time.Millisecond),
		OptFatalErrorHandler(func(err error) { fatal <- err }))

	err := Send(context.Background(), d, ch, &cmd.Reset{}, nil)
	assert.Equal(t, ErrTimeout, errors.Cause(err))
	assert.Equal(t, ErrTimeout, errors.Cause(<-fatal))

	err = Send(context.Background(), d, ch, &cmd.Reset{}, nil)
	assert.Equal(t, ErrChannelInactive, errors.Cause(err))
}

func TestExchangeContextCancelsQueued(t *testing.T) {
	d, ch := newScripted(t, func(op cmd.OpCode) [][]byte { return nil })

	// takes the only credit and never completes
	hold, release := context.WithCancel(context.Background())
	defer release()
	go Send(hold, d, ch, &cmd.Reset{}, nil)
	require.Eventually(t, func() bool {
		n := 0
		_ = d.Do(context.Background(), func() { n = ch.PendingCommands() })
		return n == 1
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := Send(ctx, d, ch, &cmd.ReadBDADDR{}, nil)
	assert.Equal(t, context.DeadlineExceeded, err)

	require.Eventually(t, func() bool {
		n := -1
		_ = d.Do(context.Background(), func() { n = ch.QueuedCommands() })
		return n == 0
	}, time.Second, time.Millisecond)
}

func TestExchangeIgnoresEventsAfterReturn(t *testing.T) {
	d, ch := newScripted(t, func(op cmd.OpCode) [][]byte { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Exchange(ctx, d, ch,
		cmd.FromCommand(&cmd.Disconnect{ConnectionHandle: 0x0040, Reason: 0x13}),
		CompleteOnEvent(evt.DisconnectionCompleteCode))
	require.Equal(t, context.DeadlineExceeded, err)

	// a controller repeating its status must not stall the dispatcher
	wait, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	err = d.Do(wait, func() {
		for i := 0; i < 3; i++ {
			ch.OnTransportEvent(commandStatus(0x00, cmd.DisconnectOpCode, 1))
		}
		ch.OnTransportEvent(evt.NewPacket(evt.DisconnectionCompleteCode, []byte{0x00, 0x40, 0x00, 0x16}))
	})
	require.NoError(t, err)

	n := -1
	require.NoError(t, d.Do(context.Background(), func() { n = ch.PendingCommands() }))
	assert.Equal(t, 0, n)
}
