package controller

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rigado/hcicore"
	"github.com/rigado/hcicore/linux/hci"
	"github.com/rigado/hcicore/linux/hci/cmd"
	"github.com/rigado/hcicore/linux/hci/evt"
	"github.com/rigado/hcicore/linux/hci/iso"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController answers the bring-up sequence over an H4 stream.
type fakeController struct {
	conn  net.Conn
	noISO bool

	mu   sync.Mutex
	ops  []cmd.OpCode
	data [][]byte
}

func (f *fakeController) run() {
	for {
		ind := make([]byte, 1)
		if _, err := io.ReadFull(f.conn, ind); err != nil {
			return
		}

		switch ind[0] {
		case hci.PktTypeCommand:
			hdr := make([]byte, 3)
			if _, err := io.ReadFull(f.conn, hdr); err != nil {
				return
			}
			params := make([]byte, hdr[2])
			if _, err := io.ReadFull(f.conn, params); err != nil {
				return
			}
			op := cmd.OpCode(binary.LittleEndian.Uint16(hdr))
			f.mu.Lock()
			f.ops = append(f.ops, op)
			f.mu.Unlock()
			f.command(op, params)

		case hci.PktTypeISOData:
			hdr := make([]byte, 4)
			if _, err := io.ReadFull(f.conn, hdr); err != nil {
				return
			}
			load := make([]byte, binary.LittleEndian.Uint16(hdr[2:])&0x3fff)
			if _, err := io.ReadFull(f.conn, load); err != nil {
				return
			}
			f.mu.Lock()
			f.data = append(f.data, append(hdr, load...))
			f.mu.Unlock()

			handle := binary.LittleEndian.Uint16(hdr) & 0x0fff
			f.event(evt.NumberOfCompletedPacketsCode, []byte{0x01, byte(handle), byte(handle >> 8), 0x01, 0x00})

		default:
			return
		}
	}
}

func (f *fakeController) command(op cmd.OpCode, params []byte) {
	switch op {
	case cmd.ResetOpCode, cmd.SetEventMaskOpCode, cmd.LESetEventMaskOpCode:
		f.complete(op, 0x00)
	case cmd.ReadBDADDROpCode:
		f.complete(op, 0x00, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11)
	case cmd.ReadLocalVersionInformationOpCode:
		f.complete(op, 0x00, 0x0c, 0x34, 0x12, 0x0c, 0x59, 0x00, 0x01, 0x00)
	case cmd.ReadBufferSizeOpCode:
		f.complete(op, 0x00, 0xfb, 0x00, 0x00, 0x08, 0x00, 0x00, 0x00)
	case cmd.LEReadBufferSizeV2OpCode:
		if f.noISO {
			f.complete(op, byte(hci.ErrUnknownCommand))
			return
		}
		f.complete(op, 0x00, 0xfb, 0x00, 0x04, 0x78, 0x00, 0x02)
	case cmd.DisconnectOpCode:
		f.event(evt.CommandStatusCode, []byte{0x00, 0x01, byte(op), byte(op >> 8)})
		f.event(evt.DisconnectionCompleteCode, []byte{0x00, params[0], params[1], params[2]})
	default:
		f.complete(op, byte(hci.ErrUnknownCommand))
	}
}

func (f *fakeController) complete(op cmd.OpCode, rp ...byte) {
	f.event(evt.CommandCompleteCode, append([]byte{0x01, byte(op), byte(op >> 8)}, rp...))
}

func (f *fakeController) event(code uint8, params []byte) {
	b := append([]byte{hci.PktTypeEvent}, evt.NewPacket(code, params)...)
	f.conn.Write(b)
}

func (f *fakeController) opcodes() []cmd.OpCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cmd.OpCode(nil), f.ops...)
}

func newTestHCI(t *testing.T, f *fakeController, opts ...hcicore.Option) *HCI {
	host, ctrl := net.Pipe()
	f.conn = ctrl
	go f.run()

	h, err := New(opts...)
	require.NoError(t, err)
	h.open = func() (io.ReadWriteCloser, error) { return host, nil }
	t.Cleanup(func() { h.Close() })
	return h
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestInit(t *testing.T) {
	f := &fakeController{}
	reg := prometheus.NewRegistry()
	h := newTestHCI(t, f, hcicore.OptMetrics(reg))

	require.NoError(t, h.Init(testContext(t)))
	assert.Equal(t, "11:22:33:44:55:66", h.Addr().String())
	assert.EqualValues(t, 0x0c, h.LocalVersion().HCIVersion)
	assert.EqualValues(t, 0x0059, h.LocalVersion().ManufacturerName)
	assert.Equal(t, iso.BufferInfo{MaxDataLength: 251, MaxNumPackets: 4}, h.ACLBuffer())
	assert.Equal(t, iso.BufferInfo{MaxDataLength: 120, MaxNumPackets: 2}, h.ISOBuffer())
	assert.NotNil(t, h.ISO())

	assert.Equal(t, []cmd.OpCode{
		cmd.ResetOpCode,
		cmd.ReadBDADDROpCode,
		cmd.ReadLocalVersionInformationOpCode,
		cmd.ReadBufferSizeOpCode,
		cmd.LEReadBufferSizeV2OpCode,
		cmd.SetEventMaskOpCode,
		cmd.LESetEventMaskOpCode,
	}, f.opcodes())

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestInitWithoutISO(t *testing.T) {
	f := &fakeController{noISO: true}
	h := newTestHCI(t, f)

	require.NoError(t, h.Init(testContext(t)))
	assert.Nil(t, h.ISO())
	assert.Equal(t, iso.BufferInfo{MaxDataLength: 251, MaxNumPackets: 8}, h.ACLBuffer())
}

func TestSendVendorCommand(t *testing.T) {
	f := &fakeController{}
	h := newTestHCI(t, f)
	require.NoError(t, h.Init(testContext(t)))

	c, err := cmd.NewVendorCommand(0x0001, 1, uint8(0x42))
	require.NoError(t, err)
	err = h.Send(testContext(t), c, nil)
	assert.Equal(t, hci.ErrUnknownCommand, err)
}

type endpoint chan iso.Packet

func (e endpoint) ReceiveInboundPacket(p iso.Packet) { e <- p }

func TestISOAndDisconnect(t *testing.T) {
	f := &fakeController{}
	h := newTestHCI(t, f)
	ctx := testContext(t)
	require.NoError(t, h.Init(ctx))

	p, err := iso.NewPacket(0x60, iso.CompleteSDU, false, []byte{1, 2, 3})
	require.NoError(t, err)

	var registered bool
	var errs []error
	require.NoError(t, h.Do(ctx, func(*hci.CommandChannel) {
		registered = h.ISO().RegisterConnection(0x60, make(endpoint, 1))
		for i := 0; i < 3; i++ {
			errs = append(errs, h.ISO().SendData(p))
		}
	}))
	require.True(t, registered)
	assert.Equal(t, []error{nil, nil, nil}, errs)

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.data) == 3
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, h.Disconnect(ctx, 0x60, 0x13))
	require.Eventually(t, func() bool {
		registered := true
		_ = h.Do(ctx, func(*hci.CommandChannel) { registered = h.ISO().Registered(0x60) })
		return !registered
	}, 2*time.Second, time.Millisecond)
}

func TestHardwareErrorReported(t *testing.T) {
	f := &fakeController{}
	failed := make(chan error, 1)
	h := newTestHCI(t, f, hcicore.OptErrorHandler(func(err error) { failed <- err }))
	require.NoError(t, h.Init(testContext(t)))

	f.event(evt.HardwareErrorCode, []byte{0x07})
	select {
	case err := <-failed:
		assert.Contains(t, err.Error(), "0x07")
	case <-time.After(2 * time.Second):
		t.Fatal("hardware error not reported")
	}
	assert.Error(t, h.Error())
}

func TestNotInitialized(t *testing.T) {
	h, err := New()
	require.NoError(t, err)
	assert.Error(t, h.Send(context.Background(), &cmd.Reset{}, nil))
	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())
}

func TestOptions(t *testing.T) {
	_, err := New(hcicore.OptCommandTimeout(0))
	assert.Error(t, err)

	h, err := New(hcicore.OptTransportH4Uart("/dev/ttyUSB0", 115200))
	require.NoError(t, err)
	require.NotNil(t, h.transport.h4uart)
	assert.EqualValues(t, 115200, h.transport.h4uart.baud)

	h, err = New(hcicore.OptTransportHCISocket(1), hcicore.OptTransportH4Socket("127.0.0.1:9000", time.Second))
	require.NoError(t, err)
	assert.Nil(t, h.transport.hci)
	assert.NotNil(t, h.transport.h4socket)

	_, err = transport{}.open()
	assert.Error(t, err)
}
