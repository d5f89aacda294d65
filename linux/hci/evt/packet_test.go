package evt

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse([]byte{CommandCompleteCode, 0x04, 0x01, 0x03, 0x0c, 0x00})
	require.NoError(t, err)
	assert.EqualValues(t, CommandCompleteCode, p.Code())

	cc := p.CommandComplete()
	assert.EqualValues(t, 1, cc.NumHCICommandPackets())
	assert.EqualValues(t, 0x0c03, cc.CommandOpcode())
	assert.Equal(t, []byte{0x00}, cc.ReturnParameters())
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse([]byte{0x0e})
	assert.Equal(t, ErrShortPacket, errors.Cause(err))

	_, err = Parse([]byte{0x0e, 0x04, 0x01})
	assert.Equal(t, ErrLengthMismatch, errors.Cause(err))

	_, err = Parse([]byte{0x0e, 0x00, 0x01})
	assert.Equal(t, ErrLengthMismatch, errors.Cause(err))
}

func TestCommandStatus(t *testing.T) {
	cs := NewPacket(CommandStatusCode, []byte{0x0c, 0x02, 0x0d, 0x20}).CommandStatus()
	assert.True(t, cs.Valid())
	assert.EqualValues(t, 0x0c, cs.Status())
	assert.EqualValues(t, 2, cs.NumHCICommandPackets())
	assert.EqualValues(t, 0x200d, cs.CommandOpcode())

	short := CommandStatus{0x00, 0x01}
	assert.False(t, short.Valid())
	_, err := short.CommandOpcodeWErr()
	assert.Error(t, err)
	assert.EqualValues(t, 0xffff, short.CommandOpcode())
}

func TestNumberOfCompletedPackets(t *testing.T) {
	e := NumberOfCompletedPackets{0x02, 0x40, 0x00, 0x01, 0x00, 0x41, 0x00, 0x03, 0x00}
	require.NoError(t, e.ValidWErr())
	assert.EqualValues(t, 2, e.NumberOfHandles())
	assert.EqualValues(t, 0x40, e.ConnectionHandle(0))
	assert.EqualValues(t, 1, e.HCNumOfCompletedPackets(0))
	assert.EqualValues(t, 0x41, e.ConnectionHandle(1))
	assert.EqualValues(t, 3, e.HCNumOfCompletedPackets(1))

	truncated := NumberOfCompletedPackets{0x02, 0x40, 0x00, 0x01, 0x00}
	assert.Error(t, truncated.ValidWErr())
}

func TestCommandCompleteWithoutReturnParameters(t *testing.T) {
	cc := CommandComplete{0x01, 0x00, 0x00}
	rp, err := cc.ReturnParametersWErr()
	require.NoError(t, err)
	assert.Empty(t, rp)
}

func TestConnectionEvents(t *testing.T) {
	p := NewPacket(LEMetaCode, []byte{LECISEstablishedSubCode, 0x00, 0x60, 0xf0})
	assert.EqualValues(t, LECISEstablishedSubCode, p.LEMeta().SubeventCode())
	cis := LECISEstablished(p.Params())
	assert.EqualValues(t, 0x00, cis.Status())
	assert.EqualValues(t, 0x0060, cis.ConnectionHandle(), "flag bits are masked off")

	dc := DisconnectionComplete(NewPacket(DisconnectionCompleteCode, []byte{0x00, 0x60, 0x00, 0x13}).Params())
	assert.EqualValues(t, 0x00, dc.Status())
	assert.EqualValues(t, 0x0060, dc.ConnectionHandle())
	assert.EqualValues(t, 0x13, dc.Reason())

	_, err := DisconnectionComplete{0x00}.ConnectionHandleWErr()
	assert.Error(t, err)
	assert.EqualValues(t, 0xff, DisconnectionComplete{}.Status())
}
