package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rob-gra/go-bacnet/asdu"
	"github.com/rob-gra/go-bacnet/npdu"
)

func TestDispatchConfirmedKnownService(t *testing.T) {
	d := New()
	called := false
	d.HandleConfirmed(asdu.ServiceReadProperty, func(invokeID uint8, src npdu.Address, params []byte) (Reply, error) {
		called = true
		return Reply{Kind: ReplyComplexAck, ServiceChoice: uint8(asdu.ServiceReadProperty)}, nil
	})

	reply, err := d.DispatchConfirmed(asdu.PDU{ServiceChoice: uint8(asdu.ServiceReadProperty)}, npdu.Address{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, ReplyComplexAck, reply.Kind)
}

func TestDispatchConfirmedUnrecognizedYieldsReject(t *testing.T) {
	d := New()
	reply, err := d.DispatchConfirmed(asdu.PDU{ServiceChoice: 250}, npdu.Address{})
	require.NoError(t, err)
	assert.Equal(t, ReplyReject, reply.Kind)
	assert.Equal(t, asdu.RejectUnrecognizedService, reply.RejectReason)
}

func TestDispatchUnconfirmedUnrecognizedIsSilentlyDropped(t *testing.T) {
	d := New()
	assert.NotPanics(t, func() {
		d.DispatchUnconfirmed(asdu.PDU{ServiceChoice: 250}, npdu.Address{})
	})
}

func TestDispatchUnconfirmedKnownService(t *testing.T) {
	d := New()
	called := false
	d.HandleUnconfirmed(asdu.ServiceUnconfirmedWhoIs, func(src npdu.Address, params []byte) {
		called = true
	})
	d.DispatchUnconfirmed(asdu.PDU{ServiceChoice: uint8(asdu.ServiceUnconfirmedWhoIs)}, npdu.Address{})
	assert.True(t, called)
}

func TestReplyPostponedIsNotTreatedAsError(t *testing.T) {
	d := New()
	d.HandleConfirmed(asdu.ServiceAtomicReadFile, func(invokeID uint8, src npdu.Address, params []byte) (Reply, error) {
		return Reply{Kind: ReplyPostponed}, nil
	})
	reply, err := d.DispatchConfirmed(asdu.PDU{ServiceChoice: uint8(asdu.ServiceAtomicReadFile)}, npdu.Address{})
	require.NoError(t, err)
	assert.Equal(t, ReplyPostponed, reply.Kind)
}
