package stack

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rob-gra/go-bacnet/asdu"
	"github.com/rob-gra/go-bacnet/bacerr"
	"github.com/rob-gra/go-bacnet/datalink"
	"github.com/rob-gra/go-bacnet/dispatch"
	"github.com/rob-gra/go-bacnet/npdu"
)

// drainAPDU pulls one raw PDU off link and decodes it past the NPDU
// header.
func drainAPDU(t *testing.T, ctx context.Context, link *datalink.Loopback) asdu.PDU {
	t.Helper()
	buf := make([]byte, 1600)
	n, _, err := link.Receive(ctx, buf)
	require.NoError(t, err)
	router := npdu.Router{}
	_, _, _, body, _, err := router.Route(buf[:n])
	require.NoError(t, err)
	p, err := asdu.Decode(body)
	require.NoError(t, err)
	return p
}

// injectAPDU frames apdu in a local NPDU header and pushes it at the peer.
func injectAPDU(t *testing.T, link *datalink.Loopback, apdu []byte) {
	t.Helper()
	pkt := npdu.Encode(nil, nil, nil, npdu.Data{})
	pkt = append(pkt, apdu...)
	_, err := link.SendPDU(npdu.Address{}, npdu.Data{}, pkt)
	require.NoError(t, err)
}

func TestMalformedConfirmedRequestIsRejected(t *testing.T) {
	server, _, _, clientLink := pairedDevices(t)

	server.Dispatch.HandleConfirmed(asdu.ServiceReadProperty, func(invokeID uint8, src npdu.Address, params []byte) (dispatch.Reply, error) {
		_, err := asdu.DecodeReadPropertyRequest(params)
		require.Error(t, err)
		return dispatch.Reply{}, err
	})

	// Context tag 0 declaring a 4-octet object-id, with the body cut
	// short.
	injectAPDU(t, clientLink, asdu.EncodeConfirmedRequest(nil, asdu.PDU{
		InvokeID:      42,
		ServiceChoice: uint8(asdu.ServiceReadProperty),
		Parameters:    []byte{0x0C, 0x02, 0x00},
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Receive(ctx))

	reply := drainAPDU(t, ctx, clientLink)
	assert.Equal(t, asdu.PDUReject, reply.Type)
	assert.Equal(t, uint8(42), reply.InvokeID)
	assert.Equal(t, asdu.RejectMissingRequiredParameter, reply.RejectReason)
}

func TestSegmentedComplexAckIsReassembled(t *testing.T) {
	_, serverLink, client, _ := pairedDevices(t)
	serverAddr := npdu.NewMACAddress([]byte{1})

	var got asdu.PDU
	var gotErr error
	fired := 0
	require.NoError(t, client.SendConfirmed(serverAddr, asdu.ServiceReadProperty, []byte{0x0C}, func(p asdu.PDU, err error) {
		got, gotErr = p, err
		fired++
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	req := drainAPDU(t, ctx, serverLink)
	require.Equal(t, asdu.PDUConfirmedRequest, req.Type)
	id := req.InvokeID

	sendSegment := func(seq uint8, more bool, params []byte) {
		injectAPDU(t, serverLink, asdu.EncodeComplexACK(nil, asdu.PDU{
			SegmentedMessage:   true,
			MoreFollows:        more,
			InvokeID:           id,
			SequenceNumber:     seq,
			ProposedWindowSize: 1,
			ServiceChoice:      uint8(asdu.ServiceReadProperty),
			Parameters:         params,
		}))
	}

	sendSegment(0, true, []byte{0x01, 0x02})
	require.NoError(t, client.Receive(ctx))

	segAck := drainAPDU(t, ctx, serverLink)
	assert.Equal(t, asdu.PDUSegmentACK, segAck.Type)
	assert.Equal(t, uint8(0), segAck.SequenceNumber)
	assert.Zero(t, fired, "reply must not complete before the final segment")

	sendSegment(1, false, []byte{0x03})
	require.NoError(t, client.Receive(ctx))

	require.Equal(t, 1, fired)
	require.NoError(t, gotErr)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got.Parameters)
	assert.False(t, client.TSM.Busy(id))
}

func TestOversizeRequestWithoutSegmentationFails(t *testing.T) {
	_, _, client, _ := pairedDevices(t)
	params := bytes.Repeat([]byte{0xAA}, 2000)
	err := client.SendConfirmed(npdu.NewMACAddress([]byte{1}), asdu.ServiceWriteProperty, params, nil)
	assert.ErrorIs(t, err, bacerr.ErrSegmentationMismatch)
}

func TestSegmentedRequestIsDrainedBySegmentAcks(t *testing.T) {
	serverLink := datalink.NewLoopback(npdu.NewMACAddress([]byte{1}))
	clientLink := datalink.NewLoopback(npdu.NewMACAddress([]byte{2}))
	serverLink.Peer, clientLink.Peer = clientLink, serverLink

	cfg := DefaultConfig()
	cfg.SegmentationSupported = asdu.SegmentationBoth
	client, err := New(2002, clientLink, cfg)
	require.NoError(t, err)

	params := bytes.Repeat([]byte{0xBB}, 1000)
	require.NoError(t, client.SendConfirmed(npdu.NewMACAddress([]byte{1}), asdu.ServiceWriteProperty, params, nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var collected []byte
	seg := drainAPDU(t, ctx, serverLink)
	require.True(t, seg.SegmentedMessage)
	require.True(t, seg.MoreFollows)
	require.Equal(t, uint8(0), seg.SequenceNumber)
	collected = append(collected, seg.Parameters...)

	for more := true; more; {
		injectAPDU(t, serverLink, asdu.EncodeSegmentACK(nil, asdu.PDU{
			InvokeID:           seg.InvokeID,
			SequenceNumber:     seg.SequenceNumber,
			ProposedWindowSize: 1,
			ServerAck:          true,
		}))
		require.NoError(t, client.Receive(ctx))
		seg = drainAPDU(t, ctx, serverLink)
		require.Equal(t, asdu.PDUConfirmedRequest, seg.Type)
		collected = append(collected, seg.Parameters...)
		more = seg.MoreFollows
	}

	assert.Equal(t, params, collected)
}
