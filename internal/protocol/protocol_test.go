package protocol

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrameReadFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{Op: OpStart, Args: []byte(`{"project_dir":"/tmp/p"}`)}
	require.NoError(t, WriteFrame(&buf, req))

	var decoded Request
	require.NoError(t, ReadFrame(bufio.NewReader(&buf), &decoded))
	assert.Equal(t, OpStart, decoded.Op)
	assert.JSONEq(t, `{"project_dir":"/tmp/p"}`, string(decoded.Args))
}

func TestWriteFrameReadFrame_MultipleFramesInSequence(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, Request{Op: OpList}))
	require.NoError(t, WriteFrame(&buf, Request{Op: OpStatus, Args: []byte(`{"agent_id":3}`)}))

	r := bufio.NewReader(&buf)
	var first, second Request
	require.NoError(t, ReadFrame(r, &first))
	require.NoError(t, ReadFrame(r, &second))
	assert.Equal(t, OpList, first.Op)
	assert.Equal(t, OpStatus, second.Op)
}

func TestReadFrame_RejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF} // absurd length, exceeds MaxFrameSize
	buf.Write(header)

	var decoded Request
	err := ReadFrame(bufio.NewReader(&buf), &decoded)
	require.Error(t, err)
}

func TestOK_WrapsValue(t *testing.T) {
	resp, err := OK(AgentIDArgs{AgentID: 42})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.JSONEq(t, `{"agent_id":42}`, string(resp.Value))
}

func TestOK_NilValue(t *testing.T) {
	resp, err := OK(nil)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Nil(t, resp.Value)
}

func TestErr_CarriesMessage(t *testing.T) {
	resp := Err(assertErr("boom"))
	assert.False(t, resp.OK)
	assert.Equal(t, "boom", resp.Error)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
