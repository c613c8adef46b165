package osc

import (
	"net"
	"testing"
	"time"

	gosc "github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendFloat(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	c := NewClient("127.0.0.1", conn.LocalAddr().(*net.UDPAddr).Port)
	require.NoError(t, c.SendFloat("/SceneRotator/yaw", -12.5))

	buf := make([]byte, 1024)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)

	pkt, err := gosc.ParsePacket(string(buf[:n]))
	require.NoError(t, err)
	msg, ok := pkt.(*gosc.Message)
	require.True(t, ok, "got %T", pkt)
	assert.Equal(t, "/SceneRotator/yaw", msg.Address)
	require.Len(t, msg.Arguments, 1)
	assert.Equal(t, float32(-12.5), msg.Arguments[0])
}

func TestDefaults(t *testing.T) {
	c := NewClient("", 0)
	assert.Equal(t, DefaultHost, c.Host)
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, "osc://127.0.0.1:7600", c.String())
}

func TestSendToUnreachableDoesNotBlock(t *testing.T) {
	// UDP sends to a closed local port succeed or fail fast; either way the
	// call returns.
	c := NewClient("127.0.0.1", 9)
	done := make(chan struct{})
	go func() {
		_ = c.SendFloat("/SceneRotator/pitch", 1)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendFloat blocked")
	}
}
