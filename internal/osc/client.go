// Package osc publishes relayed rotations as Open Sound Control messages.
package osc

import (
	"fmt"

	gosc "github.com/hypebeast/go-osc/osc"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 7600
)

// Client sends one float32 argument per message over UDP. It satisfies
// relay.Sink.
type Client struct {
	Host string
	Port int

	c *gosc.Client
}

// NewClient returns a client for host:port. Nothing is dialed until the
// first send.
func NewClient(host string, port int) *Client {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	return &Client{Host: host, Port: port, c: gosc.NewClient(host, port)}
}

// SendFloat sends a single message with value as its only argument.
func (c *Client) SendFloat(address string, value float32) error {
	if err := c.c.Send(gosc.NewMessage(address, value)); err != nil {
		return fmt.Errorf("osc send %s to %s:%d: %w", address, c.Host, c.Port, err)
	}
	return nil
}

func (c *Client) String() string {
	return fmt.Sprintf("osc://%s:%d", c.Host, c.Port)
}
