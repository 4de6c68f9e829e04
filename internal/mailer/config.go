package mailer

import (
	"net"
	"strconv"
	"time"
)

const (
	DefaultPort     = 587
	ImplicitTLSPort = 465
	DefaultTimeout  = 15 * time.Second
	DefaultHelo     = "localhost"
)

// Config describes how to reach and authenticate against an SMTP server
type Config struct {
	Host string
	Port int
	User string
	Pass string

	// HeloName is sent in EHLO; defaults to "localhost"
	HeloName string

	ConnectTimeout  time.Duration
	GreetingTimeout time.Duration
	// SocketTimeout bounds every command after the greeting
	SocketTimeout time.Duration
}

// EffectivePort returns Port, or DefaultPort when unset
func (c Config) EffectivePort() int {
	if c.Port <= 0 {
		return DefaultPort
	}
	return c.Port
}

// ImplicitTLS reports whether TLS is negotiated at connect time.
// Only port 465 does; every other port upgrades with STARTTLS when offered.
func (c Config) ImplicitTLS() bool {
	return c.EffectivePort() == ImplicitTLSPort
}

// HasAuth reports whether credentials will be presented
func (c Config) HasAuth() bool {
	return c.User != "" && c.Pass != ""
}

// Addr returns host:port
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.EffectivePort()))
}

func (c Config) withDefaults() Config {
	if c.HeloName == "" {
		c.HeloName = DefaultHelo
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultTimeout
	}
	if c.GreetingTimeout <= 0 {
		c.GreetingTimeout = DefaultTimeout
	}
	if c.SocketTimeout <= 0 {
		c.SocketTimeout = DefaultTimeout
	}
	return c
}
