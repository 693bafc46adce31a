package lumen

import "math"

// TCP constants for the slow-start approximation.
const (
	tcpInitialCongestionWindow = 10
	tcpSegmentSizeBytes        = 1460
)

// Connection models one simulated TCP(+TLS) channel to an origin. A
// connection pays DNS, TCP and (for secure origins) TLS setup once; after
// that it is warm and later requests on it skip the handshakes. Download
// rate ramps with a congestion window that doubles per round trip until
// the available bandwidth share caps it.
type Connection struct {
	Origin string
	Secure bool
	H2     bool

	rttMs float64

	warm             bool
	congestionWindow float64

	// Streams counts the requests currently multiplexed on this
	// connection. Non-H2 connections carry at most one.
	Streams int
}

// NewConnection creates a cold connection to an origin.
func NewConnection(origin string, secure, h2 bool, rttMs float64) *Connection {
	return &Connection{
		Origin:           origin,
		Secure:           secure,
		H2:               h2,
		rttMs:            rttMs,
		congestionWindow: tcpInitialCongestionWindow,
	}
}

// SetupTime returns the handshake cost in milliseconds to issue a request
// now: DNS plus TCP, plus TLS for secure origins, or zero on a warm
// connection.
func (c *Connection) SetupTime() float64 {
	if c.warm {
		return 0
	}
	setup := c.rttMs * 2 // DNS resolution + TCP handshake
	if c.Secure {
		setup += c.rttMs // TLS
	}
	return setup
}

// Warm marks the handshake as paid.
func (c *Connection) Warm() { c.warm = true }

// IsWarm reports whether setup cost has already been paid.
func (c *Connection) IsWarm() bool { return c.warm }

// Cool resets the connection to cold, used by policies that deny
// keep-alive reuse.
func (c *Connection) Cool() {
	c.warm = false
	c.congestionWindow = tcpInitialCongestionWindow
}

// MaxRate returns the most bytes per millisecond the congestion window
// currently allows, independent of bandwidth sharing.
func (c *Connection) MaxRate() float64 {
	return c.congestionWindow * tcpSegmentSizeBytes / c.rttMs
}

// Advance grows the congestion window for elapsed milliseconds of active
// transfer, doubling once per round trip, capped so the window never
// exceeds what the link bandwidth can fill.
func (c *Connection) Advance(elapsedMs, linkRateBytesPerMs float64) {
	if elapsedMs <= 0 {
		return
	}
	maxWindow := linkRateBytesPerMs * c.rttMs / tcpSegmentSizeBytes
	if maxWindow < tcpInitialCongestionWindow {
		maxWindow = tcpInitialCongestionWindow
	}
	c.congestionWindow = math.Min(maxWindow, c.congestionWindow*math.Pow(2, elapsedMs/c.rttMs))
}
