package model

import (
	"net/url"
	"strings"
)

// ResourcePriority is the request priority declared by the renderer.
type ResourcePriority string

const (
	PriorityVeryHigh ResourcePriority = "VeryHigh"
	PriorityHigh     ResourcePriority = "High"
	PriorityMedium   ResourcePriority = "Medium"
	PriorityLow      ResourcePriority = "Low"
	PriorityVeryLow  ResourcePriority = "VeryLow"
)

// Rank maps a priority to an integer where a higher value means more
// urgent. Unknown priorities rank below VeryLow.
func (p ResourcePriority) Rank() int {
	switch p {
	case PriorityVeryHigh:
		return 5
	case PriorityHigh:
		return 4
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 2
	case PriorityVeryLow:
		return 1
	}
	return 0
}

// ResourceType classifies what a request fetched.
type ResourceType string

const (
	ResourceDocument   ResourceType = "Document"
	ResourceStylesheet ResourceType = "Stylesheet"
	ResourceImage      ResourceType = "Image"
	ResourceMedia      ResourceType = "Media"
	ResourceFont       ResourceType = "Font"
	ResourceScript     ResourceType = "Script"
	ResourceXHR        ResourceType = "XHR"
	ResourceFetch      ResourceType = "Fetch"
	ResourceOther      ResourceType = "Other"
)

// NetworkRequest is the parsed lifecycle of one HTTP(S) exchange,
// assembled from the devtools log events sharing a requestId.
//
// All timing landmarks are milliseconds on the shared monotonic clock, -1
// when the corresponding event was never observed. A request is immutable
// once Finished or Failed is set.
type NetworkRequest struct {
	// RequestID is the protocol id, suffixed with ":redirect" once per hop
	// for requests created by a redirect.
	RequestID string

	URL         string
	DocumentURL string

	RequestMethod string
	ResourceType  ResourceType
	Priority      ResourcePriority
	Initiator     Initiator

	StatusCode int
	Protocol   string
	MimeType   string

	// RendererStartTime is when the renderer decided to fetch,
	// NetworkRequestTime when the request hit the network stack.
	RendererStartTime      float64
	NetworkRequestTime     float64
	ResponseHeadersEndTime float64
	NetworkEndTime         float64

	TransferSize int64
	ResourceSize int64

	FromDiskCache   bool
	FromMemoryCache bool

	ConnectionID     float64
	ConnectionReused bool

	Timing *ResourceTiming

	Finished      bool
	Failed        bool
	FailureReason string

	IsLinkPreload bool
	FrameID       string

	// RedirectSource points at the request whose redirect created this
	// one; RedirectDestination at the request this one redirected to.
	// Both are nil outside a redirect chain.
	RedirectSource      *NetworkRequest
	RedirectDestination *NetworkRequest
}

// RedirectSuffix is appended to a requestId each time the id is reused for
// a redirect hop.
const RedirectSuffix = ":redirect"

// Origin returns the scheme://host[:port] portion of the request URL, or
// "" when the URL does not parse.
func (r *NetworkRequest) Origin() string {
	u, err := url.Parse(r.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// IsSecure reports whether the request went over TLS.
func (r *NetworkRequest) IsSecure() bool {
	return strings.HasPrefix(r.URL, "https:") || strings.HasPrefix(r.URL, "wss:")
}

// FromCache reports whether the response came from disk or memory cache.
func (r *NetworkRequest) FromCache() bool {
	return r.FromDiskCache || r.FromMemoryCache
}

// OK reports whether the request finished with a 2xx/3xx status.
func (r *NetworkRequest) OK() bool {
	return r.Finished && !r.Failed && r.StatusCode >= 200 && r.StatusCode < 400
}
