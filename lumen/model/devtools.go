package model

import "encoding/json"

// DevtoolsEvent is one record of a devtools protocol log: a network-domain
// notification captured during a page load. Params stays raw until the
// parser dispatches on Method.
type DevtoolsEvent struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Network-domain methods the parser understands. Anything else is skipped.
const (
	MethodRequestWillBeSent      = "Network.requestWillBeSent"
	MethodRequestServedFromCache = "Network.requestServedFromCache"
	MethodResponseReceived       = "Network.responseReceived"
	MethodDataReceived           = "Network.dataReceived"
	MethodLoadingFinished        = "Network.loadingFinished"
	MethodLoadingFailed          = "Network.loadingFailed"
)

// RequestWillBeSentParams is the payload of Network.requestWillBeSent.
type RequestWillBeSentParams struct {
	RequestID        string        `json:"requestId"`
	LoaderID         string        `json:"loaderId,omitempty"`
	DocumentURL      string        `json:"documentURL"`
	Request          RequestData   `json:"request"`
	Timestamp        float64       `json:"timestamp"` // monotonic seconds
	WallTime         float64       `json:"wallTime,omitempty"`
	Initiator        Initiator     `json:"initiator"`
	RedirectResponse *ResponseData `json:"redirectResponse,omitempty"`
	Type             string        `json:"type,omitempty"`
	FrameID          string        `json:"frameId,omitempty"`
}

// RequestData describes the outgoing request inside requestWillBeSent.
type RequestData struct {
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Headers         map[string]string `json:"headers,omitempty"`
	InitialPriority string            `json:"initialPriority,omitempty"`
	IsLinkPreload   bool              `json:"isLinkPreload,omitempty"`
}

// Initiator describes what caused a request to be issued.
type Initiator struct {
	// Type is one of "parser", "script", "preload", "redirect" or "other".
	Type       string      `json:"type"`
	URL        string      `json:"url,omitempty"`
	Stack      *StackTrace `json:"stack,omitempty"`
	LineNumber float64     `json:"lineNumber,omitempty"`
}

// StackTrace is the async-aware call stack attached to script initiators.
type StackTrace struct {
	CallFrames []TraceCallSite `json:"callFrames"`
	Parent     *StackTrace     `json:"parent,omitempty"`
}

// ResponseReceivedParams is the payload of Network.responseReceived.
type ResponseReceivedParams struct {
	RequestID string       `json:"requestId"`
	Timestamp float64      `json:"timestamp"`
	Type      string       `json:"type,omitempty"`
	Response  ResponseData `json:"response"`
	FrameID   string       `json:"frameId,omitempty"`
}

// ResponseData describes a received response (or the response half of a
// redirect inside requestWillBeSent).
type ResponseData struct {
	URL                string            `json:"url"`
	Status             int               `json:"status"`
	StatusText         string            `json:"statusText,omitempty"`
	Headers            map[string]string `json:"headers,omitempty"`
	MimeType           string            `json:"mimeType,omitempty"`
	Protocol           string            `json:"protocol,omitempty"`
	FromDiskCache      bool              `json:"fromDiskCache,omitempty"`
	FromServiceWorker  bool              `json:"fromServiceWorker,omitempty"`
	EncodedDataLength  float64           `json:"encodedDataLength,omitempty"`
	ConnectionID       float64           `json:"connectionId,omitempty"`
	ConnectionReused   bool              `json:"connectionReused,omitempty"`
	RemoteIPAddress    string            `json:"remoteIPAddress,omitempty"`
	Timing             *ResourceTiming   `json:"timing,omitempty"`
}

// ResourceTiming mirrors the protocol's per-request timing block. All
// offsets are milliseconds relative to RequestTime; RequestTime itself is
// monotonic seconds. A value of -1 means the phase did not happen.
type ResourceTiming struct {
	RequestTime       float64 `json:"requestTime"`
	ProxyStart        float64 `json:"proxyStart"`
	ProxyEnd          float64 `json:"proxyEnd"`
	DNSStart          float64 `json:"dnsStart"`
	DNSEnd            float64 `json:"dnsEnd"`
	ConnectStart      float64 `json:"connectStart"`
	ConnectEnd        float64 `json:"connectEnd"`
	SSLStart          float64 `json:"sslStart"`
	SSLEnd            float64 `json:"sslEnd"`
	SendStart         float64 `json:"sendStart"`
	SendEnd           float64 `json:"sendEnd"`
	ReceiveHeadersEnd float64 `json:"receiveHeadersEnd"`
}

// DataReceivedParams is the payload of Network.dataReceived.
type DataReceivedParams struct {
	RequestID         string  `json:"requestId"`
	Timestamp         float64 `json:"timestamp"`
	DataLength        int64   `json:"dataLength"`
	EncodedDataLength int64   `json:"encodedDataLength"`
}

// LoadingFinishedParams is the payload of Network.loadingFinished.
type LoadingFinishedParams struct {
	RequestID         string  `json:"requestId"`
	Timestamp         float64 `json:"timestamp"`
	EncodedDataLength float64 `json:"encodedDataLength"`
}

// LoadingFailedParams is the payload of Network.loadingFailed.
type LoadingFailedParams struct {
	RequestID     string  `json:"requestId"`
	Timestamp     float64 `json:"timestamp"`
	ErrorText     string  `json:"errorText,omitempty"`
	Canceled      bool    `json:"canceled,omitempty"`
	BlockedReason string  `json:"blockedReason,omitempty"`
}

// RequestServedFromCacheParams is the payload of Network.requestServedFromCache.
type RequestServedFromCacheParams struct {
	RequestID string `json:"requestId"`
}
