package lumen

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pb33f/lantern/lumen/model"
)

// NetlogParser folds an ordered devtools protocol log into NetworkRequest
// lifecycle records. Events are dispatched on their method string; unknown
// methods are skipped, and events referencing a requestId that was never
// opened (truncated logs) are dropped with a warning rather than failing
// the parse.
type NetlogParser struct {
	log     *slog.Logger
	records []*model.NetworkRequest
	byID    map[string]*model.NetworkRequest
}

// NewNetlogParser creates a parser. A nil logger falls back to slog.Default.
func NewNetlogParser(logger *slog.Logger) *NetlogParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &NetlogParser{
		log:  logger,
		byID: make(map[string]*model.NetworkRequest),
	}
}

// ParseNetlog is a convenience wrapper around a one-shot parser.
func ParseNetlog(events []model.DevtoolsEvent, logger *slog.Logger) ([]*model.NetworkRequest, error) {
	return NewNetlogParser(logger).Parse(events)
}

// Parse consumes the event array in order and returns the request records
// in first-seen order. Records that never received a terminal event remain
// with Finished == false; downstream consumers decide how to treat them.
func (p *NetlogParser) Parse(events []model.DevtoolsEvent) ([]*model.NetworkRequest, error) {
	for i := range events {
		if err := p.dispatch(&events[i]); err != nil {
			return nil, fmt.Errorf("devtools log record %d (%s): %w", i, events[i].Method, err)
		}
	}
	return p.records, nil
}

func (p *NetlogParser) dispatch(ev *model.DevtoolsEvent) error {
	switch ev.Method {
	case model.MethodRequestWillBeSent:
		var params model.RequestWillBeSentParams
		if err := json.Unmarshal(ev.Params, &params); err != nil {
			return err
		}
		p.onRequestWillBeSent(&params)
	case model.MethodRequestServedFromCache:
		var params model.RequestServedFromCacheParams
		if err := json.Unmarshal(ev.Params, &params); err != nil {
			return err
		}
		p.onServedFromCache(&params)
	case model.MethodResponseReceived:
		var params model.ResponseReceivedParams
		if err := json.Unmarshal(ev.Params, &params); err != nil {
			return err
		}
		p.onResponseReceived(&params)
	case model.MethodDataReceived:
		var params model.DataReceivedParams
		if err := json.Unmarshal(ev.Params, &params); err != nil {
			return err
		}
		p.onDataReceived(&params)
	case model.MethodLoadingFinished:
		var params model.LoadingFinishedParams
		if err := json.Unmarshal(ev.Params, &params); err != nil {
			return err
		}
		p.onLoadingFinished(&params)
	case model.MethodLoadingFailed:
		var params model.LoadingFailedParams
		if err := json.Unmarshal(ev.Params, &params); err != nil {
			return err
		}
		p.onLoadingFailed(&params)
	default:
		// not a network lifecycle event, skip
	}
	return nil
}

func (p *NetlogParser) onRequestWillBeSent(params *model.RequestWillBeSentParams) {
	ts := secondsToMillis(params.Timestamp)

	if existing, ok := p.byID[params.RequestID]; ok {
		if params.RedirectResponse == nil {
			// same id reused without a redirect response: the log is
			// malformed, keep the first record and ignore the repeat
			p.log.Warn("duplicate requestWillBeSent without redirectResponse",
				"requestId", params.RequestID, "url", params.Request.URL)
			return
		}

		// seal the redirected-away record using the redirect response that
		// arrived piggybacked on this event, then chain a fresh record
		existing.StatusCode = params.RedirectResponse.Status
		existing.Protocol = params.RedirectResponse.Protocol
		existing.MimeType = params.RedirectResponse.MimeType
		existing.ResponseHeadersEndTime = ts
		existing.NetworkEndTime = ts
		existing.TransferSize += int64(params.RedirectResponse.EncodedDataLength)
		existing.Timing = params.RedirectResponse.Timing
		existing.Finished = true

		// newRecord repoints the live id at the newest hop in the chain
		next := p.newRecord(params, existing.RequestID+model.RedirectSuffix, ts)
		next.RedirectSource = existing
		existing.RedirectDestination = next
		return
	}

	p.newRecord(params, params.RequestID, ts)
}

// newRecord creates and registers a record for a requestWillBeSent event.
// recordID carries any accumulated redirect suffixes; the protocol-visible
// id stays params.RequestID.
func (p *NetlogParser) newRecord(params *model.RequestWillBeSentParams, recordID string, ts float64) *model.NetworkRequest {
	rec := &model.NetworkRequest{
		RequestID:              recordID,
		URL:                    params.Request.URL,
		DocumentURL:            params.DocumentURL,
		RequestMethod:          params.Request.Method,
		ResourceType:           model.ResourceType(params.Type),
		Priority:               model.ResourcePriority(params.Request.InitialPriority),
		Initiator:              params.Initiator,
		IsLinkPreload:          params.Request.IsLinkPreload,
		FrameID:                params.FrameID,
		RendererStartTime:      ts,
		NetworkRequestTime:     ts,
		ResponseHeadersEndTime: -1,
		NetworkEndTime:         -1,
	}
	if rec.ResourceType == "" {
		rec.ResourceType = model.ResourceOther
	}
	p.records = append(p.records, rec)
	p.byID[params.RequestID] = rec
	return rec
}

func (p *NetlogParser) onServedFromCache(params *model.RequestServedFromCacheParams) {
	rec, ok := p.byID[params.RequestID]
	if !ok {
		p.orphan("requestServedFromCache", params.RequestID)
		return
	}
	rec.FromMemoryCache = true
}

func (p *NetlogParser) onResponseReceived(params *model.ResponseReceivedParams) {
	rec, ok := p.byID[params.RequestID]
	if !ok {
		p.orphan("responseReceived", params.RequestID)
		return
	}

	resp := &params.Response
	rec.StatusCode = resp.Status
	rec.Protocol = resp.Protocol
	rec.MimeType = resp.MimeType
	rec.FromDiskCache = resp.FromDiskCache
	rec.ConnectionID = resp.ConnectionID
	rec.ConnectionReused = resp.ConnectionReused
	rec.ResponseHeadersEndTime = secondsToMillis(params.Timestamp)
	rec.TransferSize += int64(resp.EncodedDataLength)
	rec.Timing = resp.Timing
	if params.Type != "" {
		rec.ResourceType = model.ResourceType(params.Type)
	}

	// the network stack's own clock is more precise than the renderer's
	// send timestamp when timing data is present
	if resp.Timing != nil && resp.Timing.RequestTime > 0 {
		rec.NetworkRequestTime = secondsToMillis(resp.Timing.RequestTime)
	}
}

func (p *NetlogParser) onDataReceived(params *model.DataReceivedParams) {
	rec, ok := p.byID[params.RequestID]
	if !ok {
		p.orphan("dataReceived", params.RequestID)
		return
	}
	rec.ResourceSize += params.DataLength
	if params.EncodedDataLength > 0 {
		rec.TransferSize += params.EncodedDataLength
	}
}

func (p *NetlogParser) onLoadingFinished(params *model.LoadingFinishedParams) {
	rec, ok := p.byID[params.RequestID]
	if !ok {
		p.orphan("loadingFinished", params.RequestID)
		return
	}
	rec.NetworkEndTime = secondsToMillis(params.Timestamp)
	if params.EncodedDataLength > 0 {
		rec.TransferSize = int64(params.EncodedDataLength)
	}
	rec.Finished = true
}

func (p *NetlogParser) onLoadingFailed(params *model.LoadingFailedParams) {
	rec, ok := p.byID[params.RequestID]
	if !ok {
		p.orphan("loadingFailed", params.RequestID)
		return
	}
	rec.NetworkEndTime = secondsToMillis(params.Timestamp)
	rec.Finished = true
	rec.Failed = true
	rec.FailureReason = params.ErrorText
	if rec.FailureReason == "" && params.Canceled {
		rec.FailureReason = "canceled"
	}
}

func (p *NetlogParser) orphan(method, requestID string) {
	p.log.Warn("dropping event for unknown requestId", "method", method, "requestId", requestID)
}

// FinalDestination walks a redirect chain to its last hop. The walk is
// iterative with a generous hop cap so that pathological logs cannot spin
// forever; chains of at least 20 hops resolve fully.
func FinalDestination(rec *model.NetworkRequest) *model.NetworkRequest {
	const maxHops = 64
	for i := 0; i < maxHops && rec.RedirectDestination != nil; i++ {
		rec = rec.RedirectDestination
	}
	return rec
}

// RedirectChain returns the chain containing rec from its first hop to its
// final destination. A request outside any chain yields a single-element
// slice.
func RedirectChain(rec *model.NetworkRequest) []*model.NetworkRequest {
	const maxHops = 64
	for i := 0; i < maxHops && rec.RedirectSource != nil; i++ {
		rec = rec.RedirectSource
	}
	chain := []*model.NetworkRequest{rec}
	for i := 0; i < maxHops && rec.RedirectDestination != nil; i++ {
		rec = rec.RedirectDestination
		chain = append(chain, rec)
	}
	return chain
}

func secondsToMillis(s float64) float64 {
	if s <= 0 {
		return -1
	}
	return s * 1000
}
