package tracegen

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/pb33f/lantern/lumen/model"
)

// generator assembles the two event streams for one synthetic navigation.
// All trace timestamps derive from navStartTs; the devtools clock is the
// same instant expressed in seconds.
type generator struct {
	opts GenerateOptions
	rng  *rand.Rand

	traceEvents  []model.TraceEvent
	devtools     []model.DevtoolsEvent
	requestCount int
	nextID       int
}

func (g *generator) build() {
	g.emitTraceHeader()

	docEnd := g.emitDocumentRequest()
	lastNetwork := g.emitSubresources(docEnd)
	lastCPU := g.emitMainThreadWork(docEnd)

	g.emitPaints(docEnd)

	last := lastNetwork
	if lastCPU > last {
		last = lastCPU
	}
	// leave headroom after the last activity so quiet windows exist
	g.addInstant("UpdateCounters", last+7000)
}

// --- trace side ---

func (g *generator) emitTraceHeader() {
	frames, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"frames": []map[string]any{
				{"frame": mainFrameID, "url": g.opts.PageURL, "processId": mainPid},
			},
		},
	})
	g.traceEvents = append(g.traceEvents, model.TraceEvent{
		Name: "TracingStartedInBrowser",
		Cat:  "disabled-by-default-devtools.timeline",
		Ph:   model.PhaseInstant,
		Pid:  mainPid,
		Tid:  mainTid,
		Ts:   navStartTs - 5000,
		Args: frames,
	})

	threadName, _ := json.Marshal(map[string]any{"name": "CrRendererMain"})
	g.traceEvents = append(g.traceEvents, model.TraceEvent{
		Name: "thread_name",
		Cat:  "__metadata",
		Ph:   model.PhaseMetadata,
		Pid:  mainPid,
		Tid:  mainTid,
		Ts:   navStartTs - 5000,
		Args: threadName,
	})

	nav, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"frame":                mainFrameID,
			"documentLoaderURL":    g.opts.PageURL,
			"isOutermostMainFrame": true,
		},
	})
	g.traceEvents = append(g.traceEvents, model.TraceEvent{
		Name: "navigationStart",
		Cat:  "blink.user_timing",
		Ph:   model.PhaseMark,
		Pid:  mainPid,
		Tid:  mainTid,
		Ts:   navStartTs,
		Args: nav,
	})
}

func (g *generator) emitPaints(docEndMs float64) {
	fcp := docEndMs + 250 + float64(g.rng.Intn(100))
	lcp := fcp + 200 + float64(g.rng.Intn(200))

	g.addPaintMark("firstPaint", fcp-20)
	g.addPaintMark("firstContentfulPaint", fcp)
	g.addPaintMark("largestContentfulPaint::Candidate", lcp)
}

func (g *generator) addPaintMark(name string, offsetMs float64) {
	args, _ := json.Marshal(map[string]any{
		"data": map[string]any{"frame": mainFrameID},
	})
	g.traceEvents = append(g.traceEvents, model.TraceEvent{
		Name: name,
		Cat:  "loading,rail,devtools.timeline",
		Ph:   model.PhaseMark,
		Pid:  mainPid,
		Tid:  mainTid,
		Ts:   navStartTs + int64(offsetMs*1000),
		Args: args,
	})
}

func (g *generator) addInstant(name string, offsetMs float64) {
	g.traceEvents = append(g.traceEvents, model.TraceEvent{
		Name: name,
		Cat:  "devtools.timeline",
		Ph:   model.PhaseInstant,
		Pid:  mainPid,
		Tid:  mainTid,
		Ts:   navStartTs + int64(offsetMs*1000),
	})
}

func (g *generator) addTask(name string, offsetMs, durMs float64, url string) {
	var args json.RawMessage
	if url != "" {
		args, _ = json.Marshal(map[string]any{
			"data": map[string]any{"url": url},
		})
	}
	g.traceEvents = append(g.traceEvents, model.TraceEvent{
		Name: name,
		Cat:  "devtools.timeline",
		Ph:   model.PhaseComplete,
		Pid:  mainPid,
		Tid:  mainTid,
		Ts:   navStartTs + int64(offsetMs*1000),
		Dur:  int64(durMs * 1000),
		Args: args,
	})
}

// emitMainThreadWork lays out parse, script evaluation, layout and paint
// tasks after the document arrives, plus any requested long tasks, and
// returns the end of the last one in ms.
func (g *generator) emitMainThreadWork(docEndMs float64) float64 {
	cursor := docEndMs + 5

	parseDur := 30 + float64(g.rng.Intn(20))
	g.addTask("ParseHTML", cursor, parseDur, g.opts.PageURL)
	cursor += parseDur + 2

	for i := 0; i < g.opts.ScriptCount; i++ {
		dur := 15 + float64(g.rng.Intn(25))
		g.addTask("EvaluateScript", cursor, dur, g.scriptURL(i))
		cursor += dur + 2
	}

	layoutDur := 20 + float64(g.rng.Intn(15))
	g.addTask("Layout", cursor, layoutDur, "")
	cursor += layoutDur + 2

	paintDur := 8 + float64(g.rng.Intn(8))
	g.addTask("Paint", cursor, paintDur, "")
	cursor += paintDur

	for i := 0; i < g.opts.LongTaskCount; i++ {
		cursor += 150
		dur := 60 + float64(g.rng.Intn(60))
		url := ""
		if g.opts.ScriptCount > 0 {
			url = g.scriptURL(i % g.opts.ScriptCount)
		}
		g.addTask("FunctionCall", cursor, dur, url)
		cursor += dur
	}

	return cursor
}

// --- devtools side ---

func (g *generator) scriptURL(i int) string {
	return fmt.Sprintf("https://example.com/assets/app-%d.js", i)
}

func (g *generator) assetURL(i int) string {
	kinds := []string{"styles-%d.css", "hero-%d.jpg", "font-%d.woff2"}
	return "https://example.com/assets/" + fmt.Sprintf(kinds[i%len(kinds)], i)
}

func (g *generator) addDevtools(method string, params any) {
	raw, _ := json.Marshal(params)
	g.devtools = append(g.devtools, model.DevtoolsEvent{Method: method, Params: raw})
}

func devtoolsTime(offsetMs float64) float64 {
	return navStartTs/1e6 + offsetMs/1000
}

func (g *generator) protocol() string {
	if g.opts.H2 {
		return "h2"
	}
	return "http/1.1"
}

// emitDocumentRequest writes the document fetch, through any redirect
// hops, and returns the document end time in ms.
func (g *generator) emitDocumentRequest() float64 {
	id := g.newRequestID()
	cursor := 0.0

	url := g.opts.PageURL
	if g.opts.RedirectHops > 0 {
		url = "https://example.com/r/0"
	}

	g.addDevtools(model.MethodRequestWillBeSent, map[string]any{
		"requestId":   id,
		"documentURL": g.opts.PageURL,
		"timestamp":   devtoolsTime(cursor),
		"type":        "Document",
		"frameId":     mainFrameID,
		"initiator":   map[string]any{"type": "other"},
		"request": map[string]any{
			"url": url, "method": "GET", "initialPriority": "VeryHigh",
		},
	})

	for hop := 0; hop < g.opts.RedirectHops; hop++ {
		cursor += 40 + float64(g.rng.Intn(30))
		next := g.opts.PageURL
		if hop+1 < g.opts.RedirectHops {
			next = fmt.Sprintf("https://example.com/r/%d", hop+1)
		}
		g.addDevtools(model.MethodRequestWillBeSent, map[string]any{
			"requestId":   id,
			"documentURL": g.opts.PageURL,
			"timestamp":   devtoolsTime(cursor),
			"type":        "Document",
			"frameId":     mainFrameID,
			"initiator":   map[string]any{"type": "other"},
			"request": map[string]any{
				"url": next, "method": "GET", "initialPriority": "VeryHigh",
			},
			"redirectResponse": map[string]any{
				"url": url, "status": 302, "protocol": g.protocol(),
				"encodedDataLength": 320,
			},
		})
		url = next
	}

	cursor += 80 + float64(g.rng.Intn(60))
	g.addDevtools(model.MethodResponseReceived, map[string]any{
		"requestId": id,
		"timestamp": devtoolsTime(cursor),
		"type":      "Document",
		"response": map[string]any{
			"url": g.opts.PageURL, "status": 200, "mimeType": "text/html",
			"protocol": g.protocol(),
			"timing": map[string]any{
				"requestTime":       devtoolsTime(cursor - 70),
				"sendEnd":           1.0,
				"receiveHeadersEnd": 65.0,
			},
		},
	})

	size := 20000 + g.rng.Intn(40000)
	g.addDevtools(model.MethodDataReceived, map[string]any{
		"requestId": id, "timestamp": devtoolsTime(cursor + 20), "dataLength": size,
	})

	cursor += 50
	g.addDevtools(model.MethodLoadingFinished, map[string]any{
		"requestId": id, "timestamp": devtoolsTime(cursor),
		"encodedDataLength": size / 3,
	})
	return cursor
}

// emitSubresources writes the page's asset fetches and returns the end of
// the last one in ms.
func (g *generator) emitSubresources(docEndMs float64) float64 {
	last := docEndMs
	for i := 0; i < g.opts.RequestCount; i++ {
		var url, resourceType, priority string
		if i < g.opts.ScriptCount {
			url = g.scriptURL(i)
			resourceType = "Script"
			priority = "High"
		} else {
			url = g.assetURL(i)
			resourceType = assetType(url)
			priority = "Low"
		}

		start := docEndMs + 5 + float64(i)*8
		end := g.emitSimpleRequest(url, resourceType, priority, start)
		if end > last {
			last = end
		}
	}
	return last
}

func (g *generator) emitSimpleRequest(url, resourceType, priority string, startMs float64) float64 {
	id := g.newRequestID()

	g.addDevtools(model.MethodRequestWillBeSent, map[string]any{
		"requestId":   id,
		"documentURL": g.opts.PageURL,
		"timestamp":   devtoolsTime(startMs),
		"type":        resourceType,
		"frameId":     mainFrameID,
		"initiator":   map[string]any{"type": "parser", "url": g.opts.PageURL},
		"request": map[string]any{
			"url": url, "method": "GET", "initialPriority": priority,
		},
	})

	headerAt := startMs + 40 + float64(g.rng.Intn(40))
	g.addDevtools(model.MethodResponseReceived, map[string]any{
		"requestId": id,
		"timestamp": devtoolsTime(headerAt),
		"type":      resourceType,
		"response": map[string]any{
			"url": url, "status": 200, "mimeType": mimeFor(resourceType),
			"protocol": g.protocol(),
			"timing": map[string]any{
				"requestTime":       devtoolsTime(startMs + 2),
				"sendEnd":           1.0,
				"receiveHeadersEnd": headerAt - startMs - 4,
			},
		},
	})

	size := 4000 + g.rng.Intn(60000)
	g.addDevtools(model.MethodDataReceived, map[string]any{
		"requestId": id, "timestamp": devtoolsTime(headerAt + 10), "dataLength": size,
	})

	endAt := headerAt + 20 + float64(g.rng.Intn(30))
	g.addDevtools(model.MethodLoadingFinished, map[string]any{
		"requestId": id, "timestamp": devtoolsTime(endAt),
		"encodedDataLength": size,
	})
	return endAt
}

func assetType(url string) string {
	switch {
	case strings.HasSuffix(url, ".css"):
		return "Stylesheet"
	case strings.HasSuffix(url, ".woff2"):
		return "Font"
	}
	return "Image"
}

func mimeFor(resourceType string) string {
	switch resourceType {
	case "Script":
		return "text/javascript"
	case "Stylesheet":
		return "text/css"
	case "Image":
		return "image/jpeg"
	case "Font":
		return "font/woff2"
	}
	return "application/octet-stream"
}

func (g *generator) newRequestID() string {
	g.nextID++
	g.requestCount++
	return fmt.Sprintf("%d.%d", mainPid, g.nextID)
}
