package tracegen

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/pb33f/lantern/lumen/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInMemory_Counts(t *testing.T) {
	result, err := GenerateInMemory(GenerateOptions{
		RequestCount: 10,
		ScriptCount:  3,
		Seed:         1,
	})
	require.NoError(t, err)

	// the document plus ten subresources
	assert.Equal(t, 11, result.TotalRequests)
	assert.NotEmpty(t, result.Trace.TraceEvents)
	assert.NotEmpty(t, result.Devtools)
	assert.Empty(t, result.TraceFilePath)
}

func TestGenerateInMemory_DeterministicForSeed(t *testing.T) {
	opts := GenerateOptions{RequestCount: 8, ScriptCount: 2, Seed: 99, H2: true}

	a, err := GenerateInMemory(opts)
	require.NoError(t, err)
	b, err := GenerateInMemory(opts)
	require.NoError(t, err)

	aj, err := json.Marshal(a.Trace)
	require.NoError(t, err)
	bj, err := json.Marshal(b.Trace)
	require.NoError(t, err)
	assert.Equal(t, aj, bj)

	aj, err = json.Marshal(a.Devtools)
	require.NoError(t, err)
	bj, err = json.Marshal(b.Devtools)
	require.NoError(t, err)
	assert.Equal(t, aj, bj)
}

func TestGenerateInMemory_NegativeRequestCount(t *testing.T) {
	_, err := GenerateInMemory(GenerateOptions{RequestCount: -1})
	assert.Error(t, err)
}

func TestGenerateInMemory_TraceShape(t *testing.T) {
	result, err := GenerateInMemory(GenerateOptions{
		RequestCount: 4,
		ScriptCount:  2,
		Seed:         5,
	})
	require.NoError(t, err)

	var sawNavStart, sawFCP, sawLCP, sawThreadName bool
	for _, ev := range result.Trace.TraceEvents {
		switch ev.Name {
		case "navigationStart":
			sawNavStart = true
			assert.Equal(t, int64(navStartTs), ev.Ts)
		case "firstContentfulPaint":
			sawFCP = true
		case "largestContentfulPaint::Candidate":
			sawLCP = true
		case "thread_name":
			sawThreadName = true
		}
	}
	assert.True(t, sawNavStart, "trace must carry a navigationStart")
	assert.True(t, sawFCP, "trace must carry an FCP mark")
	assert.True(t, sawLCP, "trace must carry an LCP candidate")
	assert.True(t, sawThreadName, "trace must name the renderer main thread")
}

func TestGenerateInMemory_RedirectHops(t *testing.T) {
	result, err := GenerateInMemory(GenerateOptions{
		RequestCount: 2,
		RedirectHops: 2,
		Seed:         3,
	})
	require.NoError(t, err)

	redirects := 0
	for _, ev := range result.Devtools {
		if ev.Method != model.MethodRequestWillBeSent {
			continue
		}
		var params model.RequestWillBeSentParams
		require.NoError(t, json.Unmarshal(ev.Params, &params))
		if params.RedirectResponse != nil {
			redirects++
			assert.Equal(t, 302, params.RedirectResponse.Status)
		}
	}
	assert.Equal(t, 2, redirects)
}

func TestGenerate_WritesFiles(t *testing.T) {
	result, err := Generate(GenerateOptions{RequestCount: 3, Seed: 11})
	require.NoError(t, err)
	defer os.Remove(result.TraceFilePath)
	defer os.Remove(result.DevtoolsFilePath)

	traceData, err := os.ReadFile(result.TraceFilePath)
	require.NoError(t, err)
	var trace model.Trace
	require.NoError(t, json.Unmarshal(traceData, &trace))
	assert.NotEmpty(t, trace.TraceEvents)

	logData, err := os.ReadFile(result.DevtoolsFilePath)
	require.NoError(t, err)
	var events []model.DevtoolsEvent
	require.NoError(t, json.Unmarshal(logData, &events))
	assert.Len(t, events, len(result.Devtools))
}
