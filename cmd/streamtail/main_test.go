package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"t1", "t2"}, splitIDs(" t1, ,t2,"))
	assert.Empty(t, splitIDs(""))
}

func TestRun_RequiresIDs(t *testing.T) {
	err := run([]string{"-backend", "http://127.0.0.1:1"}, io.Discard, io.Discard)
	require.EqualError(t, err, "-ids is required")
}

func TestRun_PrintsReadingsUntilStreamEnds(t *testing.T) {
	queries := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.RawQuery
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: power-output\ndata: {\"powerOutputs\":[{\"windTurbineId\":\"t1\",\"powerKW\":10},{\"windTurbineId\":\"t2\",\"powerKW\":20}]}\n\n")
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := run([]string{"-backend", srv.URL, "-ids", "t1,t2", "-interval", "2"}, &out, io.Discard)

	// The test server closes the stream after one frame.
	require.Error(t, err)
	assert.Equal(t, "interval=2&windTurbineIds=t1%2Ct2", <-queries)

	dec := json.NewDecoder(&out)
	var first, second map[string]any
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, "t1", first["windTurbineId"])
	assert.Equal(t, 20.0, second["powerKW"])
	assert.Contains(t, first, "receivedAt")
}
