package utils

import (
	"encoding/json"
	"os"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/gilchrisn/graph-motif-service/pkg/graph"
)

// SwapEvent is one accepted double-edge swap
type SwapEvent struct {
	Swap      int       `json:"swap"`
	Subject   string    `json:"subject"`
	Removed   [2][2]int `json:"removed"`
	Added     [2][2]int `json:"added"`
	Distance  float64   `json:"distance"`
	Timestamp int64     `json:"timestamp"`
}

// SwapTracker streams swap events as JSON lines, one file per run
type SwapTracker struct {
	file    *os.File
	encoder *json.Encoder
	subject string
	err     error // first write error, reported by Close
}

// NewSwapTracker creates the output file
func NewSwapTracker(filename string) (*SwapTracker, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create swap trace file")
	}

	return &SwapTracker{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// SetSubject labels subsequent events
func (st *SwapTracker) SetSubject(subject string) {
	if st == nil {
		return
	}
	st.subject = subject
}

// LogSwap records one swap. Its signature matches nullmodel.SwapCallback.
func (st *SwapTracker) LogSwap(swap int, removed, added [2]graph.Edge, distance float64) {
	if st == nil {
		return
	}

	event := SwapEvent{
		Swap:      swap,
		Subject:   st.subject,
		Distance:  distance,
		Timestamp: time.Now().Unix(),
	}
	for i := 0; i < 2; i++ {
		event.Removed[i] = [2]int{removed[i].From, removed[i].To}
		event.Added[i] = [2]int{added[i].From, added[i].To}
	}

	if err := st.encoder.Encode(event); err != nil && st.err == nil {
		st.err = errors.Wrap(err, "failed to write swap event")
	}
}

// Close closes the output file and returns the first write error, if any
func (st *SwapTracker) Close() error {
	if st == nil || st.file == nil {
		return nil
	}
	closeErr := st.file.Close()
	if st.err != nil {
		return st.err
	}
	return closeErr
}
