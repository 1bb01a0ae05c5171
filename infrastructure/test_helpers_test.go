package infrastructure

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"raffle/domain/interfaces"
)

type publishedMessage struct {
	subject string
	data    []byte
}

// fakeNATS records publishes instead of talking to a server
type fakeNATS struct {
	mu         sync.Mutex
	messages   []publishedMessage
	streams    map[string][]string
	publishErr error
}

func newFakeNATS() *fakeNATS {
	return &fakeNATS{streams: make(map[string][]string)}
}

func (f *fakeNATS) Publish(ctx context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.messages = append(f.messages, publishedMessage{subject: subject, data: data})
	return nil
}

func (f *fakeNATS) EnsureStream(streamName, description string, subjects []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[streamName] = subjects
	return nil
}

func (f *fakeNATS) published() []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedMessage, len(f.messages))
	copy(out, f.messages)
	return out
}

type fulfillment struct {
	requestID *big.Int
	words     []*big.Int
}

// recordingReceiver captures fulfillments delivered by the local oracle
type recordingReceiver struct {
	mu    sync.Mutex
	calls []fulfillment
	err   error
}

func (r *recordingReceiver) FulfillRandomWords(ctx context.Context, requestID *big.Int, words []*big.Int) (*interfaces.DrawResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fulfillment{requestID: requestID, words: words})
	if r.err != nil {
		return nil, r.err
	}
	return &interfaces.DrawResult{RequestID: requestID}, nil
}

func (r *recordingReceiver) received() []fulfillment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]fulfillment, len(r.calls))
	copy(out, r.calls)
	return out
}

var errBoom = errors.New("boom")
