package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type fakeResponse struct {
	status int
	body   string
	err    error
	delay  time.Duration
}

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	requests  []FetchRequest
	inFlight  int
	maxSeen   int
	onFetch   func()
}

func newFakeFetcher(responses map[string]fakeResponse) *fakeFetcher {
	return &fakeFetcher{responses: responses}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	resp, ok := f.responses[req.URL]
	onFetch := f.onFetch
	f.mu.Unlock()
	if onFetch != nil {
		onFetch()
	}
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if !ok {
		return FetchResponse{}, fmt.Errorf("unexpected url %s", req.URL)
	}
	if resp.delay > 0 {
		select {
		case <-time.After(resp.delay):
		case <-ctx.Done():
			return FetchResponse{}, ctx.Err()
		}
	}
	if resp.err != nil {
		return FetchResponse{}, resp.err
	}
	return FetchResponse{URL: req.URL, StatusCode: resp.status, Body: []byte(resp.body)}, nil
}

func (f *fakeFetcher) recorded() []FetchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FetchRequest(nil), f.requests...)
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) PutObject(_ context.Context, path, _ string, r io.Reader) (Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.err != nil {
		return Ack{}, s.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Ack{}, err
	}
	s.objects[path] = bytes.Clone(data)
	return Ack{URI: "fake://" + path, Body: []byte(`{"ok":true}`)}, nil
}

// fakeClock returns now and then moves it forward by step on every reading.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	step  time.Duration
	reads int
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	c.reads++
	return t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeIDGen struct {
	mu  sync.Mutex
	ids []string
	n   int
}

func (g *fakeIDGen) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n < len(g.ids) {
		id := g.ids[g.n]
		g.n++
		return id, nil
	}
	g.n++
	return fmt.Sprintf("run-%d", g.n), nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(data []byte) (string, error) {
	return fmt.Sprintf("len-%d", len(data)), nil
}

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []any
}

func (p *fakePublisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return fmt.Sprintf("msg-%d", len(p.payloads)), nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []RunRecord
	err     error
}

func (r *fakeRecorder) RecordRun(_ context.Context, record RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return r.err
}

const testTemplate = "https://feeds.example.com/rss-subsection/{section}/?outputType=xml"

func feedURL(section string) string {
	return NewSectionFetcher(nil, nil, SectionFetcherConfig{URLTemplate: testTemplate}, nil).BuildURL(section)
}
