package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ytget/yt-music-bot/internal/logger"
	"github.com/ytget/yt-music-bot/internal/model"
)

// fakeFetcher blocks every fetch until the test releases its URL,
// unless auto is set.
type fakeFetcher struct {
	mu       sync.Mutex
	dir      string
	auto     bool
	delay    time.Duration
	gates    map[string]chan error
	calls    []string
	inFlight int
	peak     int
	seq      int
}

func newFakeFetcher(t *testing.T) *fakeFetcher {
	t.Helper()
	return &fakeFetcher{dir: t.TempDir(), gates: make(map[string]chan error)}
}

func (f *fakeFetcher) gate(url string) chan error {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.gates[url]
	if !ok {
		g = make(chan error, 1)
		f.gates[url] = g
	}
	return g
}

// complete lets the next fetch of url return err, or succeed when err is nil
func (f *fakeFetcher) complete(url string, err error) {
	f.gate(url) <- err
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, _ model.FetchOptions) (*model.FetchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	auto, delay := f.auto, f.delay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if auto {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		select {
		case err := <-f.gate(url):
			if err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.seq++
	n := f.seq
	f.mu.Unlock()

	dir := filepath.Join(f.dir, fmt.Sprintf("fetch-%d", n))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(path, []byte(url), 0o644); err != nil {
		return nil, err
	}
	return &model.FetchResult{FilePath: path, Dir: dir, Title: "title of " + url}, nil
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

func (f *fakeFetcher) peakInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMessage
	edits   []string
	deleted []model.MessageRef
}

func (n *fakeNotifier) Notify(_ context.Context, chatID int64, text string) (model.MessageRef, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.sent = append(n.sent, sentMessage{chatID: chatID, text: text})
	return model.MessageRef{ChatID: chatID, MessageID: n.nextID}, nil
}

func (n *fakeNotifier) Edit(_ context.Context, _ model.MessageRef, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.edits = append(n.edits, text)
	return nil
}

func (n *fakeNotifier) Delete(_ context.Context, ref model.MessageRef) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.deleted = append(n.deleted, ref)
	return nil
}

func (n *fakeNotifier) messagesContaining(sub string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []string
	for _, m := range n.sent {
		if strings.Contains(m.text, sub) {
			out = append(out, m.text)
		}
	}
	return out
}

func (n *fakeNotifier) editCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.edits)
}

func (n *fakeNotifier) deletedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.deleted)
}

type delivery struct {
	chatID     int64
	url        string
	path       string
	fileExists bool
}

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []delivery
	fail      map[string]error
}

func (d *fakeDeliverer) DeliverFile(_ context.Context, chatID int64, path string, track model.Track) error {
	_, statErr := os.Stat(path)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err, ok := d.fail[track.URL]; ok {
		return err
	}
	d.delivered = append(d.delivered, delivery{chatID: chatID, url: track.URL, path: path, fileExists: statErr == nil})
	return nil
}

func (d *fakeDeliverer) deliveries() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.delivered...)
}

func (d *fakeDeliverer) urls() []string {
	var out []string
	for _, dl := range d.deliveries() {
		out = append(out, dl.url)
	}
	return out
}

type harness struct {
	c         *Coordinator
	fetcher   *fakeFetcher
	notifier  *fakeNotifier
	deliverer *fakeDeliverer
}

func newHarness(t *testing.T, maxParallel int) *harness {
	t.Helper()

	h := &harness{
		fetcher:   newFakeFetcher(t),
		notifier:  &fakeNotifier{},
		deliverer: &fakeDeliverer{fail: make(map[string]error)},
	}
	h.c = NewCoordinator(h.fetcher, h.notifier, h.deliverer, logger.Nop(), Options{
		MaxParallel:       maxParallel,
		ProgressInterval:  0,
		CancelSettleDelay: 10 * time.Millisecond,
	})
	t.Cleanup(h.c.Close)
	return h
}

func (h *harness) tracked(userID int64, url string) bool {
	h.c.mu.Lock()
	defer h.c.mu.Unlock()

	us, ok := h.c.users[userID]
	if !ok {
		return false
	}
	_, ok = us.tasks[url]
	return ok
}

func tracks(urls ...string) []model.Track {
	out := make([]model.Track, 0, len(urls))
	for _, u := range urls {
		out = append(out, model.Track{URL: u, Title: strings.ToUpper(u)})
	}
	return out
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

var errFetch = errors.New("unavailable")
