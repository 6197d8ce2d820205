package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/models"
)

type fakeChannel struct {
	tableID string

	mu        sync.Mutex
	sent      []kds.Command
	closed    bool
	onEvent   func(kds.Event)
	onClose   func(error)
	listening chan struct{}
}

func newFakeChannel(tableID string) *fakeChannel {
	return &fakeChannel{tableID: tableID, listening: make(chan struct{})}
}

func (c *fakeChannel) Listen(onEvent func(kds.Event), onClose func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = onEvent
	c.onClose = onClose
	close(c.listening)
}

func (c *fakeChannel) Send(cmd kds.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.sent = append(c.sent, cmd)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) Sent() []kds.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]kds.Command(nil), c.sent...)
}

func (c *fakeChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// deliver mensimulasikan frame dari backend
func (c *fakeChannel) deliver(t *testing.T, ev kds.Event) {
	t.Helper()
	select {
	case <-c.listening:
	case <-time.After(time.Second):
		t.Fatalf("channel %s never listened", c.tableID)
	}
	c.mu.Lock()
	onEvent := c.onEvent
	c.mu.Unlock()
	onEvent(ev)
}

func (c *fakeChannel) drop(err error) {
	c.mu.Lock()
	onClose := c.onClose
	c.mu.Unlock()
	onClose(err)
}

type fakeDialer struct {
	mu       sync.Mutex
	channels map[string][]*fakeChannel
	err      error
	opens    int
	// afterOpen dipanggil setelah channel dibuat, misal untuk membatalkan ctx pemanggil
	afterOpen func()
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{channels: make(map[string][]*fakeChannel)}
}

func (d *fakeDialer) Open(ctx context.Context, tableID string) (kds.Channel, error) {
	d.mu.Lock()
	if d.err != nil {
		d.mu.Unlock()
		return nil, d.err
	}
	d.opens++
	ch := newFakeChannel(tableID)
	d.channels[tableID] = append(d.channels[tableID], ch)
	hook := d.afterOpen
	d.mu.Unlock()

	if hook != nil {
		hook()
	}
	return ch, nil
}

func (d *fakeDialer) setAfterOpen(hook func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.afterOpen = hook
}

func (d *fakeDialer) channelsFor(tableID string) []*fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeChannel(nil), d.channels[tableID]...)
}

func (d *fakeDialer) tableIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.channels))
	for id := range d.channels {
		out = append(out, id)
	}
	return out
}

func (d *fakeDialer) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// latest -> koneksi terakhir untuk meja
func (d *fakeDialer) latest(tableID string) *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	chs := d.channels[tableID]
	if len(chs) == 0 {
		return nil
	}
	return chs[len(chs)-1]
}

type fakeProvisioner struct {
	mu    sync.Mutex
	next  int
	calls int
	err   error
	alias func(string) string
}

func (p *fakeProvisioner) Provision(ctx context.Context, alias string) (Provisioned, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return Provisioned{}, p.err
	}
	p.next++
	confirmed := alias
	if p.alias != nil {
		confirmed = p.alias(alias)
	}
	return Provisioned{ID: fmt.Sprintf("table-%d", p.next), Alias: confirmed}, nil
}

func (p *fakeProvisioner) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type notification struct {
	alias string
	entry models.Entry
}

type recordingNotifier struct {
	ch chan notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan notification, 64)}
}

func (n *recordingNotifier) Notify(alias string, entry models.Entry) error {
	n.ch <- notification{alias: alias, entry: entry}
	return errors.New("speaker unplugged")
}

type recordingJournal struct {
	mu      sync.Mutex
	entries []models.ActionLog
}

func (j *recordingJournal) Record(entry models.ActionLog) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *recordingJournal) Kinds() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Kind)
	}
	return out
}

type testSession struct {
	*Session
	prov     *fakeProvisioner
	dialer   *fakeDialer
	notifier *recordingNotifier
	journal  *recordingJournal
	cancel   context.CancelFunc
	stopped  chan struct{}
}

func newTestSession(t *testing.T, opts ...func(*SessionConfig)) *testSession {
	t.Helper()
	ts := &testSession{
		prov:     &fakeProvisioner{},
		dialer:   newFakeDialer(),
		notifier: newRecordingNotifier(),
		journal:  &recordingJournal{},
		stopped:  make(chan struct{}),
	}
	cfg := SessionConfig{
		Provisioner: ts.prov,
		Dialer:      ts.dialer,
		Notifier:    ts.notifier,
		Journal:     ts.journal,
		AppURL:      "https://comanda.example.com/",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	ts.Session = NewSession(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	ts.cancel = cancel
	go func() {
		defer close(ts.stopped)
		_ = ts.Run(ctx)
	}()
	t.Cleanup(ts.stop)
	return ts
}

func (ts *testSession) stop() {
	ts.cancel()
	<-ts.stopped
}

func (ts *testSession) open(t *testing.T, alias string) (models.TableView, *fakeChannel) {
	t.Helper()
	view, err := ts.CreateTable(context.Background(), alias)
	require.NoError(t, err)
	ch := ts.dialer.latest(view.ID)
	require.NotNil(t, ch)
	return view, ch
}

func (ts *testSession) snapshot(t *testing.T) models.Dashboard {
	t.Helper()
	d, err := ts.Snapshot(context.Background())
	require.NoError(t, err)
	return d
}

func message(id string, action models.ActionKind) kds.Event {
	return kds.Event{Type: kds.EventMessage, Entry: models.Entry{ID: id, Action: action, Status: models.StatusPending}}
}

func confirmation(id string) kds.Event {
	return kds.Event{Type: kds.EventConfirmation, Update: models.StatusUpdate{ID: id, Status: models.StatusConfirmed}}
}

func cancellation(id string, reason string) kds.Event {
	u := models.StatusUpdate{ID: id, Status: models.StatusCancelled}
	if reason != "" {
		u.Reason = &reason
	}
	return kds.Event{Type: kds.EventCancellation, Update: u}
}

func history(entries ...models.Entry) kds.Event {
	if entries == nil {
		entries = []models.Entry{}
	}
	return kds.Event{Type: kds.EventHistory, History: entries}
}
