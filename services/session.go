package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/models"
	"github.com/yeremiapane/waiter-dashboard/utils"
)

type SessionConfig struct {
	Provisioner      Provisioner
	Dialer           kds.Dialer
	Notifier         Notifier
	Journal          Journal
	OnChange         func(models.Dashboard)
	AppURL           string
	ProvisionTimeout time.Duration
}

// Session memegang semua meja yang dibuka staff. Semua perubahan state
// terjadi di dalam Run (satu writer). Operasi publik mengirim command ke
// inbox dan melakukan I/O (provisioning, dial, send) di goroutine pemanggil.
type Session struct {
	id  string
	cfg SessionConfig

	inbox   chan command
	updates chan models.Dashboard
	done    chan struct{}
	running atomic.Bool
	gen     atomic.Uint64

	// hanya disentuh dari Run
	registry *Registry
	queue    *GlobalQueue
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{}
	}
	if cfg.Journal == nil {
		cfg.Journal = nopJournal{}
	}
	if cfg.ProvisionTimeout <= 0 {
		cfg.ProvisionTimeout = 10 * time.Second
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")

	return &Session{
		id:       uuid.NewString(),
		cfg:      cfg,
		inbox:    make(chan command, 256),
		updates:  make(chan models.Dashboard, 1),
		done:     make(chan struct{}),
		registry: NewRegistry(),
		queue:    NewGlobalQueue(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Run menjalankan event loop sampai ctx selesai. Saat berhenti semua
// koneksi ditutup dan queue dikosongkan.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}
	defer s.teardown()

	if s.cfg.OnChange != nil {
		go s.publish()
	}

	utils.InfoLogger.WithField("session_id", s.id).Info("Dashboard session started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.inbox:
			cmd.execute(s)
		}
	}
}

func (s *Session) teardown() {
	close(s.done)
	channels := s.registry.Drain()
	for _, ch := range channels {
		if err := ch.Close(); err != nil {
			utils.InfoLogger.Debugf("Error closing channel: %v", err)
		}
	}
	s.queue.Reset()
	utils.InfoLogger.WithField("session_id", s.id).Infof("Dashboard session stopped, closed %d tables", len(channels))
}

// publish mengantar snapshot terbaru ke OnChange di luar event loop
func (s *Session) publish() {
	for {
		select {
		case d := <-s.updates:
			s.cfg.OnChange(d)
		case <-s.done:
			return
		}
	}
}

// changed dipanggil dari loop setelah setiap perubahan state.
// Snapshot lama yang belum terkirim diganti yang baru.
func (s *Session) changed() {
	if s.cfg.OnChange == nil {
		return
	}
	d := s.dashboard()
	select {
	case <-s.updates:
	default:
	}
	s.updates <- d
}

func (s *Session) dashboard() models.Dashboard {
	tables := Prioritize(s.registry.Tables())
	views := make([]models.TableView, 0, len(tables))
	for _, t := range tables {
		views = append(views, s.view(t))
	}
	return models.Dashboard{Tables: views, Queue: s.queue.Display()}
}

func (s *Session) view(t models.Table) models.TableView {
	v := models.TableView{
		Table:        t,
		PendingCount: t.PendingCount(),
		LastEntry:    t.LastEntry(),
	}
	if v.LastEntry != nil {
		v.LastLabel = models.ActionLabel(v.LastEntry.Action)
	}
	if s.cfg.AppURL != "" {
		v.JoinURL = fmt.Sprintf("%s/join/%s", s.cfg.AppURL, t.ID)
	}
	return v
}

func (s *Session) notify(alias string, entry models.Entry) {
	n := s.cfg.Notifier
	go func() {
		if err := n.Notify(alias, entry); err != nil {
			utils.InfoLogger.Debugf("Notifier failed for %s: %v", alias, err)
		}
	}()
}

func (s *Session) record(kind string, t models.Table, e *models.Entry) {
	entry := models.ActionLog{
		SessionID: s.id,
		Kind:      kind,
		TableID:   t.ID,
		Alias:     t.Alias,
	}
	if e != nil {
		entry.EntryID = e.ID
		entry.Action = string(e.Action)
		entry.Status = string(e.Status)
		entry.Reason = cloneReason(e.Reason)
	}
	s.cfg.Journal.Record(entry)
}

// post mengirim command ke loop
func (s *Session) post(ctx context.Context, cmd command) error {
	select {
	case s.inbox <- cmd:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, s *Session, reply chan T) (T, error) {
	var zero T
	select {
	case r := <-reply:
		return r, nil
	case <-s.done:
		return zero, ErrSessionClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// handleEvent dipanggil dari goroutine baca koneksi
func (s *Session) handleEvent(tableID string, gen uint64) func(kds.Event) {
	return func(ev kds.Event) {
		_ = s.post(context.Background(), frameReceived{tableID: tableID, gen: gen, event: ev})
	}
}

func (s *Session) handleClose(tableID string, gen uint64) func(error) {
	return func(err error) {
		_ = s.post(context.Background(), transportLost{tableID: tableID, gen: gen, err: err})
	}
}

// CreateTable -> validasi alias, minta id ke backend, buka koneksi, daftarkan meja.
// Jika gagal tidak ada meja yang dibuat.
func (s *Session) CreateTable(ctx context.Context, alias string) (models.TableView, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return models.TableView{}, ErrAliasRequired
	}

	reply := make(chan error, 1)
	if err := s.post(ctx, reserveAlias{alias: alias, reply: reply}); err != nil {
		return models.TableView{}, err
	}
	// reservasi tetap terjadi walau ctx selesai, tunggu supaya bisa dilepas
	if err, werr := await(context.Background(), s, reply); werr != nil {
		return models.TableView{}, werr
	} else if err != nil {
		return models.TableView{}, &ProvisioningError{Alias: alias, Err: err}
	}

	registered := false
	defer func() {
		if !registered {
			_ = s.post(context.Background(), releaseAlias{alias: alias})
		}
	}()

	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProvisionTimeout)
	prov, err := s.cfg.Provisioner.Provision(pctx, alias)
	cancel()
	if err != nil {
		utils.ErrorLogger.Errorf("Error provisioning table %q: %v", alias, err)
		return models.TableView{}, &ProvisioningError{Alias: alias, Err: err}
	}

	ch, err := s.cfg.Dialer.Open(ctx, prov.ID)
	if err != nil {
		utils.ErrorLogger.Errorf("Error opening channel for table %q: %v", alias, err)
		return models.TableView{}, &ProvisioningError{Alias: alias, Err: fmt.Errorf("open channel: %w", err)}
	}

	table := models.Table{ID: prov.ID, Alias: prov.Alias, History: []models.Entry{}}
	regReply := make(chan registerResult, 1)
	cmd := registerTable{reserved: alias, table: table, ch: ch, gen: s.gen.Add(1), reply: regReply}
	if err := s.post(ctx, cmd); err != nil {
		ch.Close()
		return models.TableView{}, err
	}
	// loop sudah memegang ch sejak command diterima, termasuk menutupnya jika gagal.
	// Command tetap dijalankan walau ctx selesai, jadi hasilnya harus ditunggu.
	registered = true
	res, err := await(context.Background(), s, regReply)
	if err != nil {
		return models.TableView{}, err
	}
	if res.err != nil {
		return models.TableView{}, &ProvisioningError{Alias: alias, Err: res.err}
	}
	return res.view, nil
}

// CloseTable -> kirim closeTable, tutup koneksi, hapus meja dan entry queue-nya.
// Id yang tidak dikenal tidak dianggap error.
func (s *Session) CloseTable(ctx context.Context, tableID string) error {
	reply := make(chan removeResult, 1)
	if err := s.post(ctx, removeTable{id: tableID, reply: reply}); err != nil {
		return err
	}
	// meja sudah dilepas dari loop, closeTable dan close tetap harus jalan
	res, err := await(context.Background(), s, reply)
	if err != nil || !res.ok || res.ch == nil {
		return err
	}

	if err := res.ch.Send(kds.CloseTableCommand()); err != nil {
		utils.InfoLogger.Printf("closeTable notice for %s not delivered: %v", res.table.Alias, err)
	}
	if err := res.ch.Close(); err != nil {
		utils.InfoLogger.Debugf("Error closing channel for %s: %v", res.table.Alias, err)
	}
	return nil
}

func (s *Session) Confirm(ctx context.Context, tableID, entryID string) error {
	return s.sendStaffCommand(ctx, tableID, entryID, kds.ConfirmCommand(entryID))
}

func (s *Session) Cancel(ctx context.Context, tableID, entryID string) error {
	return s.sendStaffCommand(ctx, tableID, entryID, kds.CancelCommand(entryID))
}

// sendStaffCommand tidak mengubah state lokal; status berubah saat backend
// mengirim balik confirmation/cancellation.
func (s *Session) sendStaffCommand(ctx context.Context, tableID, entryID string, cmd kds.Command) error {
	reply := make(chan lookupResult, 1)
	if err := s.post(ctx, lookupEntry{tableID: tableID, entryID: entryID, reply: reply}); err != nil {
		return err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return err
	}
	if res.err != nil {
		return res.err
	}

	if err := res.ch.Send(cmd); err != nil {
		utils.ErrorLogger.Errorf("Error sending %s for %s/%s: %v", cmd.Type, res.table.Alias, entryID, err)
		return fmt.Errorf("send %s: %w", cmd.Type, err)
	}
	s.cfg.Journal.Record(models.ActionLog{
		SessionID: s.id,
		Kind:      models.LogCommandSent,
		TableID:   res.table.ID,
		Alias:     res.table.Alias,
		EntryID:   entryID,
		Action:    string(res.entry.Action),
		Status:    cmd.Type,
	})
	return nil
}

// Reconnect membuka koneksi baru untuk meja. Meja ditandai stale sampai
// frame history berikutnya diterima.
func (s *Session) Reconnect(ctx context.Context, tableID string) error {
	if _, err := s.Table(ctx, tableID); err != nil {
		return err
	}

	ch, err := s.cfg.Dialer.Open(ctx, tableID)
	if err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}

	reply := make(chan swapResult, 1)
	if err := s.post(ctx, swapChannel{tableID: tableID, ch: ch, gen: s.gen.Add(1), reply: reply}); err != nil {
		ch.Close()
		return err
	}
	res, err := await(context.Background(), s, reply)
	if err != nil {
		return err
	}
	if res.err != nil {
		return res.err
	}
	if res.old != nil {
		res.old.Close()
	}
	return nil
}

// Snapshot -> state untuk layer tampilan
func (s *Session) Snapshot(ctx context.Context) (models.Dashboard, error) {
	reply := make(chan models.Dashboard, 1)
	if err := s.post(ctx, snapshotRequest{reply: reply}); err != nil {
		return models.Dashboard{}, err
	}
	return await(ctx, s, reply)
}

func (s *Session) Table(ctx context.Context, tableID string) (models.TableView, error) {
	reply := make(chan tableResult, 1)
	if err := s.post(ctx, tableRequest{id: tableID, reply: reply}); err != nil {
		return models.TableView{}, err
	}
	res, err := await(ctx, s, reply)
	if err != nil {
		return models.TableView{}, err
	}
	if !res.ok {
		return models.TableView{}, ErrTableNotFound
	}
	return res.view, nil
}

// ---------------------------------------------------------------------
// commands, dieksekusi hanya di dalam Run
// ---------------------------------------------------------------------

type command interface {
	execute(s *Session)
}

type frameReceived struct {
	tableID string
	gen     uint64
	event   kds.Event
}

func (c frameReceived) execute(s *Session) {
	log := utils.InfoLogger.WithFields(logrus.Fields{"table_id": c.tableID, "type": c.event.Type})
	if !s.registry.IsCurrent(c.tableID, c.gen) {
		log.Debug("Frame for closed or superseded channel dropped")
		return
	}
	table, _ := s.registry.Get(c.tableID)

	next, outcome := Reconcile(table, c.event)
	s.registry.Put(next)
	queued := s.queue.Project(table.Alias, c.event)
	log = log.WithField("outcome", outcome)

	switch c.event.Type {
	case kds.EventMessage:
		entry := c.event.Entry
		if outcome != OutcomeAppended {
			log.WithFields(logrus.Fields{"entry_id": entry.ID, "queue_updated": queued}).Debug("Replayed message ignored")
			break
		}
		s.notify(table.Alias, entry.Clone())
		s.record(models.LogEntryReceived, table, &entry)

	case kds.EventConfirmation, kds.EventCancellation:
		u := c.event.Update
		switch outcome {
		case OutcomeTransitioned:
			kind := models.LogEntryConfirmed
			if u.Status == models.StatusCancelled {
				kind = models.LogEntryCancelled
			}
			e := models.Entry{ID: u.ID, Status: u.Status, Reason: u.Reason}
			if i := indexOf(next.History, u.ID); i >= 0 {
				e.Action = next.History[i].Action
			}
			s.record(kind, table, &e)
		case OutcomeIgnored:
			log.WithFields(logrus.Fields{"entry_id": u.ID, "queue_updated": queued}).Debug("Status update for unknown or resolved entry ignored")
		}

	case kds.EventHistory:
		log.Debugf("History replaced with %d entries", len(next.History))
	}

	s.changed()
}

type transportLost struct {
	tableID string
	gen     uint64
	err     error
}

func (c transportLost) execute(s *Session) {
	if c.err == nil || !s.registry.IsCurrent(c.tableID, c.gen) {
		return
	}
	table, _ := s.registry.Get(c.tableID)
	table.Stale = true
	s.registry.Put(table)
	utils.InfoLogger.WithFields(logrus.Fields{"table_id": table.ID, "alias": table.Alias}).Infof("Connection lost: %v", c.err)
	s.changed()
}

type reserveAlias struct {
	alias string
	reply chan error
}

func (c reserveAlias) execute(s *Session) {
	c.reply <- s.registry.Reserve(c.alias)
}

type releaseAlias struct {
	alias string
}

func (c releaseAlias) execute(s *Session) {
	s.registry.Release(c.alias)
}

type registerResult struct {
	view models.TableView
	err  error
}

type registerTable struct {
	reserved string
	table    models.Table
	ch       kds.Channel
	gen      uint64
	reply    chan registerResult
}

func (c registerTable) execute(s *Session) {
	defer s.registry.Release(c.reserved)

	if err := s.registry.Register(c.table, c.ch, c.gen, c.reserved); err != nil {
		go c.ch.Close()
		c.reply <- registerResult{err: err}
		return
	}
	c.ch.Listen(s.handleEvent(c.table.ID, c.gen), s.handleClose(c.table.ID, c.gen))

	utils.InfoLogger.WithFields(logrus.Fields{"table_id": c.table.ID, "alias": c.table.Alias}).Infof("Table opened, %d open", s.registry.Len())
	s.record(models.LogTableOpened, c.table, nil)
	c.reply <- registerResult{view: s.view(c.table.Clone())}
	s.changed()
}

type removeResult struct {
	table models.Table
	ch    kds.Channel
	ok    bool
}

type removeTable struct {
	id    string
	reply chan removeResult
}

func (c removeTable) execute(s *Session) {
	table, ch, ok := s.registry.Remove(c.id)
	if !ok {
		c.reply <- removeResult{}
		return
	}
	purged := s.queue.PurgeAlias(table.Alias)
	utils.InfoLogger.WithFields(logrus.Fields{"table_id": table.ID, "alias": table.Alias}).Infof("Table closed, %d queue entries purged, %d left", purged, s.queue.Len())
	s.record(models.LogTableClosed, table, nil)
	c.reply <- removeResult{table: table, ch: ch, ok: true}
	s.changed()
}

type lookupResult struct {
	table models.Table
	entry models.Entry
	ch    kds.Channel
	err   error
}

type lookupEntry struct {
	tableID string
	entryID string
	reply   chan lookupResult
}

func (c lookupEntry) execute(s *Session) {
	table, ok := s.registry.Get(c.tableID)
	if !ok {
		c.reply <- lookupResult{err: ErrTableNotFound}
		return
	}
	i := indexOf(table.History, c.entryID)
	if i < 0 {
		c.reply <- lookupResult{err: ErrEntryNotFound}
		return
	}
	entry := table.History[i].Clone()
	if entry.Status != models.StatusPending {
		c.reply <- lookupResult{err: ErrEntryNotPending}
		return
	}
	ch, _ := s.registry.Channel(c.tableID)
	c.reply <- lookupResult{table: table, entry: entry, ch: ch}
}

type swapResult struct {
	old kds.Channel
	err error
}

type swapChannel struct {
	tableID string
	ch      kds.Channel
	gen     uint64
	reply   chan swapResult
}

func (c swapChannel) execute(s *Session) {
	table, ok := s.registry.Get(c.tableID)
	if !ok {
		go c.ch.Close()
		c.reply <- swapResult{err: ErrTableNotFound}
		return
	}
	old, _ := s.registry.SwapChannel(c.tableID, c.ch, c.gen)
	table.Stale = true
	s.registry.Put(table)
	c.ch.Listen(s.handleEvent(c.tableID, c.gen), s.handleClose(c.tableID, c.gen))

	utils.InfoLogger.WithFields(logrus.Fields{"table_id": table.ID, "alias": table.Alias}).Info("Table reconnected, waiting for history")
	c.reply <- swapResult{old: old}
	s.changed()
}

type snapshotRequest struct {
	reply chan models.Dashboard
}

func (c snapshotRequest) execute(s *Session) {
	c.reply <- s.dashboard()
}

type tableResult struct {
	view models.TableView
	ok   bool
}

type tableRequest struct {
	id    string
	reply chan tableResult
}

func (c tableRequest) execute(s *Session) {
	table, ok := s.registry.Get(c.id)
	if !ok {
		c.reply <- tableResult{}
		return
	}
	c.reply <- tableResult{view: s.view(table.Clone()), ok: true}
}
