package services

import (
	"fmt"
	"strings"

	"github.com/yeremiapane/waiter-dashboard/kds"
	"github.com/yeremiapane/waiter-dashboard/models"
	"golang.org/x/text/cases"
)

type channelSlot struct {
	ch  kds.Channel
	gen uint64
}

// Registry memetakan table id ke meja dan koneksinya. Koneksi disimpan
// terpisah dari state tampilan. Hanya dipakai dari event loop Session.
type Registry struct {
	order    []string
	tables   map[string]models.Table
	channels map[string]channelSlot
	reserved map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		tables:   make(map[string]models.Table),
		channels: make(map[string]channelSlot),
		reserved: make(map[string]struct{}),
	}
}

// aliasKey -> case folding penuh, "Straße" dan "STRASSE" dianggap sama.
// Caser tidak aman dipakai bersama, jadi dibuat per panggilan.
func aliasKey(alias string) string {
	return cases.Fold().String(strings.TrimSpace(alias))
}

// AliasInUse -> dibandingkan tanpa memperhatikan huruf besar/kecil
func (r *Registry) AliasInUse(alias string) bool {
	key := aliasKey(alias)
	for _, t := range r.tables {
		if aliasKey(t.Alias) == key {
			return true
		}
	}
	return false
}

// Reserve menahan alias selama provisioning berjalan
func (r *Registry) Reserve(alias string) error {
	key := aliasKey(alias)
	if _, ok := r.reserved[key]; ok || r.AliasInUse(alias) {
		return ErrAliasInUse
	}
	r.reserved[key] = struct{}{}
	return nil
}

func (r *Registry) Release(alias string) {
	delete(r.reserved, aliasKey(alias))
}

// Register menambah meja baru. reservedAlias adalah alias yang ditahan
// oleh pemanggil ini dan tidak dihitung sebagai bentrok.
func (r *Registry) Register(t models.Table, ch kds.Channel, gen uint64, reservedAlias string) error {
	if _, ok := r.tables[t.ID]; ok {
		return fmt.Errorf("table %s already registered", t.ID)
	}
	if r.AliasInUse(t.Alias) {
		return ErrAliasInUse
	}
	if key := aliasKey(t.Alias); key != aliasKey(reservedAlias) {
		if _, ok := r.reserved[key]; ok {
			return ErrAliasInUse
		}
	}
	r.tables[t.ID] = t
	r.channels[t.ID] = channelSlot{ch: ch, gen: gen}
	r.order = append(r.order, t.ID)
	return nil
}

func (r *Registry) Get(id string) (models.Table, bool) {
	t, ok := r.tables[id]
	return t, ok
}

// Put mengganti state meja yang sudah terdaftar
func (r *Registry) Put(t models.Table) bool {
	if _, ok := r.tables[t.ID]; !ok {
		return false
	}
	r.tables[t.ID] = t
	return true
}

func (r *Registry) Channel(id string) (kds.Channel, bool) {
	slot, ok := r.channels[id]
	return slot.ch, ok
}

// IsCurrent -> frame dari koneksi lama diabaikan
func (r *Registry) IsCurrent(id string, gen uint64) bool {
	slot, ok := r.channels[id]
	return ok && slot.gen == gen
}

func (r *Registry) SwapChannel(id string, ch kds.Channel, gen uint64) (kds.Channel, bool) {
	old, ok := r.channels[id]
	if !ok {
		return nil, false
	}
	r.channels[id] = channelSlot{ch: ch, gen: gen}
	return old.ch, true
}

func (r *Registry) Remove(id string) (models.Table, kds.Channel, bool) {
	t, ok := r.tables[id]
	if !ok {
		return models.Table{}, nil, false
	}
	slot := r.channels[id]
	delete(r.tables, id)
	delete(r.channels, id)
	for i, tid := range r.order {
		if tid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return t, slot.ch, true
}

// Tables -> urutan pembukaan meja
func (r *Registry) Tables() []models.Table {
	out := make([]models.Table, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tables[id].Clone())
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.tables)
}

// Drain mengosongkan registry dan mengembalikan semua koneksi untuk ditutup
func (r *Registry) Drain() []kds.Channel {
	out := make([]kds.Channel, 0, len(r.channels))
	for _, id := range r.order {
		if slot, ok := r.channels[id]; ok && slot.ch != nil {
			out = append(out, slot.ch)
		}
	}
	r.order = nil
	r.tables = make(map[string]models.Table)
	r.channels = make(map[string]channelSlot)
	r.reserved = make(map[string]struct{})
	return out
}
