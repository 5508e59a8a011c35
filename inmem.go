package bankxmov

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	_ Repository = (*InmemStore)(nil)
	_ Tx         = (*inmemTx)(nil)
)

// InmemStore keeps accounts, cards and movements in memory. Transactions are serialized by
// a store-wide lock and staged on copies that are written back only on commit.
type InmemStore struct {
	mtx       sync.RWMutex
	accounts  map[string]Account
	cards     map[string]Card
	movements map[snowflake.ID]Movement
}

func NewInmemStore() *InmemStore {
	return &InmemStore{
		accounts:  map[string]Account{},
		cards:     map[string]Card{},
		movements: map[snowflake.ID]Movement{},
	}
}

func (s *InmemStore) PutAccount(a Account) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.accounts[a.IBAN] = a
}

func (s *InmemStore) PutCard(c Card) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.cards[c.Number] = c
}

func (s *InmemStore) PutMovement(m Movement) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.movements[m.ID] = m
}

func (s *InmemStore) Account(iban string) (Account, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	a, ok := s.accounts[iban]
	return a, ok
}

func (s *InmemStore) Card(number string) (Card, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	c, ok := s.cards[number]
	return c, ok
}

func (s *InmemStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	tx := &inmemTx{
		store:    s,
		accounts: map[string]*Account{},
		cards:    map[string]*Card{},
		inserted: map[snowflake.ID]Movement{},
		deleted:  map[snowflake.ID]bool{},
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *InmemStore) GetMovement(_ context.Context, id snowflake.ID) (*Movement, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	m, ok := s.movements[id]
	if !ok {
		return nil, ErrNotFound{Resource: "movement", Key: id.String()}
	}
	return &m, nil
}

func (s *InmemStore) ListMovements(_ context.Context, f MovementFilter) ([]Movement, int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	matched := make([]Movement, 0, len(s.movements))
	for _, m := range s.movements {
		if s.matches(&m, f) {
			matched = append(matched, m)
		}
	}

	field, desc := ParseSort(f.Sort)
	sort.SliceStable(matched, func(i, j int) bool {
		if desc {
			return movementLess(&matched[j], &matched[i], field)
		}
		return movementLess(&matched[i], &matched[j], field)
	})

	total := len(matched)
	size := f.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	from := f.Page * size
	if from >= total {
		return []Movement{}, total, nil
	}
	to := from + size
	if to > total {
		to = total
	}
	return matched[from:to], total, nil
}

func (s *InmemStore) matches(m *Movement, f MovementFilter) bool {
	if f.Type != "" && !strings.EqualFold(string(m.Type), f.Type) {
		return false
	}
	if f.IBAN != "" && !m.Involves(f.IBAN) {
		return false
	}
	if f.ClientDNI != "" {
		ref, dst := s.accounts[m.ReferenceIBAN], s.accounts[m.DestinationIBAN]
		if ref.ClientDNI != f.ClientDNI && dst.ClientDNI != f.ClientDNI {
			return false
		}
	}
	if f.Date != nil {
		day := startOfDay(*f.Date)
		created := m.CreatedAt.In(day.Location())
		if created.Before(day) || !created.Before(day.AddDate(0, 0, 1)) {
			return false
		}
	}
	if f.Deleted != nil && m.Deleted != *f.Deleted {
		return false
	}
	return true
}

func (s *InmemStore) AccountsByOwner(_ context.Context, username string) ([]Account, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.accountsByOwner(username), nil
}

func (s *InmemStore) accountsByOwner(username string) []Account {
	out := []Account{}
	for _, a := range s.accounts {
		if username != "" && a.Owner == username {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IBAN < out[j].IBAN })
	return out
}

type inmemTx struct {
	store    *InmemStore
	accounts map[string]*Account
	cards    map[string]*Card
	inserted map[snowflake.ID]Movement
	deleted  map[snowflake.ID]bool
}

func (tx *inmemTx) LockAccounts(_ context.Context, ibans ...string) (map[string]*Account, error) {
	out := make(map[string]*Account, len(ibans))
	for _, iban := range ibans {
		if staged, ok := tx.accounts[iban]; ok {
			out[iban] = staged
			continue
		}
		a, ok := tx.store.accounts[iban]
		if !ok {
			continue
		}
		tx.accounts[iban] = &a
		out[iban] = &a
	}
	return out, nil
}

func (tx *inmemTx) LockCard(_ context.Context, number string) (*Card, error) {
	if staged, ok := tx.cards[number]; ok {
		return staged, nil
	}
	c, ok := tx.store.cards[number]
	if !ok {
		return nil, nil
	}
	tx.cards[number] = &c
	return &c, nil
}

func (tx *inmemTx) LockMovement(_ context.Context, id snowflake.ID) (*Movement, error) {
	if tx.deleted[id] {
		return nil, nil
	}
	if m, ok := tx.inserted[id]; ok {
		return &m, nil
	}
	m, ok := tx.store.movements[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (tx *inmemTx) AccountsByOwner(_ context.Context, username string) ([]Account, error) {
	return tx.store.accountsByOwner(username), nil
}

func (tx *inmemTx) SaveAccount(_ context.Context, acct *Account) error {
	tx.accounts[acct.IBAN] = acct
	return nil
}

func (tx *inmemTx) SaveCard(_ context.Context, card *Card) error {
	tx.cards[card.Number] = card
	return nil
}

func (tx *inmemTx) InsertMovement(_ context.Context, mov *Movement) error {
	tx.inserted[mov.ID] = *mov
	delete(tx.deleted, mov.ID)
	return nil
}

func (tx *inmemTx) DeleteMovement(_ context.Context, id snowflake.ID) error {
	delete(tx.inserted, id)
	tx.deleted[id] = true
	return nil
}

func (tx *inmemTx) commit() {
	s := tx.store
	for iban, a := range tx.accounts {
		s.accounts[iban] = *a
	}
	for num, c := range tx.cards {
		s.cards[num] = *c
	}
	for id := range tx.deleted {
		delete(s.movements, id)
	}
	for id, m := range tx.inserted {
		s.movements[id] = m
	}
}
