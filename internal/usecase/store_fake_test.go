package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"digi-shop/internal/entity"
	"digi-shop/internal/repo/persistent"
)

// fakeStore is an in-memory Store used to exercise the engines. It
// mirrors the semantics the Postgres ledger guarantees: WithinTx is
// all-or-nothing (snapshot restore on error) and serialized under a
// mutex, InsertPayment enforces the (provider, external_id) unique
// key, and AllocateUnit consumes at most one finite unit.
type fakeStore struct {
	mu    sync.Mutex
	state *fakeState

	// fault injection
	failOnInsertSold bool
}

type fakeState struct {
	users       map[int64]entity.User
	roles       map[int]entity.Role
	categories  map[string]bool
	goods       map[string]entity.Good
	stock       map[int64]entity.StockUnit
	nextStockID int64
	sold        []entity.SoldUnit
	nextSoldID  int64
	payments    map[string]entity.PaymentRecord
	nextPayID   int64
	pendings    map[string]entity.PendingTopup
	earnings    []entity.ReferralEarning
	operations  []entity.Operation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: &fakeState{
			users:       make(map[int64]entity.User),
			roles:       map[int]entity.Role{1: {ID: 1, Name: entity.RoleUser, Default: true, Permissions: entity.PermissionUse}},
			categories:  make(map[string]bool),
			goods:       make(map[string]entity.Good),
			stock:       make(map[int64]entity.StockUnit),
			nextStockID: 1,
			nextSoldID:  1,
			payments:    make(map[string]entity.PaymentRecord),
			nextPayID:   1,
			pendings:    make(map[string]entity.PendingTopup),
		},
	}
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		users:       make(map[int64]entity.User, len(s.users)),
		roles:       make(map[int]entity.Role, len(s.roles)),
		categories:  make(map[string]bool, len(s.categories)),
		goods:       make(map[string]entity.Good, len(s.goods)),
		stock:       make(map[int64]entity.StockUnit, len(s.stock)),
		nextStockID: s.nextStockID,
		sold:        append([]entity.SoldUnit(nil), s.sold...),
		nextSoldID:  s.nextSoldID,
		payments:    make(map[string]entity.PaymentRecord, len(s.payments)),
		nextPayID:   s.nextPayID,
		pendings:    make(map[string]entity.PendingTopup, len(s.pendings)),
		earnings:    append([]entity.ReferralEarning(nil), s.earnings...),
		operations:  append([]entity.Operation(nil), s.operations...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.roles {
		c.roles[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.goods {
		c.goods[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.pendings {
		c.pendings[k] = v
	}
	return c
}

func paymentKey(provider, externalID string) string {
	return provider + "|" + externalID
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(tx persistent.Store) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := f.state.clone()
	if err := fn(f); err != nil {
		f.state = snapshot
		return err
	}
	return nil
}

// Users

func (f *fakeStore) GetUser(ctx context.Context, telegramID int64) (*entity.User, error) {
	user, ok := f.state.users[telegramID]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	u := user
	return &u, nil
}

func (f *fakeStore) GetUserForUpdate(ctx context.Context, telegramID int64) (*entity.User, error) {
	return f.GetUser(ctx, telegramID)
}

func (f *fakeStore) CreateUser(ctx context.Context, user *entity.User) error {
	if _, ok := f.state.users[user.TelegramID]; ok {
		return nil
	}
	u := *user
	if u.RegistrationDate.IsZero() {
		u.RegistrationDate = time.Now().UTC()
	}
	f.state.users[user.TelegramID] = u
	return nil
}

func (f *fakeStore) AddBalance(ctx context.Context, telegramID int64, delta int64) error {
	user, ok := f.state.users[telegramID]
	if !ok {
		return entity.ErrUserNotFound
	}
	if user.Balance+delta < 0 {
		return errors.New("balance check constraint violated")
	}
	user.Balance += delta
	f.state.users[telegramID] = user
	return nil
}

func (f *fakeStore) SetRole(ctx context.Context, telegramID int64, roleID int) error {
	user, ok := f.state.users[telegramID]
	if !ok {
		return entity.ErrUserNotFound
	}
	user.RoleID = roleID
	f.state.users[telegramID] = user
	return nil
}

func (f *fakeStore) GetRole(ctx context.Context, roleID int) (*entity.Role, error) {
	role, ok := f.state.roles[roleID]
	if !ok {
		return nil, fmt.Errorf("role %d not found", roleID)
	}
	r := role
	return &r, nil
}

func (f *fakeStore) GetRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	for _, role := range f.state.roles {
		if role.Name == name {
			r := role
			return &r, nil
		}
	}
	return nil, fmt.Errorf("role %q not found", name)
}

func (f *fakeStore) UpsertRole(ctx context.Context, role *entity.Role) error {
	f.state.roles[role.ID] = *role
	return nil
}

// Catalog

func (f *fakeStore) GetGood(ctx context.Context, name string) (*entity.Good, error) {
	good, ok := f.state.goods[name]
	if !ok {
		return nil, entity.ErrItemNotFound
	}
	g := good
	return &g, nil
}

func (f *fakeStore) GetGoodShared(ctx context.Context, name string) (*entity.Good, error) {
	return f.GetGood(ctx, name)
}

func (f *fakeStore) CreateGood(ctx context.Context, good *entity.Good) error {
	f.state.goods[good.Name] = *good
	return nil
}

func (f *fakeStore) DeleteGood(ctx context.Context, name string) error {
	if _, ok := f.state.goods[name]; !ok {
		return entity.ErrItemNotFound
	}
	delete(f.state.goods, name)
	for id, unit := range f.state.stock {
		if unit.ItemName == name {
			delete(f.state.stock, id)
		}
	}
	return nil
}

func (f *fakeStore) CreateCategory(ctx context.Context, name string) error {
	f.state.categories[name] = true
	return nil
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	var categories []*entity.Category
	for name := range f.state.categories {
		categories = append(categories, &entity.Category{Name: name})
	}
	return categories, nil
}

func (f *fakeStore) ListGoods(ctx context.Context, category string) ([]*entity.Good, error) {
	var goods []*entity.Good
	for _, good := range f.state.goods {
		if category == "" || good.CategoryName == category {
			g := good
			goods = append(goods, &g)
		}
	}
	return goods, nil
}

func (f *fakeStore) AddStockUnit(ctx context.Context, unit *entity.StockUnit) (bool, error) {
	for _, existing := range f.state.stock {
		if existing.ItemName == unit.ItemName && existing.Payload == unit.Payload {
			return false, nil
		}
	}
	u := *unit
	u.ID = f.state.nextStockID
	f.state.nextStockID++
	f.state.stock[u.ID] = u
	unit.ID = u.ID
	return true, nil
}

func (f *fakeStore) CountStock(ctx context.Context, itemName string) (int64, error) {
	var count int64
	for _, unit := range f.state.stock {
		if unit.ItemName == itemName {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) HasInfiniteUnit(ctx context.Context, itemName string) (bool, error) {
	for _, unit := range f.state.stock {
		if unit.ItemName == itemName && unit.IsInfinite {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) AllocateUnit(ctx context.Context, itemName string) (string, bool, error) {
	var best *entity.StockUnit
	for id := range f.state.stock {
		unit := f.state.stock[id]
		if unit.ItemName != itemName {
			continue
		}
		if unit.IsInfinite {
			return unit.Payload, false, nil
		}
		if best == nil || unit.ID < best.ID {
			u := unit
			best = &u
		}
	}
	if best == nil {
		return "", false, entity.ErrOutOfStock
	}
	delete(f.state.stock, best.ID)
	return best.Payload, true, nil
}

// Sales

func (f *fakeStore) InsertSoldUnit(ctx context.Context, sold *entity.SoldUnit) error {
	if f.failOnInsertSold {
		return errors.New("injected sale insert failure")
	}
	s := *sold
	s.ID = f.state.nextSoldID
	f.state.nextSoldID++
	f.state.sold = append(f.state.sold, s)
	sold.ID = s.ID
	return nil
}

func (f *fakeStore) GetSoldUnit(ctx context.Context, saleID string) (*entity.SoldUnit, error) {
	for i := range f.state.sold {
		if f.state.sold[i].SaleID == saleID {
			s := f.state.sold[i]
			return &s, nil
		}
	}
	return nil, entity.ErrItemNotFound
}

func (f *fakeStore) ListUserPurchases(ctx context.Context, buyerID int64, limit, offset int) ([]*entity.SoldUnit, error) {
	var purchases []*entity.SoldUnit
	for i := range f.state.sold {
		if f.state.sold[i].BuyerID == buyerID {
			s := f.state.sold[i]
			purchases = append(purchases, &s)
		}
	}
	return purchases, nil
}

// Payments

func (f *fakeStore) InsertPayment(ctx context.Context, payment *entity.PaymentRecord) error {
	key := paymentKey(payment.Provider, payment.ExternalID)
	if _, ok := f.state.payments[key]; ok {
		return entity.ErrAlreadyProcessed
	}
	p := *payment
	p.ID = f.state.nextPayID
	f.state.nextPayID++
	p.CreatedAt = time.Now().UTC()
	f.state.payments[key] = p
	payment.ID = p.ID
	return nil
}

func (f *fakeStore) InsertOperation(ctx context.Context, op *entity.Operation) error {
	o := *op
	o.CreatedAt = time.Now().UTC()
	f.state.operations = append(f.state.operations, o)
	return nil
}

func (f *fakeStore) InsertReferralEarning(ctx context.Context, earning *entity.ReferralEarning) error {
	e := *earning
	e.CreatedAt = time.Now().UTC()
	f.state.earnings = append(f.state.earnings, e)
	return nil
}

func (f *fakeStore) CreatePendingTopup(ctx context.Context, pending *entity.PendingTopup) error {
	key := paymentKey(pending.Provider, pending.ExternalID)
	p := *pending
	p.CreatedAt = time.Now().UTC()
	f.state.pendings[key] = p
	return nil
}

func (f *fakeStore) GetPendingTopup(ctx context.Context, provider, externalID string) (*entity.PendingTopup, error) {
	pending, ok := f.state.pendings[paymentKey(provider, externalID)]
	if !ok {
		return nil, errors.New("pending topup not found")
	}
	p := pending
	return &p, nil
}

func (f *fakeStore) ListStalePendingTopups(ctx context.Context, provider string, olderThan time.Time) ([]*entity.PendingTopup, error) {
	var stale []*entity.PendingTopup
	for key := range f.state.pendings {
		pending := f.state.pendings[key]
		if pending.Provider == provider && pending.CreatedAt.Before(olderThan) {
			p := pending
			stale = append(stale, &p)
		}
	}
	return stale, nil
}

func (f *fakeStore) DeletePendingTopup(ctx context.Context, provider, externalID string) error {
	delete(f.state.pendings, paymentKey(provider, externalID))
	return nil
}

// Referral reporting

func (f *fakeStore) CountReferrals(ctx context.Context, referrerID int64) (int64, error) {
	var count int64
	for _, user := range f.state.users {
		if user.ReferrerID != nil && *user.ReferrerID == referrerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ReferralEarningsSummary(ctx context.Context, referrerID int64) (int64, int64, error) {
	var count, total int64
	for i := range f.state.earnings {
		if f.state.earnings[i].ReferrerID == referrerID {
			count++
			total += f.state.earnings[i].Amount
		}
	}
	return count, total, nil
}

// Stats and health

func (f *fakeStore) Stats(ctx context.Context) (*persistent.Stats, error) {
	stats := &persistent.Stats{
		Users:      int64(len(f.state.users)),
		Goods:      int64(len(f.state.goods)),
		StockUnits: int64(len(f.state.stock)),
		Sold:       int64(len(f.state.sold)),
	}
	for i := range f.state.sold {
		stats.Revenue += f.state.sold[i].Price
	}
	for i := range f.state.operations {
		stats.TopUpTotal += f.state.operations[i].Amount
	}
	return stats, nil
}

func (f *fakeStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(f.state.users))
	for id := range f.state.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	return nil
}

var _ persistent.Store = (*fakeStore)(nil)
