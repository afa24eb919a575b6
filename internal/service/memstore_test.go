package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/iliyamo/product-sales-api/internal/model"
	"github.com/iliyamo/product-sales-api/internal/repository"
	"github.com/iliyamo/product-sales-api/internal/utils"
)

// memState is the whole in-memory database.
type memState struct {
	users    map[uint64]model.User
	tokens   map[uint64]model.RefreshToken
	products map[uint64]model.Product
	sales    []model.Sale
	nextID   uint64
}

func newMemState() *memState {
	return &memState{
		users:    map[uint64]model.User{},
		tokens:   map[uint64]model.RefreshToken{},
		products: map[uint64]model.Product{},
	}
}

func (s *memState) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *memState) clone() *memState {
	c := &memState{
		users:    make(map[uint64]model.User, len(s.users)),
		tokens:   make(map[uint64]model.RefreshToken, len(s.tokens)),
		products: make(map[uint64]model.Product, len(s.products)),
		sales:    append([]model.Sale(nil), s.sales...),
		nextID:   s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	return c
}

// memUoW runs each unit of work on a copy of the state and swaps it in on
// success. The mutex makes units of work fully serial, which is what row
// locks give the SQL implementation for the rows these tests contend on.
type memUoW struct {
	mu    sync.Mutex
	state *memState

	failSaleInsert  error
	failTokenInsert error
}

func newMemUoW() *memUoW { return &memUoW{state: newMemState()} }

func (u *memUoW) Do(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	work := u.state.clone()
	if err := fn(ctx, u.repos(work)); err != nil {
		return err
	}
	u.state = work
	return nil
}

func (u *memUoW) repos(st *memState) repository.Repositories {
	return repository.Repositories{
		Users:    &memUsers{st: st},
		Tokens:   &memTokens{st: st, failInsert: u.failTokenInsert},
		Products: &memProducts{st: st},
		Sales:    &memSales{st: st, failInsert: u.failSaleInsert},
	}
}

// read gives the committed state to assertions.
func (u *memUoW) read() *memState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state.clone()
}

func (u *memUoW) addProduct(p model.Product) model.Product {
	u.mu.Lock()
	defer u.mu.Unlock()
	if p.ID == 0 {
		p.ID = u.state.id()
	} else if p.ID > u.state.nextID {
		u.state.nextID = p.ID
	}
	u.state.products[p.ID] = p
	return p
}

func (u *memUoW) stock(id uint64) int {
	return u.read().products[id].Stock
}

type memUsers struct{ st *memState }

func (r *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.st.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) FindByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) Insert(ctx context.Context, u *model.User) error {
	if _, err := r.FindByEmail(ctx, u.Email); err == nil {
		return repository.ErrDuplicate
	}
	u.ID = r.st.id()
	r.st.users[u.ID] = *u
	return nil
}

type memTokens struct {
	st         *memState
	failInsert error
}

func (r *memTokens) Insert(_ context.Context, t *model.RefreshToken) error {
	if r.failInsert != nil {
		return r.failInsert
	}
	t.TokenHash = utils.HashRefreshToken(t.Token)
	t.ID = r.st.id()
	stored := *t
	stored.Token = ""
	r.st.tokens[t.ID] = stored
	return nil
}

func (r *memTokens) FindActiveForUpdate(_ context.Context, token string) (*model.RefreshToken, error) {
	h := utils.HashRefreshToken(token)
	for _, t := range r.st.tokens {
		if t.TokenHash == h && !t.IsRevoked {
			t := t
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memTokens) Revoke(_ context.Context, id uint64) error {
	t, ok := r.st.tokens[id]
	if !ok || t.IsRevoked {
		return repository.ErrNotFound
	}
	t.IsRevoked = true
	r.st.tokens[id] = t
	return nil
}

func (r *memTokens) RevokeAllForUser(_ context.Context, userID uint64) (int64, error) {
	var n int64
	for id, t := range r.st.tokens {
		if t.UserID == userID && !t.IsRevoked {
			t.IsRevoked = true
			r.st.tokens[id] = t
			n++
		}
	}
	return n, nil
}

type memProducts struct{ st *memState }

func (r *memProducts) FindByID(_ context.Context, id uint64) (*model.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *memProducts) FindByIDs(_ context.Context, ids []uint64) ([]model.Product, error) {
	var out []model.Product
	for _, id := range ids {
		if p, ok := r.st.products[id]; ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memProducts) FindByIDsForUpdate(ctx context.Context, ids []uint64) ([]model.Product, error) {
	return r.FindByIDs(ctx, ids)
}

func (r *memProducts) PersistStockChanges(_ context.Context, products []*model.Product) error {
	for _, p := range products {
		cur, ok := r.st.products[p.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if p.Stock < 0 {
			return errors.New("check constraint: stock >= 0")
		}
		cur.Stock = p.Stock
		r.st.products[p.ID] = cur
	}
	return nil
}

func (r *memProducts) List(_ context.Context) ([]model.Product, error) {
	out := []model.Product{}
	for _, p := range r.st.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memProducts) Create(_ context.Context, p *model.Product) error {
	p.ID = r.st.id()
	r.st.products[p.ID] = *p
	return nil
}

func (r *memProducts) Update(_ context.Context, p *model.Product) error {
	if _, ok := r.st.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	r.st.products[p.ID] = *p
	return nil
}

func (r *memProducts) Delete(_ context.Context, id uint64) error {
	if _, ok := r.st.products[id]; !ok {
		return repository.ErrNotFound
	}
	for _, s := range r.st.sales {
		for _, it := range s.Items {
			if it.ProductID == id {
				return repository.ErrConflict
			}
		}
	}
	delete(r.st.products, id)
	return nil
}

type memSales struct {
	st         *memState
	failInsert error
}

func (r *memSales) Insert(_ context.Context, s *model.Sale) error {
	if r.failInsert != nil {
		return r.failInsert
	}
	s.ID = r.st.id()
	for i := range s.Items {
		s.Items[i].ID = r.st.id()
		s.Items[i].SaleID = s.ID
	}
	stored := *s
	stored.Items = append([]model.SaleItem(nil), s.Items...)
	r.st.sales = append(r.st.sales, stored)
	return nil
}

func (r *memSales) ListByDateRange(_ context.Context, start, end model.Date) ([]model.Sale, error) {
	out := []model.Sale{}
	for _, s := range r.st.sales {
		if s.Date.Before(start) || s.Date.After(end) {
			continue
		}
		items := make([]model.SaleItem, len(s.Items))
		for i, it := range s.Items {
			p := r.st.products[it.ProductID]
			it.Product = &p
			items[i] = it
		}
		s.Items = items
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// memSalesView exposes committed sales to SalesReport.
type memSalesView struct{ uow *memUoW }

func (v memSalesView) Insert(context.Context, *model.Sale) error {
	return errors.New("read only")
}

func (v memSalesView) ListByDateRange(ctx context.Context, start, end model.Date) ([]model.Sale, error) {
	st := v.uow.read()
	return (&memSales{st: st}).ListByDateRange(ctx, start, end)
}
