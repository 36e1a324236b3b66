package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AlchemistMonkey02/Geotree-server/internal/combined"
	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
	"github.com/AlchemistMonkey02/Geotree-server/internal/store"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory store.Store. Filters are ignored; the
// combined primitives order rows by the requested sort.
type fakeStore struct {
	rows map[plantation.Kind][]plantation.CombinedResult

	individuals map[string]*plantation.IndividualPlantation
	blocks      map[string]*plantation.BlockPlantation
	lands       map[string]*plantation.LandOwnership

	pingErr   error
	listErr   error
	writeErr  error
	verifyErr error

	panicOnGet string

	createdBy    string
	lastVerify   plantation.VerifyInput
	lastVerifier string
	lastLand     store.LandFilter

	mu        sync.Mutex
	lastQuery []combined.Predicate
}

var _ store.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:        map[plantation.Kind][]plantation.CombinedResult{},
		individuals: map[string]*plantation.IndividualPlantation{},
		blocks:      map[string]*plantation.BlockPlantation{},
		lands:       map[string]*plantation.LandOwnership{},
	}
}

func (f *fakeStore) addIndividual(p *plantation.IndividualPlantation) {
	f.individuals[p.ID] = p
	f.rows[plantation.KindIndividual] = append(f.rows[plantation.KindIndividual],
		plantation.CombinedResult{Kind: plantation.KindIndividual, Individual: p})
}

func (f *fakeStore) addBlock(b *plantation.BlockPlantation) {
	f.blocks[b.ID] = b
	f.rows[plantation.KindBlock] = append(f.rows[plantation.KindBlock],
		plantation.CombinedResult{Kind: plantation.KindBlock, Block: b})
}

func (f *fakeStore) sorted(kind plantation.Kind, s combined.Sort) []plantation.CombinedResult {
	rows := append([]plantation.CombinedResult(nil), f.rows[kind]...)
	sort.SliceStable(rows, func(i, j int) bool {
		a := combined.Entry{ID: rows[i].Base().ID, Kind: kind, Key: s.KeyOf(rows[i].Base())}
		b := combined.Entry{ID: rows[j].Base().ID, Kind: kind, Key: s.KeyOf(rows[j].Base())}
		return s.Less(a, b)
	})
	return rows
}

func (f *fakeStore) Count(_ context.Context, pred combined.Predicate) (int, error) {
	f.mu.Lock()
	f.lastQuery = append(f.lastQuery, pred)
	f.mu.Unlock()
	if f.listErr != nil {
		return 0, f.listErr
	}
	return len(f.rows[pred.Kind]), nil
}

func (f *fakeStore) Find(_ context.Context, pred combined.Predicate, s combined.Sort, offset, limit int) ([]plantation.CombinedResult, error) {
	rows := f.sorted(pred.Kind, s)
	if offset >= len(rows) {
		return nil, nil
	}
	return rows[offset:min(offset+limit, len(rows))], nil
}

func (f *fakeStore) Keys(_ context.Context, pred combined.Predicate, s combined.Sort, n int) ([]combined.Entry, error) {
	rows := f.sorted(pred.Kind, s)
	out := make([]combined.Entry, 0, n)
	for _, r := range rows[:min(n, len(rows))] {
		out = append(out, combined.Entry{ID: r.Base().ID, Kind: pred.Kind, Key: s.KeyOf(r.Base())})
	}
	return out, nil
}

func (f *fakeStore) FetchByIDs(_ context.Context, pred combined.Predicate, ids []string) ([]plantation.CombinedResult, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []plantation.CombinedResult
	for _, r := range f.rows[pred.Kind] {
		if want[r.Base().ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) BlockOverview(context.Context, combined.Predicate) (combined.BlockOverview, error) {
	o := combined.BlockOverview{TotalPlantations: len(f.blocks)}
	for _, b := range f.blocks {
		o.TotalTrees += b.NumberOfTrees
		o.StatusCounts = o.Add(countOf(b.Status))
	}
	return o, nil
}

func (f *fakeStore) IndividualOverview(context.Context, combined.Predicate) (combined.IndividualOverview, error) {
	o := combined.IndividualOverview{TotalPlantations: len(f.individuals)}
	for _, p := range f.individuals {
		o.StatusCounts = o.Add(countOf(p.Status))
	}
	return o, nil
}

func countOf(s plantation.Status) combined.StatusCounts {
	var c combined.StatusCounts
	c.Set(s, 1)
	return c
}

func (f *fakeStore) StateDistribution(context.Context, combined.Predicate) ([]combined.RegionBucket, error) {
	return nil, nil
}

func (f *fakeStore) MonthlyTrend(context.Context, combined.Predicate) ([]combined.MonthBucket, error) {
	return nil, nil
}

func (f *fakeStore) SpeciesDistribution(context.Context, combined.Predicate, int) ([]combined.SpeciesBucket, error) {
	return []combined.SpeciesBucket{{Name: "Neem", Quantity: 50}}, nil
}

func (f *fakeStore) CreateIndividual(_ context.Context, in plantation.NewIndividual, userID string) (*plantation.IndividualPlantation, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.createdBy = userID
	p := in.Plantation("new-individual", "new-land", userID, fixedNow)
	return &p, nil
}

func (f *fakeStore) GetIndividual(_ context.Context, id string) (*plantation.IndividualPlantation, error) {
	p, ok := f.individuals[id]
	if !ok {
		return nil, plantation.NotFound("individual plantation", id)
	}
	return p, nil
}

func (f *fakeStore) UpdateIndividual(_ context.Context, id string, patch plantation.IndividualPatch, userID string) (*plantation.IndividualPlantation, error) {
	p, ok := f.individuals[id]
	if !ok {
		return nil, plantation.NotFound("individual plantation", id)
	}
	if p.CreatedBy != userID {
		return nil, plantation.Forbidden("only the creator can update this plantation")
	}
	patch.Apply(p, fixedNow)
	return p, nil
}

func (f *fakeStore) DeleteIndividual(_ context.Context, id string) error {
	if _, ok := f.individuals[id]; !ok {
		return plantation.NotFound("individual plantation", id)
	}
	delete(f.individuals, id)
	return nil
}

func (f *fakeStore) VerifyIndividual(_ context.Context, id string, in plantation.VerifyInput, verifier string) (*plantation.IndividualPlantation, error) {
	f.lastVerify, f.lastVerifier = in, verifier
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	p, ok := f.individuals[id]
	if !ok {
		return nil, plantation.NotFound("individual plantation", id)
	}
	if _, err := p.Verify(in, verifier, fixedNow); err != nil {
		return nil, err
	}
	return p, nil
}

func (f *fakeStore) CreateBlock(_ context.Context, in plantation.NewBlock, userID string) (*plantation.BlockPlantation, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.createdBy = userID
	b := in.Plantation("new-block", "new-land", userID, fixedNow)
	return &b, nil
}

func (f *fakeStore) GetBlock(_ context.Context, id string) (*plantation.BlockPlantation, error) {
	b, ok := f.blocks[id]
	if !ok {
		return nil, plantation.NotFound("block plantation", id)
	}
	return b, nil
}

func (f *fakeStore) UpdateBlock(_ context.Context, id string, patch plantation.BlockPatch, userID string) (*plantation.BlockPlantation, error) {
	b, ok := f.blocks[id]
	if !ok {
		return nil, plantation.NotFound("block plantation", id)
	}
	if b.CreatedBy != userID {
		return nil, plantation.Forbidden("only the creator can update this plantation")
	}
	if err := patch.Apply(b, fixedNow); err != nil {
		return nil, err
	}
	return b, nil
}

func (f *fakeStore) DeleteBlock(_ context.Context, id string) error {
	if _, ok := f.blocks[id]; !ok {
		return plantation.NotFound("block plantation", id)
	}
	delete(f.blocks, id)
	return nil
}

func (f *fakeStore) VerifyBlock(_ context.Context, id string, in plantation.VerifyInput, verifier string) (*plantation.BlockPlantation, error) {
	f.lastVerify, f.lastVerifier = in, verifier
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	b, ok := f.blocks[id]
	if !ok {
		return nil, plantation.NotFound("block plantation", id)
	}
	if _, err := b.Verify(in, verifier, fixedNow); err != nil {
		return nil, err
	}
	return b, nil
}

func (f *fakeStore) CreateLand(_ context.Context, in plantation.LandOwnershipInput, userID string) (*plantation.LandOwnership, error) {
	l := in.LandOwnership("new-land", userID, fixedNow)
	f.lands[l.ID] = &l
	return &l, nil
}

func (f *fakeStore) GetLand(_ context.Context, id string) (*plantation.LandOwnership, error) {
	if f.panicOnGet != "" {
		panic(f.panicOnGet)
	}
	l, ok := f.lands[id]
	if !ok {
		return nil, plantation.NotFound("land ownership", id)
	}
	return l, nil
}

func (f *fakeStore) ListLand(_ context.Context, lf store.LandFilter) ([]plantation.LandOwnership, int, error) {
	f.lastLand = lf
	out := []plantation.LandOwnership{}
	for _, l := range f.lands {
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateLand(_ context.Context, id string, patch plantation.LandOwnershipPatch) (*plantation.LandOwnership, error) {
	l, ok := f.lands[id]
	if !ok {
		return nil, plantation.NotFound("land ownership", id)
	}
	patch.Apply(l)
	return l, nil
}

func (f *fakeStore) DeleteLand(_ context.Context, id string) error {
	if _, ok := f.lands[id]; !ok {
		return plantation.NotFound("land ownership", id)
	}
	delete(f.lands, id)
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) Close() error { return nil }
