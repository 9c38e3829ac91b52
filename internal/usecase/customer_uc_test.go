package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/phenrril/expressbi/internal/domain"
)

type fakeStore struct {
	mu      sync.Mutex
	pushed  []domain.Customer
	snap    domain.Snapshot
	pushErr error
	getErr  error
	gets    int
	subs    chan func(domain.Snapshot)
}

func (f *fakeStore) Push(_ context.Context, c domain.Customer) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return "", f.pushErr
	}
	f.pushed = append(f.pushed, c)
	return "k" + string(rune('0'+len(f.pushed))), nil
}

func (f *fakeStore) Get(context.Context) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	return f.snap, f.getErr
}

func (f *fakeStore) Subscribe(ctx context.Context, fn func(domain.Snapshot)) error {
	if f.subs != nil {
		f.subs <- fn
	}
	<-ctx.Done()
	return ctx.Err()
}

type fakeEncoder struct {
	sheet   string
	records []domain.Customer
	err     error
}

func (e *fakeEncoder) Encode(sheet string, records []domain.Customer) ([]byte, error) {
	e.sheet, e.records = sheet, records
	if e.err != nil {
		return nil, e.err
	}
	return []byte("xlsx"), nil
}

func TestRegisterBuildsPayload(t *testing.T) {
	st := &fakeStore{}
	uc := &CustomerUC{Store: st}
	_, err := uc.Register(context.Background(), RegisterInput{
		Name: "Ana", BirthDate: "1990-01-01", Email: "ana@x.com", TaxID: "123", Notes: "", Revenue: "1500.50", Status: "ativo",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(st.pushed) != 1 {
		t.Fatalf("expected exactly one write got %d", len(st.pushed))
	}
	want := domain.Customer{Name: "Ana", BirthDate: "1990-01-01", Email: "ana@x.com", TaxID: "123", Notes: "", Revenue: 1500.5, Status: domain.StatusActive}
	if st.pushed[0] != want {
		t.Fatalf("unexpected payload %+v", st.pushed[0])
	}
}

func TestRegisterNonNumericRevenueIsNaN(t *testing.T) {
	st := &fakeStore{}
	uc := &CustomerUC{Store: st}
	if _, err := uc.Register(context.Background(), RegisterInput{Name: "Bob", Revenue: "abc"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !math.IsNaN(st.pushed[0].Revenue) {
		t.Fatalf("expected NaN got %v", st.pushed[0].Revenue)
	}
	if st.pushed[0].Status != domain.StatusActive {
		t.Fatalf("expected default status got %q", st.pushed[0].Status)
	}
}

func TestRegisterFailure(t *testing.T) {
	st := &fakeStore{pushErr: domain.ErrStore}
	uc := &CustomerUC{Store: st}
	if _, err := uc.Register(context.Background(), RegisterInput{Name: "Ana"}); !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected ErrStore got %v", err)
	}
}

func TestExportNoData(t *testing.T) {
	enc := &fakeEncoder{}
	uc := &CustomerUC{Store: &fakeStore{}, Encoder: enc}
	if _, err := uc.Export(context.Background()); !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData got %v", err)
	}
	if enc.records != nil {
		t.Fatal("encoder must not run without data")
	}
}

func TestExportDropsKeys(t *testing.T) {
	st := &fakeStore{snap: domain.Snapshot{
		{Key: "k1", Customer: domain.Customer{Name: "Ana"}},
		{Key: "k2", Customer: domain.Customer{Name: "Bob"}},
	}}
	enc := &fakeEncoder{}
	uc := &CustomerUC{Store: st, Encoder: enc}
	data, err := uc.Export(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if string(data) != "xlsx" || enc.sheet != ExportSheet {
		t.Fatalf("unexpected encode call %q %q", data, enc.sheet)
	}
	if len(enc.records) != 2 || enc.records[0].ID != "" || enc.records[1].Name != "Bob" {
		t.Fatalf("unexpected records %+v", enc.records)
	}
}

func TestExportReadFailure(t *testing.T) {
	uc := &CustomerUC{Store: &fakeStore{getErr: domain.ErrStore}, Encoder: &fakeEncoder{}}
	if _, err := uc.Export(context.Background()); !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected ErrStore got %v", err)
	}
}

func TestLiveListReplacesOnEveryNotification(t *testing.T) {
	st := &fakeStore{subs: make(chan func(domain.Snapshot), 1)}
	l := NewLiveList(st)
	notified := make(chan []domain.Customer, 4)
	l.OnChange(func(list []domain.Customer) { notified <- list })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	var fn func(domain.Snapshot)
	select {
	case fn = <-st.subs:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not opened")
	}

	fn(domain.Snapshot{
		{Key: "k1", Customer: domain.Customer{Name: "Ana"}},
		{Key: "k2", Customer: domain.Customer{Name: "Bob"}},
	})
	got := l.Items()
	if len(got) != 2 || got[0].ID != "k1" || got[0].Name != "Ana" || got[1].ID != "k2" || got[1].Name != "Bob" {
		t.Fatalf("unexpected list %+v", got)
	}

	fn(domain.Snapshot{{Key: "k2", Customer: domain.Customer{Name: "Bob"}}})
	got = l.Items()
	if len(got) != 1 || got[0].ID != "k2" {
		t.Fatalf("list must be fully replaced, got %+v", got)
	}

	fn(nil)
	if got := l.Items(); len(got) != 0 {
		t.Fatalf("empty snapshot must clear the list, got %+v", got)
	}
	if len(notified) != 3 {
		t.Fatalf("expected 3 notifications got %d", len(notified))
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
