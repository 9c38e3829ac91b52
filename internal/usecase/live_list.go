package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/expressbi/internal/domain"
)

// LiveList mantiene en memoria la lista de clientes. Solo la escribe la
// suscripción al store, y cada notificación reemplaza la lista entera.
type LiveList struct {
	Store domain.CustomerStore
	// Reconnect is the pause before reopening a failed subscription.
	Reconnect time.Duration

	mu        sync.RWMutex
	items     []domain.Customer
	listeners []func([]domain.Customer)
}

func NewLiveList(store domain.CustomerStore) *LiveList {
	return &LiveList{Store: store, Reconnect: 3 * time.Second, items: []domain.Customer{}}
}

// OnChange registers fn to be called with every new list. Register before Run.
func (l *LiveList) OnChange(fn func([]domain.Customer)) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// Run keeps the subscription open until ctx is done, reopening it when the
// store stream drops.
func (l *LiveList) Run(ctx context.Context) {
	for {
		err := l.Store.Subscribe(ctx, l.apply)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("suscripción a clientes")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.Reconnect):
		}
	}
}

func (l *LiveList) apply(s domain.Snapshot) {
	items := []domain.Customer{}
	if s.Exists() {
		items = s.Customers()
	}
	l.mu.Lock()
	l.items = items
	fns := append([]func([]domain.Customer){}, l.listeners...)
	l.mu.Unlock()

	log.Debug().Int("clientes", len(items)).Msg("lista actualizada")
	for _, fn := range fns {
		fn(copyList(items))
	}
}

// Items devuelve una copia de la lista actual.
func (l *LiveList) Items() []domain.Customer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyList(l.items)
}

func copyList(in []domain.Customer) []domain.Customer {
	out := make([]domain.Customer, len(in))
	copy(out, in)
	return out
}
