package domain

import (
	"context"
	"errors"
)

var (
	ErrNoData = errors.New("nenhum dado encontrado")
	ErrStore  = errors.New("store")
)

// Entry is one keyed document of a snapshot.
type Entry struct {
	Key      string
	Customer Customer
}

// Snapshot es el contenido completo de la colección, en el orden de
// enumeración del store.
type Snapshot []Entry

func (s Snapshot) Exists() bool { return len(s) > 0 }

// Customers devuelve un registro por clave con el ID completado.
func (s Snapshot) Customers() []Customer {
	out := make([]Customer, 0, len(s))
	for _, e := range s {
		c := e.Customer
		c.ID = e.Key
		out = append(out, c)
	}
	return out
}

// Records devuelve los valores sin la clave, para exportar.
func (s Snapshot) Records() []Customer {
	out := make([]Customer, 0, len(s))
	for _, e := range s {
		out = append(out, e.Customer.WithoutID())
	}
	return out
}

// CustomerStore is the binding to the document store holding CollectionPath.
type CustomerStore interface {
	// Push appends a document under a store generated key.
	Push(ctx context.Context, c Customer) (string, error)
	// Get reads the whole collection once.
	Get(ctx context.Context) (Snapshot, error)
	// Subscribe calls fn with the initial snapshot and after every change,
	// until ctx is done or the stream fails.
	Subscribe(ctx context.Context, fn func(Snapshot)) error
}
