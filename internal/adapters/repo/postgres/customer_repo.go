package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/expressbi/internal/domain"
)

type customerRow struct {
	Key         string          `gorm:"column:push_key;primaryKey;size:40"`
	Nome        string          `gorm:"size:140"`
	Nascimento  string          `gorm:"size:20"`
	Email       string          `gorm:"size:140"`
	CPF         string          `gorm:"column:cpf;size:30"`
	Observacoes string          `gorm:"type:text"`
	Faturamento sql.NullFloat64 `gorm:"type:double precision"`
	Status      string          `gorm:"size:10"`
	CreatedAt   time.Time
}

func (customerRow) TableName() string { return domain.CollectionPath }

func rowFromCustomer(key string, c domain.Customer) customerRow {
	r := customerRow{
		Key:         key,
		Nome:        c.Name,
		Nascimento:  c.BirthDate,
		Email:       c.Email,
		CPF:         c.TaxID,
		Observacoes: c.Notes,
		Status:      string(c.Status),
	}
	if c.HasRevenue() {
		r.Faturamento = sql.NullFloat64{Float64: c.Revenue, Valid: true}
	}
	return r
}

func (r customerRow) customer() domain.Customer {
	c := domain.Customer{
		Name:      r.Nome,
		BirthDate: r.Nascimento,
		Email:     r.Email,
		TaxID:     r.CPF,
		Notes:     r.Observacoes,
		Status:    domain.Status(r.Status),
		Revenue:   math.NaN(),
	}
	if r.Faturamento.Valid {
		c.Revenue = r.Faturamento.Float64
	}
	return c
}

// CustomerRepo guarda la colección en una tabla y avisa a los suscriptores
// del mismo proceso después de cada Push.
type CustomerRepo struct {
	db *gorm.DB

	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func NewCustomerRepo(db *gorm.DB) *CustomerRepo {
	return &CustomerRepo{db: db, subs: map[int]chan struct{}{}}
}

func (r *CustomerRepo) Migrate() error {
	return r.db.AutoMigrate(&customerRow{})
}

// Push inserta el documento bajo una clave UUIDv7, que ordena por tiempo
// de creación.
func (r *CustomerRepo) Push(ctx context.Context, c domain.Customer) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	row := rowFromCustomer(id.String(), c)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("%w: push: %v", domain.ErrStore, err)
	}
	r.signal()
	return row.Key, nil
}

func (r *CustomerRepo) Get(ctx context.Context) (domain.Snapshot, error) {
	var rows []customerRow
	if err := r.db.WithContext(ctx).Order("push_key asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: get: %v", domain.ErrStore, err)
	}
	snap := make(domain.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap = append(snap, domain.Entry{Key: row.Key, Customer: row.customer()})
	}
	return snap, nil
}

// Subscribe lee la tabla completa y se la pasa a fn, una vez al empezar y
// otra después de cada Push. Los avisos que llegan mientras fn corre se
// juntan en una sola lectura, así fn nunca recibe una foto más vieja que
// la anterior.
func (r *CustomerRepo) Subscribe(ctx context.Context, fn func(domain.Snapshot)) error {
	changed := make(chan struct{}, 1)
	r.mu.Lock()
	id := r.next
	r.next++
	r.subs[id] = changed
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}()

	for {
		snap, err := r.Get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fn(snap)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (r *CustomerRepo) signal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- struct{}{}:
		default:
			// ya hay un aviso pendiente
		}
	}
}
