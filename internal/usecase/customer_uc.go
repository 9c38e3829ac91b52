package usecase

import (
	"context"
	"fmt"

	"github.com/phenrril/expressbi/internal/domain"
)

const (
	ExportSheet    = "Clientes"
	ExportFileName = "clientes.xlsx"
)

// SheetEncoder encodes records as a spreadsheet file.
type SheetEncoder interface {
	Encode(sheet string, records []domain.Customer) ([]byte, error)
}

type CustomerUC struct {
	Store   domain.CustomerStore
	Encoder SheetEncoder
}

// RegisterInput son los campos del formulario tal cual llegan.
type RegisterInput struct {
	Name      string
	BirthDate string
	Email     string
	TaxID     string
	Notes     string
	Revenue   string
	Status    string
}

func (in RegisterInput) Customer() domain.Customer {
	return domain.Customer{
		Name:      in.Name,
		BirthDate: in.BirthDate,
		Email:     in.Email,
		TaxID:     in.TaxID,
		Notes:     in.Notes,
		Revenue:   domain.ParseRevenue(in.Revenue),
		Status:    domain.NormalizeStatus(in.Status),
	}
}

// Register issues a single append-write. The local list is not touched; it
// follows the store subscription.
func (uc *CustomerUC) Register(ctx context.Context, in RegisterInput) (string, error) {
	key, err := uc.Store.Push(ctx, in.Customer())
	if err != nil {
		return "", fmt.Errorf("cadastrar cliente: %w", err)
	}
	return key, nil
}

// Export reads the collection once and encodes it without the keys.
// Concurrent calls are independent.
func (uc *CustomerUC) Export(ctx context.Context) ([]byte, error) {
	snap, err := uc.Store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("exportar: %w", err)
	}
	if !snap.Exists() {
		return nil, domain.ErrNoData
	}
	data, err := uc.Encoder.Encode(ExportSheet, snap.Records())
	if err != nil {
		return nil, fmt.Errorf("exportar: %w", err)
	}
	return data, nil
}
