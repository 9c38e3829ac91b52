package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CollectionPath es la ruta fija donde viven todos los clientes.
const CollectionPath = "tab_clientes"

type Status string

const (
	StatusActive   Status = "ativo"
	StatusInactive Status = "inativo"
)

// Customer es el registro financiero de un cliente. ID es la clave generada
// por el store y no forma parte del documento persistido.
type Customer struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"nome"`
	BirthDate string  `json:"nascimento"`
	Email     string  `json:"email"`
	TaxID     string  `json:"cpf"`
	Notes     string  `json:"observacoes"`
	Revenue   float64 `json:"faturamento"`
	Status    Status  `json:"status"`

	// claves que el documento leído no traía; cero = todas presentes
	absent fieldSet
}

// fieldSet has one bit per entry of FieldKeys.
type fieldSet uint8

// Field keys in document order.
const (
	FieldName      = "nome"
	FieldBirthDate = "nascimento"
	FieldEmail     = "email"
	FieldTaxID     = "cpf"
	FieldNotes     = "observacoes"
	FieldRevenue   = "faturamento"
	FieldStatus    = "status"
)

var FieldKeys = []string{FieldName, FieldBirthDate, FieldEmail, FieldTaxID, FieldNotes, FieldRevenue, FieldStatus}

func fieldBit(key string) fieldSet {
	for i, k := range FieldKeys {
		if k == key {
			return 1 << i
		}
	}
	return 0
}

// BlankCustomer is a document without any known key. Stored documents that
// cannot be read at all still produce an entry, as this value.
func BlankCustomer() Customer {
	return Customer{Revenue: math.NaN(), absent: fieldSet(1<<len(FieldKeys)) - 1}
}

// Has reports whether key was present in the document. Customers built in
// code have every key.
func (c Customer) Has(key string) bool {
	b := fieldBit(key)
	return b != 0 && c.absent&b == 0
}

// ParseRevenue convierte el texto del formulario. Un texto no numérico
// produce NaN y no se rechaza.
func ParseRevenue(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// NormalizeStatus aplica el default "ativo" cuando no viene informado.
func NormalizeStatus(s string) Status {
	s = strings.TrimSpace(s)
	if s == "" {
		return StatusActive
	}
	return Status(s)
}

// HasRevenue reports whether Revenue is a finite number.
func (c Customer) HasRevenue() bool {
	return !math.IsNaN(c.Revenue) && !math.IsInf(c.Revenue, 0)
}

// WithoutID devuelve el documento tal cual se persiste.
func (c Customer) WithoutID() Customer {
	c.ID = ""
	return c
}

// Field is a single key/value pair of a customer document.
type Field struct {
	Key   string
	Value any
}

// Fields returns the keys the document carries, in FieldKeys order. A non
// finite revenue is absent, the same way it is absent from the stored JSON.
func (c Customer) Fields() []Field {
	out := make([]Field, 0, len(FieldKeys))
	for _, k := range FieldKeys {
		if !c.Has(k) {
			continue
		}
		switch k {
		case FieldRevenue:
			if c.HasRevenue() {
				out = append(out, Field{k, c.Revenue})
			}
		case FieldStatus:
			out = append(out, Field{k, string(c.Status)})
		default:
			out = append(out, Field{k, *c.text(k)})
		}
	}
	return out
}

func (c *Customer) text(key string) *string {
	switch key {
	case FieldName:
		return &c.Name
	case FieldBirthDate:
		return &c.BirthDate
	case FieldEmail:
		return &c.Email
	case FieldTaxID:
		return &c.TaxID
	case FieldNotes:
		return &c.Notes
	}
	return nil
}

// MarshalJSON escribe solo las claves presentes; un faturamento NaN sale
// como null, igual que JSON.stringify.
func (c Customer) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	put := func(k string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(strconv.Quote(k))
		buf.WriteByte(':')
		buf.Write(b)
		return nil
	}
	if c.ID != "" {
		if err := put("id", c.ID); err != nil {
			return nil, err
		}
	}
	for _, k := range FieldKeys {
		if !c.Has(k) {
			continue
		}
		var v any
		switch k {
		case FieldRevenue:
			if c.HasRevenue() {
				v = c.Revenue
			}
		case FieldStatus:
			v = string(c.Status)
		default:
			v = *c.text(k)
		}
		if err := put(k, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON lee campo por campo. Un valor de tipo inesperado no descarta
// el documento: los escalares se toman como texto y el faturamento se parsea
// como el del formulario. null y claves ausentes quedan marcadas como ausentes.
func (c *Customer) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*c = Customer{Revenue: math.NaN()}
	if raw, ok := m["id"]; ok && !isNullJSON(raw) {
		c.ID = looseString(raw)
	}
	for i, k := range FieldKeys {
		raw, ok := m[k]
		if !ok || isNullJSON(raw) {
			c.absent |= 1 << i
			continue
		}
		switch k {
		case FieldRevenue:
			c.Revenue = looseNumber(raw)
		case FieldStatus:
			c.Status = Status(looseString(raw))
		default:
			*c.text(k) = looseString(raw)
		}
	}
	return nil
}

func isNullJSON(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func looseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func looseNumber(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseRevenue(s)
	}
	return math.NaN()
}
