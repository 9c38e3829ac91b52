package xlsx

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/phenrril/expressbi/internal/domain"
)

func TestTableUnionHeaders(t *testing.T) {
	headers, rows := Table([]domain.Customer{
		{Name: "Bob", Revenue: math.NaN(), Status: domain.StatusInactive},
		{Name: "Ana", Revenue: 10, Status: domain.StatusActive},
	})
	want := []string{"nome", "nascimento", "email", "cpf", "observacoes", "status", "faturamento"}
	if len(headers) != len(want) {
		t.Fatalf("expected %v got %v", want, headers)
	}
	for i := range want {
		if headers[i] != want[i] {
			t.Fatalf("expected %v got %v", want, headers)
		}
	}
	if rows[0][6] != nil {
		t.Fatalf("missing revenue should be nil, got %v", rows[0][6])
	}
	if rows[1][6] != 10.0 {
		t.Fatalf("unexpected revenue %v", rows[1][6])
	}
}

func TestEncodeWritesOneSheet(t *testing.T) {
	records := []domain.Customer{
		{Name: "Ana", BirthDate: "1990-01-01", Email: "ana@x.com", TaxID: "123", Revenue: 1500.5, Status: domain.StatusActive},
		{Name: "Bob", BirthDate: "1985-05-05", Email: "bob@x.com", TaxID: "456", Revenue: 20, Status: domain.StatusInactive},
	}
	data, err := Encoder{}.Encode("Clientes", records)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != "Clientes" {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	rows, err := f.GetRows("Clientes")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows got %d", len(rows))
	}
	for i, k := range domain.FieldKeys {
		if rows[0][i] != k {
			t.Fatalf("header %d: expected %s got %s", i, k, rows[0][i])
		}
	}
	for _, h := range rows[0] {
		if h == "id" {
			t.Fatal("id column must not be exported")
		}
	}
	if rows[1][0] != "Ana" || rows[2][0] != "Bob" {
		t.Fatalf("unexpected names %v / %v", rows[1], rows[2])
	}
	if rows[1][5] != "1500.5" {
		t.Fatalf("unexpected revenue cell %q", rows[1][5])
	}
}

func TestTableOnlyStoredKeys(t *testing.T) {
	var records []domain.Customer
	if err := json.Unmarshal([]byte(`[{"nome":"Ana","status":"ativo"},{"email":"bob@x.com","nome":"Bob"}]`), &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	headers, rows := Table(records)
	want := []string{"nome", "status", "email"}
	if len(headers) != len(want) {
		t.Fatalf("expected %v got %v", want, headers)
	}
	for i := range want {
		if headers[i] != want[i] {
			t.Fatalf("expected %v got %v", want, headers)
		}
	}
	if rows[0][2] != nil || rows[1][1] != nil {
		t.Fatalf("missing keys should be empty cells: %v", rows)
	}
	if rows[1][0] != "Bob" || rows[1][2] != "bob@x.com" {
		t.Fatalf("unexpected row %v", rows[1])
	}
}
