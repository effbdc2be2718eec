package sync

import (
	"errors"
	"testing"

	"github.com/finadex/accsync/pkg/db"
	"github.com/finadex/accsync/pkg/provider"
	"github.com/shopspring/decimal"
)

func currencyFixture(t *testing.T, amount float64, currency string) (*fakeDocumentStorage, int64) {
	t.Helper()

	docs := newFakeDocumentStorage()
	row, err := provider.ToDocumentRow(wireDocument("d1", "Alfa", "", amount, currency), db.DocTypeSales)
	if err != nil {
		t.Fatalf("ToDocumentRow() error = %v", err)
	}
	if _, err := docs.Upsert(row); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	return docs, 1
}

func TestCurrencyInvariant(t *testing.T) {
	docs, id := currencyFixture(t, 100.50, "EUR")
	docs.mappings[id] = []db.Mapping{
		{ID: 1, DocumentID: id, Amount: decimal.NewFromFloat(60.30)},
		{ID: 2, DocumentID: id, Amount: decimal.NewFromFloat(40.20)},
	}

	rate := decimal.RequireFromString("24.755")
	normalizer := NewNormalizer(docs, &fakeResolver{
		base:  "CZK",
		rates: map[string]decimal.Decimal{"EUR": rate},
	})

	if err := normalizer.SyncDocumentCurrency(id); err != nil {
		t.Fatalf("SyncDocumentCurrency() error = %v", err)
	}

	doc, _ := docs.GetByID(id)
	wantAmount := decimal.NewFromFloat(100.50).Mul(rate).Round(2)
	if !doc.AmountCZK.Valid || !doc.AmountCZK.Decimal.Equal(wantAmount) {
		t.Errorf("amount_czk = %+v, expected %s", doc.AmountCZK, wantAmount)
	}
	if !doc.ExchangeRate.Valid || !doc.ExchangeRate.Decimal.Equal(rate) {
		t.Errorf("exchange_rate = %+v, expected %s", doc.ExchangeRate, rate)
	}

	// Every mapping carries the parent's rate.
	for _, m := range docs.mappings[id] {
		want := m.Amount.Mul(rate).Round(2)
		if !m.AmountCZK.Valid || !m.AmountCZK.Decimal.Equal(want) {
			t.Errorf("mapping %d amount_czk = %+v, expected %s", m.ID, m.AmountCZK, want)
		}
	}
}

func TestBaseCurrencyShortCircuit(t *testing.T) {
	docs, id := currencyFixture(t, 1234.56, "CZK")

	// The rate service is down; base currency never touches it.
	normalizer := NewNormalizer(docs, &fakeResolver{
		base: "CZK",
		err:  errors.New("rate service unavailable"),
	})

	if err := normalizer.SyncDocumentCurrency(id); err != nil {
		t.Fatalf("SyncDocumentCurrency() error = %v", err)
	}

	doc, _ := docs.GetByID(id)
	if !doc.ExchangeRate.Valid || !doc.ExchangeRate.Decimal.Equal(decimal.NewFromInt(1)) {
		t.Errorf("exchange_rate = %+v, expected 1", doc.ExchangeRate)
	}
	if !doc.AmountCZK.Valid || !doc.AmountCZK.Decimal.Equal(doc.Amount) {
		t.Errorf("amount_czk = %+v, expected %s", doc.AmountCZK, doc.Amount)
	}
}

func TestUnresolvableRateLeavesStateUntouched(t *testing.T) {
	tests := []struct {
		name     string
		resolver *fakeResolver
	}{
		{"rate unavailable", &fakeResolver{base: "CZK", rates: map[string]decimal.Decimal{}}},
		{"lookup error", &fakeResolver{base: "CZK", err: errors.New("outage")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, id := currencyFixture(t, 500, "USD")

			before, _ := docs.GetByID(id)
			normalizer := NewNormalizer(docs, tt.resolver)

			if err := normalizer.SyncDocumentCurrency(id); err != nil {
				t.Fatalf("SyncDocumentCurrency() error = %v", err)
			}

			after, _ := docs.GetByID(id)
			if after.AmountCZK.Valid != before.AmountCZK.Valid {
				t.Errorf("amount_czk changed: before %+v, after %+v", before.AmountCZK, after.AmountCZK)
			}
			if after.ExchangeRate.Valid != before.ExchangeRate.Valid {
				t.Errorf("exchange_rate changed: before %+v, after %+v", before.ExchangeRate, after.ExchangeRate)
			}
		})
	}
}

func TestMissingDocumentIsNoOp(t *testing.T) {
	normalizer := NewNormalizer(newFakeDocumentStorage(), &fakeResolver{base: "CZK"})

	if err := normalizer.SyncDocumentCurrency(999); err != nil {
		t.Errorf("SyncDocumentCurrency() error = %v, expected nil for missing document", err)
	}
}

func TestMissingIssueDateIsNoOp(t *testing.T) {
	docs := newFakeDocumentStorage()
	row, err := provider.ToDocumentRow(provider.Document{
		ID:       "d1",
		Amount:   decimal.NewFromInt(100),
		Currency: "EUR",
		// no issue date
	}, db.DocTypeSales)
	if err != nil {
		t.Fatalf("ToDocumentRow() error = %v", err)
	}
	if _, err := docs.Upsert(row); err != nil {
		t.Fatal(err)
	}

	resolver := &fakeResolver{base: "CZK", rates: map[string]decimal.Decimal{"EUR": decimal.NewFromInt(25)}}
	normalizer := NewNormalizer(docs, resolver)

	if err := normalizer.SyncDocumentCurrency(1); err != nil {
		t.Fatalf("SyncDocumentCurrency() error = %v", err)
	}

	doc, _ := docs.GetByID(1)
	if doc.AmountCZK.Valid {
		t.Errorf("amount_czk = %+v, expected untouched", doc.AmountCZK)
	}
	if resolver.calls != 0 {
		t.Errorf("resolver called %d times, expected 0", resolver.calls)
	}
}

func TestSyncPending(t *testing.T) {
	docs := newFakeDocumentStorage()
	for _, d := range []provider.Document{
		wireDocument("d1", "Alfa", "", 100, "CZK"),
		wireDocument("d2", "Beta", "", 200, "EUR"),
		wireDocument("d3", "Gama", "", 300, "XXX"), // no rate available
	} {
		row, err := provider.ToDocumentRow(d, db.DocTypeSales)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := docs.Upsert(row); err != nil {
			t.Fatal(err)
		}
	}

	normalizer := NewNormalizer(docs, &fakeResolver{
		base:  "CZK",
		rates: map[string]decimal.Decimal{"EUR": decimal.NewFromInt(25)},
	})

	processed, err := normalizer.SyncPending()
	if err != nil {
		t.Fatalf("SyncPending() error = %v", err)
	}
	if processed != 3 {
		t.Errorf("processed = %d, expected 3", processed)
	}

	// d3 stays pending: its rate was unavailable and nothing was written.
	pending, _ := docs.ListPendingCurrency()
	if len(pending) != 1 || pending[0] != 3 {
		t.Errorf("pending = %v, expected [3]", pending)
	}
}
