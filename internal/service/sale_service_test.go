package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/model"
	"github.com/iliyamo/product-sales-api/internal/queue"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.SaleRegisteredEvent
	err    error
}

func (p *recordingPublisher) PublishSaleRegistered(_ context.Context, ev queue.SaleRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(id uint64, qty int, price string) SaleLineInput {
	return SaleLineInput{ProductID: id, Quantity: qty, UnitPrice: dec(price)}
}

func newSaleFixture(t *testing.T) (*SaleRegistrar, *memUoW, *recordingPublisher) {
	t.Helper()
	uow := newMemUoW()
	pub := &recordingPublisher{}
	return NewSaleRegistrar(uow, pub, zap.NewNop()), uow, pub
}

func TestRegisterSaleScenario(t *testing.T) {
	reg, uow, pub := newSaleFixture(t)
	uow.addProduct(model.Product{ID: 1, Name: "Mug", Price: dec("12.50"), Stock: 10})

	sale, err := reg.Register(context.Background(), RegisterSaleInput{
		Date:  mustDate(t, "2024-03-01"),
		Items: []SaleLineInput{line(1, 4, "9.99")},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !sale.Total.Equal(dec("39.96")) {
		t.Fatalf("total = %s, want 39.96", sale.Total)
	}
	if got := uow.stock(1); got != 6 {
		t.Fatalf("stock = %d, want 6", got)
	}
	if sale.ID == 0 || len(sale.Items) != 1 || sale.Items[0].ID == 0 || sale.Items[0].SaleID != sale.ID {
		t.Fatalf("generated ids not populated: %+v", sale)
	}
	if !sale.Items[0].UnitPrice.Equal(dec("9.99")) {
		t.Fatalf("unit price = %s, want caller price 9.99", sale.Items[0].UnitPrice)
	}
	if len(pub.events) != 1 || pub.events[0].SaleID != sale.ID || pub.events[0].Total != "39.96" {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestRegisterSaleTotalIsSumOfLines(t *testing.T) {
	tests := []struct {
		name  string
		lines []SaleLineInput
		want  string
	}{
		{"single", []SaleLineInput{line(1, 1, "0.01")}, "0.01"},
		{"several", []SaleLineInput{line(1, 3, "1.10"), line(2, 2, "2.25"), line(3, 1, "0")}, "7.80"},
		{"same product twice", []SaleLineInput{line(1, 2, "5.00"), line(1, 1, "4.99")}, "14.99"},
		{"large", []SaleLineInput{line(2, 7, "19999.99")}, "139999.93"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, uow, _ := newSaleFixture(t)
			for id := uint64(1); id <= 3; id++ {
				uow.addProduct(model.Product{ID: id, Name: "P", Stock: 100})
			}
			sale, err := reg.Register(context.Background(), RegisterSaleInput{Date: mustDate(t, "2024-03-01"), Items: tt.lines})
			if err != nil {
				t.Fatal(err)
			}
			if !sale.Total.Equal(dec(tt.want)) {
				t.Fatalf("total = %s, want %s", sale.Total, tt.want)
			}
			sum := decimal.Zero
			for _, it := range sale.Items {
				sum = sum.Add(it.LineTotal())
			}
			if !sum.Equal(sale.Total) {
				t.Fatalf("items sum %s != total %s", sum, sale.Total)
			}
		})
	}
}

func TestRegisterSaleCumulativeDemand(t *testing.T) {
	reg, uow, pub := newSaleFixture(t)
	uow.addProduct(model.Product{ID: 1, Name: "Lamp", Stock: 5})

	_, err := reg.Register(context.Background(), RegisterSaleInput{
		Date:  mustDate(t, "2024-03-01"),
		Items: []SaleLineInput{line(1, 3, "1.00"), line(1, 3, "1.00")},
	})
	var se *Error
	if !errors.As(err, &se) || se.Kind != KindInsufficientStock {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}
	if se.Product != "Lamp" {
		t.Fatalf("error names %q, want Lamp", se.Product)
	}
	if got := uow.stock(1); got != 5 {
		t.Fatalf("stock = %d, want unchanged 5", got)
	}
	if len(uow.read().sales) != 0 || len(pub.events) != 0 {
		t.Fatal("a failed sale must not be recorded or published")
	}

	if _, err := reg.Register(context.Background(), RegisterSaleInput{
		Date:  mustDate(t, "2024-03-01"),
		Items: []SaleLineInput{line(1, 2, "1.00"), line(1, 3, "1.00")},
	}); err != nil {
		t.Fatalf("exact stock must succeed: %v", err)
	}
	if got := uow.stock(1); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestRegisterSaleAllOrNothingAcrossProducts(t *testing.T) {
	reg, uow, _ := newSaleFixture(t)
	uow.addProduct(model.Product{ID: 1, Name: "A", Stock: 10})
	uow.addProduct(model.Product{ID: 2, Name: "B", Stock: 1})

	_, err := reg.Register(context.Background(), RegisterSaleInput{
		Date:  mustDate(t, "2024-03-01"),
		Items: []SaleLineInput{line(1, 4, "1.00"), line(2, 2, "1.00")},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}
	if uow.stock(1) != 10 || uow.stock(2) != 1 {
		t.Fatalf("stock changed: A=%d B=%d", uow.stock(1), uow.stock(2))
	}
}

func TestRegisterSaleUnknownProduct(t *testing.T) {
	reg, uow, _ := newSaleFixture(t)
	uow.addProduct(model.Product{ID: 1, Name: "A", Stock: 10})

	_, err := reg.Register(context.Background(), RegisterSaleInput{
		Date:  mustDate(t, "2024-03-01"),
		Items: []SaleLineInput{line(1, 1, "1.00"), line(99, 1, "1.00")},
	})
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected InvalidReference, got %v", err)
	}
	if uow.stock(1) != 10 {
		t.Fatal("unknown product must not mutate any stock")
	}
}

func TestRegisterSaleValidation(t *testing.T) {
	reg, _, _ := newSaleFixture(t)
	tests := []struct {
		name  string
		in    RegisterSaleInput
		field string
	}{
		{"empty items", RegisterSaleInput{Date: mustDate(t, "2024-03-01")}, "items"},
		{"missing date", RegisterSaleInput{Items: []SaleLineInput{line(1, 1, "1")}}, "date"},
		{"zero quantity", RegisterSaleInput{Date: mustDate(t, "2024-03-01"), Items: []SaleLineInput{line(1, 0, "1")}}, "items[0].quantity"},
		{"negative price", RegisterSaleInput{Date: mustDate(t, "2024-03-01"), Items: []SaleLineInput{line(1, 1, "-1")}}, "items[0].unitPrice"},
		{"three decimals", RegisterSaleInput{Date: mustDate(t, "2024-03-01"), Items: []SaleLineInput{line(1, 1, "1.005")}}, "items[0].unitPrice"},
		{"missing product", RegisterSaleInput{Date: mustDate(t, "2024-03-01"), Items: []SaleLineInput{line(0, 1, "1")}}, "items[0].productId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Register(context.Background(), tt.in)
			var se *Error
			if !errors.As(err, &se) || se.Kind != KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := se.Fields[tt.field]; !ok {
				t.Fatalf("expected violation on %s, got %v", tt.field, se.Fields)
			}
		})
	}
}

func TestRegisterSaleRollsBackOnPersistFailure(t *testing.T) {
	reg, uow, pub := newSaleFixture(t)
	uow.addProduct(model.Product{ID: 1, Name: "A", Stock: 10})
	uow.failSaleInsert = errors.New("connection reset")

	_, err := reg.Register(context.Background(), RegisterSaleInput{
		Date:  mustDate(t, "2024-03-01"),
		Items: []SaleLineInput{line(1, 3, "2.00")},
	})
	if KindOf(err) != KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if uow.stock(1) != 10 {
		t.Fatalf("stock = %d, want 10 after rollback", uow.stock(1))
	}
	if len(pub.events) != 0 {
		t.Fatal("nothing must be published for a rolled back sale")
	}
}

func TestRegisterSalePublishFailureIsIgnored(t *testing.T) {
	reg, uow, pub := newSaleFixture(t)
	uow.addProduct(model.Product{ID: 1, Name: "A", Stock: 10})
	pub.err = errors.New("broker down")

	if _, err := reg.Register(context.Background(), RegisterSaleInput{
		Date:  mustDate(t, "2024-03-01"),
		Items: []SaleLineInput{line(1, 1, "2.00")},
	}); err != nil {
		t.Fatalf("publish failure must not fail the sale: %v", err)
	}
	if uow.stock(1) != 9 {
		t.Fatal("sale must be committed")
	}
}

func TestRegisterSaleConcurrentNeverOversells(t *testing.T) {
	reg, uow, _ := newSaleFixture(t)
	uow.addProduct(model.Product{ID: 1, Name: "A", Stock: 5})

	const buyers = 20
	date := mustDate(t, "2024-03-01")
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Register(context.Background(), RegisterSaleInput{
				Date:  date,
				Items: []SaleLineInput{line(1, 1, "1.00")},
			})
			if err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			} else if !errors.Is(err, ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if sold != 5 || uow.stock(1) != 0 {
		t.Fatalf("sold=%d stock=%d", sold, uow.stock(1))
	}
}

func TestSalesReportInclusiveRange(t *testing.T) {
	reg, uow, _ := newSaleFixture(t)
	uow.addProduct(model.Product{ID: 1, Name: "A", Stock: 100})
	for _, d := range []string{"2024-01-01", "2024-01-15", "2024-01-31", "2024-02-01"} {
		if _, err := reg.Register(context.Background(), RegisterSaleInput{
			Date:  mustDate(t, d),
			Items: []SaleLineInput{line(1, 1, "1.00")},
		}); err != nil {
			t.Fatal(err)
		}
	}
	report := NewSalesReport(memSalesView{uow: uow})

	sales, err := report.Query(context.Background(), mustDate(t, "2024-01-01"), mustDate(t, "2024-01-31"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sales) != 3 {
		t.Fatalf("got %d sales, want 3", len(sales))
	}
	if sales[0].Date.String() != "2024-01-01" || sales[2].Date.String() != "2024-01-31" {
		t.Fatalf("bounds not inclusive: %s..%s", sales[0].Date, sales[2].Date)
	}
	if it := sales[0].Items[0]; it.Product == nil || it.Product.Name != "A" {
		t.Fatalf("items must carry their product: %+v", it)
	}

	empty, err := report.Query(context.Background(), mustDate(t, "2023-01-01"), mustDate(t, "2023-12-31"))
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("empty range = %v, %v", empty, err)
	}
	inverted, err := report.Query(context.Background(), mustDate(t, "2024-02-01"), mustDate(t, "2024-01-01"))
	if err != nil || len(inverted) != 0 {
		t.Fatalf("inverted range = %v, %v", inverted, err)
	}
}

func TestCatalogService(t *testing.T) {
	uow := newMemUoW()
	st := uow.state
	svc := NewCatalogService(&memProducts{st: st}, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.Create(ctx, ProductInput{Name: "", Price: dec("-1"), Stock: -1}); KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	p, err := svc.Create(ctx, ProductInput{Name: " Mug ", Price: dec("9.99"), Stock: 3})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Mug" || p.ID == 0 {
		t.Fatalf("unexpected product %+v", p)
	}
	if _, err := svc.Update(ctx, 999, ProductInput{Name: "X", Price: dec("1")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Get(ctx, p.ID); err != nil {
		t.Fatal(err)
	}

	st.sales = append(st.sales, model.Sale{ID: 50, Items: []model.SaleItem{{ProductID: p.ID}}})
	if err := svc.Delete(ctx, p.ID); KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	st.sales = nil
	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
