package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/model"
	"github.com/iliyamo/product-sales-api/internal/queue"
	"github.com/iliyamo/product-sales-api/internal/repository"
)

// SaleEventPublisher receives a notification for every committed sale.
type SaleEventPublisher interface {
	PublishSaleRegistered(ctx context.Context, ev queue.SaleRegisteredEvent) error
}

const publishTimeout = 3 * time.Second

// SaleRegistrar records sales. Stock decrements and the sale rows are
// written in one transaction; competing sales for the same product
// serialize on the product row locks taken by the ledger.
type SaleRegistrar struct {
	uow    repository.UnitOfWork
	ledger InventoryLedger
	events SaleEventPublisher
	log    *zap.Logger
	tracer trace.Tracer
}

// NewSaleRegistrar builds a registrar. events may be nil.
func NewSaleRegistrar(uow repository.UnitOfWork, events SaleEventPublisher, log *zap.Logger) *SaleRegistrar {
	return &SaleRegistrar{uow: uow, events: events, log: log, tracer: otel.Tracer(tracerName)}
}

// Register validates in, reserves stock and persists the sale. On any
// failure no stock changes and no sale row remains. Each item keeps the
// unit price given by the caller.
func (s *SaleRegistrar) Register(ctx context.Context, in RegisterSaleInput) (*model.Sale, error) {
	ctx, span := s.tracer.Start(ctx, "sale.register")
	defer span.End()
	span.SetAttributes(attribute.Int("sale.lines", len(in.Items)))

	if err := in.Validate(); err != nil {
		return nil, endSpan(span, err)
	}
	s.log.Info("registering sale", zap.String("date", in.Date.String()), zap.Int("lines", len(in.Items)))

	var sale *model.Sale
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		res, err := s.ledger.Reserve(ctx, repos.Products, in.Items)
		if err != nil {
			return err
		}
		if err := repos.Products.PersistStockChanges(ctx, res.Touched); err != nil {
			return internal("persist stock", err)
		}
		sale = &model.Sale{Date: in.Date, Total: res.Total, Items: make([]model.SaleItem, len(res.Lines))}
		for i, l := range res.Lines {
			sale.Items[i] = model.SaleItem{
				ProductID: l.Product.ID,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
				Product:   l.Product,
			}
		}
		if err := repos.Sales.Insert(ctx, sale); err != nil {
			return internal("insert sale", err)
		}
		return nil
	})
	if err != nil {
		err = asServiceError("register sale", err)
		if k := KindOf(err); k != KindInternal {
			s.log.Info("sale rejected", zap.String("kind", string(k)), zap.String("reason", err.Error()))
		}
		return nil, endSpan(span, err)
	}

	span.SetAttributes(
		attribute.Int64("sale.id", int64(sale.ID)),
		attribute.String("sale.total", sale.Total.StringFixed(2)),
	)
	s.log.Info("sale registered", zap.Uint64("sale_id", sale.ID), zap.String("total", sale.Total.StringFixed(2)))
	s.publish(ctx, sale)
	return sale, endSpan(span, nil)
}

// publish is best effort: the sale is already committed.
func (s *SaleRegistrar) publish(ctx context.Context, sale *model.Sale) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.PublishSaleRegistered(ctx, queue.NewSaleRegisteredEvent(*sale, time.Now())); err != nil {
		s.log.Warn("publish sale event failed", zap.Uint64("sale_id", sale.ID), zap.Error(err))
	}
}

// SalesReport answers date-range queries over recorded sales.
type SalesReport struct {
	sales  repository.SaleStore
	tracer trace.Tracer
}

func NewSalesReport(sales repository.SaleStore) *SalesReport {
	return &SalesReport{sales: sales, tracer: otel.Tracer(tracerName)}
}

// Query returns the sales dated between start and end, both inclusive, with
// items and their products. An empty or inverted range yields an empty
// list.
func (r *SalesReport) Query(ctx context.Context, start, end model.Date) ([]model.Sale, error) {
	ctx, span := r.tracer.Start(ctx, "sale.report")
	defer span.End()
	span.SetAttributes(attribute.String("report.start", start.String()), attribute.String("report.end", end.String()))

	if end.Before(start) {
		return []model.Sale{}, endSpan(span, nil)
	}
	sales, err := r.sales.ListByDateRange(ctx, start, end)
	if err != nil {
		return nil, endSpan(span, internal("list sales", err))
	}
	if sales == nil {
		sales = []model.Sale{}
	}
	span.SetAttributes(attribute.Int("report.sales", len(sales)))
	return sales, endSpan(span, nil)
}
