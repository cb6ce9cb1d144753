package service

import (
	"context"

	"canteen_system/internal/apperr"
	"canteen_system/internal/domain"
	"canteen_system/internal/store"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderInput is a supplier order request
type OrderInput struct {
	ManufacturerProductID uint   `json:"manufacturer_product_id" binding:"required"`
	Quantity              int    `json:"quantity" binding:"required,gt=0"`
	Note                  string `json:"note"`
}

func (s *Service) CreateOrder(ctx context.Context, requestedBy uint, in OrderInput) (*domain.Order, error) {
	if in.Quantity <= 0 {
		return nil, apperr.Invalid("Quantity must be positive")
	}
	var mp domain.ManufacturerProduct
	if err := s.db.WithContext(ctx).First(&mp, in.ManufacturerProductID).Error; err != nil {
		return nil, notFound(err, "Manufacturer product not found")
	}
	if mp.Status != domain.MPAvailable {
		return nil, apperr.Invalid("Manufacturer product is discontinued")
	}
	order := domain.Order{
		RequestedBy:           requestedBy,
		ManufacturerProductID: mp.ID,
		Quantity:              in.Quantity,
		Status:                domain.OrderPending,
		Note:                  in.Note,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&order).Error; err != nil {
		return nil, err
	}
	order.ManufacturerProduct = mp
	logrus.WithFields(logrus.Fields{"order_id": order.ID, "requested_by": requestedBy}).Info("Order created")
	return &order, nil
}

// OrderFilter narrows ListOrders. A zero RequestedBy lists every order.
type OrderFilter struct {
	RequestedBy uint
	Status      domain.OrderStatus
	Page        int
	PageSize    int
}

func (s *Service) ListOrders(ctx context.Context, f OrderFilter) (store.Page[domain.Order], error) {
	page, pageSize, offset := store.Normalize(f.Page, f.PageSize)
	query := s.db.WithContext(ctx).Model(&domain.Order{})
	if f.RequestedBy != 0 {
		query = query.Where("requested_by = ?", f.RequestedBy)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return store.Page[domain.Order]{}, err
	}
	var orders []domain.Order
	if err := query.Preload("ManufacturerProduct").Order("id desc").Offset(offset).Limit(pageSize).Find(&orders).Error; err != nil {
		return store.Page[domain.Order]{}, err
	}
	return store.NewPage(orders, page, pageSize, total), nil
}

// GetOrder returns one order. A non-zero ownerID restricts it to that requester.
func (s *Service) GetOrder(ctx context.Context, id, ownerID uint) (*domain.Order, error) {
	var order domain.Order
	if err := s.db.WithContext(ctx).Preload("ManufacturerProduct").First(&order, id).Error; err != nil {
		return nil, notFound(err, "Order not found")
	}
	if ownerID != 0 && order.RequestedBy != ownerID {
		return nil, apperr.NotFound("Order not found")
	}
	return &order, nil
}

// transition moves an order from its current status to next inside tx,
// guarded on the status it was read with.
func transition(tx *gorm.DB, order *domain.Order, next domain.OrderStatus, extra map[string]any) error {
	if !order.Status.CanTransition(next) {
		return apperr.Conflict("Order cannot move from " + string(order.Status) + " to " + string(next))
	}
	updates := map[string]any{"status": next}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&domain.Order{}).Where("id = ? AND status = ?", order.ID, order.Status).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("Order was modified concurrently")
	}
	order.Status = next
	return nil
}

// ReviewOrder approves or rejects a pending order
func (s *Service) ReviewOrder(ctx context.Context, id uint, approve bool, adminID uint, note string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	next := domain.OrderRejected
	if approve {
		next = domain.OrderApproved
	}
	extra := map[string]any{"reviewed_by": adminID}
	if note != "" {
		extra["note"] = note
	}
	if err := transition(s.db.WithContext(ctx), order, next, extra); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"order_id": id, "admin_id": adminID, "status": next}).Info("Order reviewed")
	return s.GetOrder(ctx, id, 0)
}

// DispatchOrder assigns an available truck to an approved order
func (s *Service) DispatchOrder(ctx context.Context, id, truckID uint) (*domain.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order domain.Order
		if err := tx.First(&order, id).Error; err != nil {
			return notFound(err, "Order not found")
		}
		var truck domain.Truck
		if err := tx.First(&truck, truckID).Error; err != nil {
			return notFound(err, "Truck not found")
		}
		if truck.Status != domain.TruckAvailable {
			return apperr.Conflict("Truck is not available")
		}
		if order.Quantity > truck.Capacity {
			return apperr.Invalid("Order exceeds truck capacity")
		}
		if err := transition(tx, &order, domain.OrderDispatched, map[string]any{"truck_id": truck.ID}); err != nil {
			return err
		}
		res := tx.Model(&domain.Truck{}).Where("id = ? AND status = ?", truck.ID, domain.TruckAvailable).
			Update("status", domain.TruckInTransit)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("Truck is not available")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"order_id": id, "truck_id": truckID}).Info("Order dispatched")
	return s.GetOrder(ctx, id, 0)
}

// DeliverOrder closes a dispatched order and frees its truck
func (s *Service) DeliverOrder(ctx context.Context, id uint) (*domain.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order domain.Order
		if err := tx.First(&order, id).Error; err != nil {
			return notFound(err, "Order not found")
		}
		if err := transition(tx, &order, domain.OrderDelivered, nil); err != nil {
			return err
		}
		if order.TruckID != nil {
			if err := tx.Model(&domain.Truck{}).Where("id = ?", *order.TruckID).
				Update("status", domain.TruckAvailable).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithField("order_id", id).Info("Order delivered")
	return s.GetOrder(ctx, id, 0)
}

// Dashboard summarises fleet and order state for the logistics view
type Dashboard struct {
	Trucks map[string]int64 `json:"trucks"`
	Orders map[string]int64 `json:"orders"`
}

type statusCount struct {
	Status string
	Count  int64
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{Trucks: map[string]int64{}, Orders: map[string]int64{}}
	for _, st := range []string{domain.TruckAvailable, domain.TruckInTransit, domain.TruckMaintenance} {
		d.Trucks[st] = 0
	}
	for _, st := range []domain.OrderStatus{domain.OrderPending, domain.OrderApproved, domain.OrderRejected, domain.OrderDispatched, domain.OrderDelivered} {
		d.Orders[string(st)] = 0
	}

	var rows []statusCount
	if err := s.db.WithContext(ctx).Model(&domain.Truck{}).
		Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		d.Trucks[r.Status] = r.Count
	}
	rows = nil
	if err := s.db.WithContext(ctx).Model(&domain.Order{}).
		Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		d.Orders[r.Status] = r.Count
	}
	return d, nil
}
