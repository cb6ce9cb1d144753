package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ManufacturerProduct is an item the canteen can order from a supplier
type ManufacturerProduct struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Manufacturer string          `gorm:"not null" json:"manufacturer"`
	Name         string          `gorm:"not null" json:"name"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Status       string          `gorm:"size:20;default:Available" json:"status"` // Available or Discontinued
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

const (
	MPAvailable    = "Available"
	MPDiscontinued = "Discontinued"
)

func (m *ManufacturerProduct) Validate() error {
	if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Manufacturer) == "" {
		return errors.New("name and manufacturer are required")
	}
	if m.UnitPrice.IsNegative() {
		return errors.New("unit_price must not be negative")
	}
	if m.Status == "" {
		m.Status = MPAvailable
	}
	if m.Status != MPAvailable && m.Status != MPDiscontinued {
		return errors.New("status must be Available or Discontinued")
	}
	return nil
}

// Truck statuses
const (
	TruckAvailable   = "Available"
	TruckInTransit   = "InTransit"
	TruckMaintenance = "Maintenance"
)

// Truck used to deliver supplier orders
type Truck struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PlateNumber string    `gorm:"uniqueIndex;size:32;not null" json:"plate_number"`
	Capacity    int       `gorm:"not null" json:"capacity"` // Units per trip
	Status      string    `gorm:"size:20;default:Available;index" json:"status"`
	DriverID    *uint     `json:"driver_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t *Truck) Validate() error {
	if strings.TrimSpace(t.PlateNumber) == "" {
		return errors.New("plate_number is required")
	}
	if t.Capacity <= 0 {
		return errors.New("capacity must be positive")
	}
	if t.Status == "" {
		t.Status = TruckAvailable
	}
	switch t.Status {
	case TruckAvailable, TruckInTransit, TruckMaintenance:
		return nil
	}
	return errors.New("status must be Available, InTransit or Maintenance")
}

// Staff statuses shared by drivers and employees
const (
	StaffActive   = "Active"
	StaffInactive = "Inactive"
)

func validStaffStatus(s *string) error {
	if *s == "" {
		*s = StaffActive
	}
	if *s != StaffActive && *s != StaffInactive {
		return errors.New("status must be Active or Inactive")
	}
	return nil
}

// Driver Model
type Driver struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"not null" json:"name"`
	LicenseNumber string    `gorm:"uniqueIndex;size:64;not null" json:"license_number"`
	Phone         string    `json:"phone"`
	Status        string    `gorm:"size:20;default:Active" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (d *Driver) Validate() error {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.LicenseNumber) == "" {
		return errors.New("name and license_number are required")
	}
	return validStaffStatus(&d.Status)
}

// Employee Model
type Employee struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	Position  string    `json:"position"`
	Status    string    `gorm:"size:20;default:Active" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Employee) Validate() error {
	if strings.TrimSpace(e.Name) == "" || !strings.Contains(e.Email, "@") {
		return errors.New("name and a valid email are required")
	}
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))
	return validStaffStatus(&e.Status)
}

// OrderStatus is a step of the supplier order workflow
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderApproved   OrderStatus = "Approved"
	OrderRejected   OrderStatus = "Rejected"
	OrderDispatched OrderStatus = "Dispatched"
	OrderDelivered  OrderStatus = "Delivered"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderApproved, OrderRejected},
	OrderApproved:   {OrderDispatched},
	OrderDispatched: {OrderDelivered},
}

// CanTransition reports whether an order may move from s to next
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a supplier order awaiting admin approval and delivery
type Order struct {
	ID                    uint                `gorm:"primaryKey" json:"id"`
	RequestedBy           uint                `gorm:"index;not null" json:"requested_by"`
	ManufacturerProductID uint                `gorm:"not null" json:"manufacturer_product_id"`
	ManufacturerProduct   ManufacturerProduct `json:"manufacturer_product,omitempty"`
	Quantity              int                 `gorm:"not null" json:"quantity"`
	Status                OrderStatus         `gorm:"size:20;default:Pending;index" json:"status"`
	TruckID               *uint               `json:"truck_id,omitempty"`
	ReviewedBy            *uint               `json:"reviewed_by,omitempty"`
	Note                  string              `json:"note,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}
