package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

// DriverDesk tracks delivery progress and driver positions.
type DriverDesk struct {
	db        *gorm.DB
	publisher Publisher
	locations LocationCache
	now       func() time.Time
}

func NewDriverDesk(db *gorm.DB, publisher Publisher, locations LocationCache) *DriverDesk {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if locations == nil {
		locations = NewTTLLocationCache(10*time.Minute, 1000)
	}
	return &DriverDesk{db: db, publisher: publisher, locations: locations, now: time.Now}
}

type DriverReport struct {
	DriverID         uint                       `json:"driver_id"`
	Day              string                     `json:"date"`
	PacketsDelivered int                        `json:"packets_delivered"`
	TotalSales       decimal.Decimal            `json:"total_sales"`
	SalesByMethod    map[string]decimal.Decimal `json:"sales_by_method"`
	Orders           []DriverReportOrder        `json:"orders"`
}

type DriverReportOrder struct {
	OrderID                  uint            `json:"id"`
	PaymentMethod            *string         `json:"payment_method"`
	CustomerName             *string         `json:"customer_name"`
	CustomerAddress          *string         `json:"customer_address"`
	Total                    decimal.Decimal `json:"total"`
	PickedUpAt               *time.Time      `json:"picked_up_at"`
	DeliveredAt              *time.Time      `json:"delivered_at"`
	DeliverySeconds          *float64        `json:"delivery_time_seconds"`
	KitchenToDeliverySeconds *float64        `json:"kitchen_to_delivery_seconds"`
}

// UpdateDriverStatus records delivery progress of a claimed order. picked_up
// stamps the pickup time; delivered stamps the delivery time once.
func (d *DriverDesk) UpdateDriverStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	switch status {
	case models.DriverStatusAssigned, models.DriverStatusPickedUp, models.DriverStatusDelivered:
	default:
		return nil, validationError("invalid driver status %q", status)
	}

	var order *models.Order
	err := database.Transact(ctx, d.db, func(tx *gorm.DB) error {
		var err error
		order, err = loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.DriverID == nil {
			return ErrNoDriver
		}

		now := d.now()
		fields := map[string]interface{}{"driver_status": status}
		switch status {
		case models.DriverStatusPickedUp:
			fields["picked_up_at"] = now
		case models.DriverStatusDelivered:
			if order.DeliveredAt == nil {
				fields["delivered_at"] = now
			}
		}
		if err := tx.Model(order).Updates(fields).Error; err != nil {
			return storeError("update driver status", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   status,
	}).Info("Driver status updated")
	d.publisher.Publish(EventOrdersUpdated, struct{}{})
	return order, nil
}

// Report summarises the closed orders a driver delivered on day.
func (d *DriverDesk) Report(ctx context.Context, driverID uint, day time.Time) (*DriverReport, error) {
	if driverID == 0 {
		return nil, validationError("driver_id is required")
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	db := d.db.WithContext(ctx)
	var orders []models.Order
	if err := db.Preload("Items").
		Where("driver_id = ? AND driver_status = ? AND status = ?", driverID, models.DriverStatusDelivered, models.OrderStatusClosed).
		Where("delivered_at >= ? AND delivered_at < ?", start, end).
		Order("delivered_at ASC").
		Find(&orders).Error; err != nil {
		return nil, storeError("load driver orders", err)
	}

	report := &DriverReport{
		DriverID:         driverID,
		Day:              start.Format("2006-01-02"),
		PacketsDelivered: len(orders),
		TotalSales:       decimal.Zero,
		SalesByMethod:    make(map[string]decimal.Decimal),
		Orders:           make([]DriverReportOrder, 0, len(orders)),
	}
	for _, o := range orders {
		total := decimal.Zero
		for _, item := range o.Items {
			total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		report.TotalSales = report.TotalSales.Add(total)
		if o.PaymentMethod != nil {
			report.SalesByMethod[*o.PaymentMethod] = report.SalesByMethod[*o.PaymentMethod].Add(total)
		}
		report.Orders = append(report.Orders, DriverReportOrder{
			OrderID:                  o.ID,
			PaymentMethod:            o.PaymentMethod,
			CustomerName:             o.CustomerName,
			CustomerAddress:          o.CustomerAddress,
			Total:                    total,
			PickedUpAt:               o.PickedUpAt,
			DeliveredAt:              o.DeliveredAt,
			DeliverySeconds:          secondsBetween(o.PickedUpAt, o.DeliveredAt),
			KitchenToDeliverySeconds: secondsBetween(o.KitchenDeliveredAt, o.DeliveredAt),
		})
	}
	return report, nil
}

func secondsBetween(from, to *time.Time) *float64 {
	if from == nil || to == nil {
		return nil
	}
	s := to.Sub(*from).Seconds()
	return &s
}

// UpdateLocation stores a driver's latest GPS fix.
func (d *DriverDesk) UpdateLocation(driverID uint, lat, lng float64) (Location, error) {
	if driverID == 0 {
		return Location{}, validationError("driver_id is required")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Location{}, validationError("coordinates out of range")
	}
	// The cache stamps the fix with its own clock, the one it expires by.
	d.locations.Set(driverID, Location{Lat: lat, Lng: lng})
	if loc, ok := d.locations.Get(driverID); ok {
		return loc, nil
	}
	return Location{Lat: lat, Lng: lng}, nil
}

func (d *DriverDesk) Location(driverID uint) (Location, error) {
	loc, ok := d.locations.Get(driverID)
	if !ok {
		return Location{}, fmt.Errorf("%w: no recent location for driver %d", ErrNotFound, driverID)
	}
	return loc, nil
}

func (d *DriverDesk) Locations() map[uint]Location {
	return d.locations.All()
}
