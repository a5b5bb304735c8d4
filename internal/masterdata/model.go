package masterdata

import "time"

// AlternateUnit is a sellable unit with a conversion factor to the base unit.
type AlternateUnit struct {
	Name             string  `json:"name"`
	ConversionFactor float64 `json:"conversion_factor"`
}

// Product represents a catalog product.
type Product struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	BaseUnit       string          `json:"base_unit"`
	AlternateUnits []AlternateUnit `json:"alternate_units"`
	ShelfLifeDays  int             `json:"shelf_life_days"`
	MinStockLevel  float64         `json:"min_stock_level"`
	Price          float64         `json:"price"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ConversionFactor resolves the factor from unit to the product base unit.
// The base unit itself converts 1:1. The second return is false when the unit
// is not declared for the product.
func (p Product) ConversionFactor(unit string) (float64, bool) {
	if unit == "" || unit == p.BaseUnit {
		return 1, true
	}
	for _, alt := range p.AlternateUnits {
		if alt.Name == unit {
			return alt.ConversionFactor, true
		}
	}
	return 0, false
}

// Warehouse represents a stock location.
type Warehouse struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Supplier represents a purchasing counterparty.
type Supplier struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
