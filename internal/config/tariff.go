package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// Tariff holds the business constants applied to purchases and rewards.
//
// Example file:
//
//	electricity_service_charge = "150"
//	points_block = 100
//	points_block_value = "200"
//
//	[points]
//	airtime = 2
//	data = 5
//	electricity = 3
//	tv = 3
type Tariff struct {
	ElectricityServiceCharge decimal.Decimal `toml:"electricity_service_charge"`
	PointsBlock              int             `toml:"points_block"`
	PointsBlockValue         decimal.Decimal `toml:"points_block_value"`
	Points                   map[string]int  `toml:"points"`
}

// DefaultTariff returns the built-in tariff.
func DefaultTariff() Tariff {
	return Tariff{
		ElectricityServiceCharge: decimal.NewFromInt(150),
		PointsBlock:              100,
		PointsBlockValue:         decimal.NewFromInt(200),
		Points: map[string]int{
			"airtime":     2,
			"data":        5,
			"electricity": 3,
			"tv":          3,
		},
	}
}

// LoadTariff reads a TOML tariff file on top of the defaults.
// An empty path or a missing file yields the defaults.
func LoadTariff(path string) (Tariff, error) {
	t := DefaultTariff()
	if path == "" {
		return t, nil
	}

	var file Tariff
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return t, nil
		}
		return t, fmt.Errorf("decode tariff %s: %w", path, err)
	}

	if meta.IsDefined("electricity_service_charge") {
		t.ElectricityServiceCharge = file.ElectricityServiceCharge
	}
	if meta.IsDefined("points_block") && file.PointsBlock > 0 {
		t.PointsBlock = file.PointsBlock
	}
	if meta.IsDefined("points_block_value") {
		t.PointsBlockValue = file.PointsBlockValue
	}
	for product, weight := range file.Points {
		t.Points[product] = weight
	}

	if t.ElectricityServiceCharge.IsNegative() || t.PointsBlockValue.IsNegative() {
		return t, errors.New("tariff amounts must not be negative")
	}
	return t, nil
}

// PointsFor returns the reward weight for a product type, zero when unknown.
func (t Tariff) PointsFor(product string) int {
	return t.Points[product]
}
