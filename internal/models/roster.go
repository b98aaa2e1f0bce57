package models

import "github.com/shopspring/decimal"

// Bus is a roster entry for one vehicle.
type Bus struct {
	Code           string          `yaml:"code" json:"code"`
	Name           string          `yaml:"name" json:"name"`
	OpeningBalance decimal.Decimal `yaml:"-" json:"openingBalance"`
}

// User is an authorized chat sender.
type User struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}
