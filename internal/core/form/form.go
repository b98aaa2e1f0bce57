// Package form declares the fields each feature collects from chat text.
// Fields are evaluated in declaration order; that order also decides which
// conflicting field is queued first and how missing fields are reported.
package form

import (
	"regexp"
	"strings"
)

// Feature identifies a conversational record type.
type Feature string

const (
	FeatureDaily   Feature = "daily"
	FeatureBooking Feature = "booking"
)

// ParseFeature maps a case-insensitive word to a feature.
func ParseFeature(word string) (Feature, bool) {
	switch Feature(strings.ToLower(strings.TrimSpace(word))) {
	case FeatureDaily:
		return FeatureDaily, true
	case FeatureBooking:
		return FeatureBooking, true
	}
	return "", false
}

// Kind describes how a raw value is parsed.
type Kind int

const (
	KindText Kind = iota
	KindAmount
	KindDate
	KindPhone
)

// Field is one entry of the extraction table. Pattern's first capture group is
// the raw value. KindText fields claim the whole line their label starts.
type Field struct {
	Name    string
	Label   string
	Kind    Kind
	Pattern *regexp.Regexp
}

// Definition is the complete field table for a feature.
type Definition struct {
	Feature  Feature
	Fields   []Field
	Required []string
	// KeyDate names the date field that builds the composite key, if any.
	KeyDate string
	// Derived lists computed field names shown in summaries.
	Derived []string
}

// Field names shared by the state machine, calculator and record mapping.
const (
	Dated               = "Dated"
	Diesel              = "Diesel"
	Adda                = "Adda"
	Union               = "Union"
	TotalCashCollection = "TotalCashCollection"
	Online              = "Online"
	Remarks             = "Remarks"
	CashHandover        = "CashHandover"

	CustomerName = "CustomerName"
	Mobile       = "Mobile"
	TravelDate   = "TravelDate"
	Pickup       = "Pickup"
	Drop         = "Drop"
	TotalFare    = "TotalFare"
	AdvancePaid  = "AdvancePaid"
	BalanceDue   = "BalanceDue"
)

const amountValue = `((?:₹|rs\.?|inr)?[ \t]*[\d,]+(?:\.\d+)?)`

func amount(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + labels + `)\b[ \t]*[:=\-]?[ \t]*` + amountValue)
}

const dateValue = `(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{4}|today|yesterday|(?:[a-z]+,?\s+)?\d{1,2}(?:st|nd|rd|th)?\s+[a-z]+\.?,?\s+\d{4}|\S+)`

func date(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + labels + `)\b[ \t]*[:=\-]?[ \t]*` + dateValue)
}

func phone(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + labels + `)\b[ \t]*[:=\-]?[ \t]*(\+?\d[\d \-]{6,16}\d)`)
}

// lineValue claims the rest of a line that starts with the label.
func lineValue(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^\s*(?:` + labels + `)\b\s*[:=\-]?\s*(.+?)\s*$`)
}

// Daily is the per-bus daily cash sheet.
var Daily = Definition{
	Feature: FeatureDaily,
	Fields: []Field{
		{Name: Dated, Label: "Dated", Kind: KindDate, Pattern: date(`dated|date`)},
		{Name: Diesel, Label: "Diesel", Kind: KindAmount, Pattern: amount(`diesel`)},
		{Name: Adda, Label: "Adda", Kind: KindAmount, Pattern: amount(`adda`)},
		{Name: Union, Label: "Union", Kind: KindAmount, Pattern: amount(`union`)},
		{Name: TotalCashCollection, Label: "Total Cash Collection", Kind: KindAmount, Pattern: amount(`total\s*cash\s*collection|total\s*collection|cash\s*collection`)},
		{Name: Online, Label: "Online", Kind: KindAmount, Pattern: amount(`online`)},
		{Name: Remarks, Label: "Remarks", Kind: KindText, Pattern: lineValue(`remarks?`)},
	},
	Required: []string{Dated, Diesel, Adda, Union, TotalCashCollection, Online},
	KeyDate:  Dated,
	Derived:  []string{CashHandover},
}

// Booking is a private hire booking.
var Booking = Definition{
	Feature: FeatureBooking,
	Fields: []Field{
		{Name: CustomerName, Label: "Customer Name", Kind: KindText, Pattern: lineValue(`customer\s*name|customer|name`)},
		{Name: Mobile, Label: "Mobile", Kind: KindPhone, Pattern: phone(`mobile|phone|contact`)},
		{Name: TravelDate, Label: "Travel Date", Kind: KindDate, Pattern: date(`travel\s*date|journey\s*date|date`)},
		{Name: Pickup, Label: "Pickup", Kind: KindText, Pattern: lineValue(`pickup|pick\s*up`)},
		{Name: Drop, Label: "Drop", Kind: KindText, Pattern: lineValue(`drop|destination`)},
		{Name: TotalFare, Label: "Total Fare", Kind: KindAmount, Pattern: amount(`total\s*fare|fare`)},
		{Name: AdvancePaid, Label: "Advance Paid", Kind: KindAmount, Pattern: amount(`advance\s*paid|advance`)},
		{Name: Remarks, Label: "Remarks", Kind: KindText, Pattern: lineValue(`remarks?`)},
	},
	Required: []string{CustomerName, Mobile, TravelDate, Pickup, Drop, TotalFare, AdvancePaid},
	Derived:  []string{BalanceDue},
}

// For returns the definition of a feature.
func For(f Feature) (Definition, bool) {
	switch f {
	case FeatureDaily:
		return Daily, true
	case FeatureBooking:
		return Booking, true
	}
	return Definition{}, false
}

// Lookup finds a field by name.
func (d Definition) Lookup(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// LabelOf returns the display label for a field or derived name.
func (d Definition) LabelOf(name string) string {
	if f, ok := d.Lookup(name); ok {
		return f.Label
	}
	switch name {
	case CashHandover:
		return "Cash Handover"
	case BalanceDue:
		return "Balance Due"
	}
	return name
}
