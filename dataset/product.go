// Package dataset reads product sales history and exposes it as a columnar
// Frame that the preprocessing transforms and the tree trainer consume.
package dataset

// Column names of the product sales history, as they appear in the CSV header.
const (
	ColNext      = "next"
	ColProductID = "productId"
	ColYear      = "year"
	ColMonth     = "month"
	ColUnits     = "units"
	ColAvg       = "avg"
	ColCount     = "count"
	ColMax       = "max"
	ColMin       = "min"
	ColPrev      = "prev"
)

// DefaultColumnOrder is the physical column order of headerless files.
var DefaultColumnOrder = []string{
	ColNext, ColProductID, ColYear, ColMonth, ColUnits,
	ColAvg, ColCount, ColMax, ColMin, ColPrev,
}

// NumericColumns lists every numeric field of ProductData, label included.
var NumericColumns = []string{
	ColYear, ColMonth, ColUnits, ColAvg, ColCount, ColMax, ColMin, ColPrev, ColNext,
}

// ProductData is one month of sales statistics for one product.
// Next is the label: the units sold in the following month.
type ProductData struct {
	ProductID string  `json:"productId" validate:"required"`
	Year      float64 `json:"year" validate:"gte=1900,lte=3000"`
	Month     float64 `json:"month" validate:"gte=1,lte=12"`
	Units     float64 `json:"units" validate:"gte=0"`
	Avg       float64 `json:"avg" validate:"gte=0"`
	Max       float64 `json:"max" validate:"gte=0"`
	Min       float64 `json:"min" validate:"gte=0"`
	Count     float64 `json:"count" validate:"gte=0"`
	Prev      float64 `json:"prev" validate:"gte=0"`
	Next      float64 `json:"next" validate:"gte=0"`
}

// Numeric returns the value of a numeric column by name.
func (p ProductData) Numeric(column string) (float64, bool) {
	switch column {
	case ColYear:
		return p.Year, true
	case ColMonth:
		return p.Month, true
	case ColUnits:
		return p.Units, true
	case ColAvg:
		return p.Avg, true
	case ColCount:
		return p.Count, true
	case ColMax:
		return p.Max, true
	case ColMin:
		return p.Min, true
	case ColPrev:
		return p.Prev, true
	case ColNext:
		return p.Next, true
	}
	return 0, false
}

func (p *ProductData) setNumeric(column string, v float64) {
	switch column {
	case ColYear:
		p.Year = v
	case ColMonth:
		p.Month = v
	case ColUnits:
		p.Units = v
	case ColAvg:
		p.Avg = v
	case ColCount:
		p.Count = v
	case ColMax:
		p.Max = v
	case ColMin:
		p.Min = v
	case ColPrev:
		p.Prev = v
	case ColNext:
		p.Next = v
	}
}

// ProductUnitPrediction is the forecast for the month following a ProductData row.
type ProductUnitPrediction struct {
	Score float64 `json:"score"`
}
