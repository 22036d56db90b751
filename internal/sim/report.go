package sim

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DayReport summarizes one simulated customer day. It is returned by the
// driver, logged by the app, and archived to blob storage.
type DayReport struct {
	Date           string         `json:"date"`
	Visits         int            `json:"visits"`
	UnitsSold      int            `json:"units_sold"`
	Spend          float64        `json:"spend"`
	OpeningBalance float64        `json:"opening_balance"`
	ClosingBalance float64        `json:"closing_balance"`
	SoldByProduct  map[string]int `json:"sold_by_product"`
	Requests       []string       `json:"requests,omitempty"`
	Rejections     int            `json:"rejections"`
	Malformed      int            `json:"malformed_decisions"`
	Faults         int            `json:"oracle_faults"`
	EventsAppended int            `json:"events_appended"`
	ClosingStock   map[string]int `json:"closing_stock"`
}

func newDayReport(date string, opening float64) *DayReport {
	return &DayReport{
		Date:           date,
		OpeningBalance: opening,
		SoldByProduct:  map[string]int{},
		ClosingStock:   map[string]int{},
	}
}

func (r *DayReport) recordClosingStock(stock domain.StockSnapshot) {
	for name, it := range stock.Items {
		r.ClosingStock[name] = it.Quantity
	}
}

// JSON renders the report as indented JSON for archiving.
func (r *DayReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
