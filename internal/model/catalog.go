package model

import "github.com/shopspring/decimal"

// CatalogItem is a stocked product. QuantityAvailable is only ever
// decremented inside the fulfillment transaction; restocks come from
// the admin API.
type CatalogItem struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"` // unique
	QuantityAvailable int64           `json:"quantity_available"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
}

// StockLevel is a point-in-time stock reading for a catalog item,
// reported by the fulfillment transaction for the items it touched.
type StockLevel struct {
	CatalogItemID int64  `json:"catalog_item_id"`
	Name          string `json:"name"`
	Remaining     int64  `json:"remaining"`
}
