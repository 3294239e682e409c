package domain

type StockLevel struct {
	SkuCode   string `json:"sku_code"`
	Available int    `json:"available"`
	Reserved  int    `json:"reserved"`
}

// StockAvailability answers whether a SKU can currently be sold.
type StockAvailability struct {
	SkuCode string `json:"sku_code"`
	InStock bool   `json:"in_stock"`
}
