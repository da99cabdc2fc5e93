package storefront

const (
	StatusAvailable    = "AVAILABLE"
	StatusOutOfStock   = "OUT_OF_STOCK"
	StatusDiscontinued = "DISCONTINUED"
)

const (
	CategoryTop         = "TOP"
	CategoryBottom      = "BOTTOM"
	CategoryAccessories = "ACCESSORIES"
)

const (
	ColorWhite = "WHITE"
	ColorBlack = "BLACK"
	ColorRed   = "RED"
	ColorBlue  = "BLUE"
)

// SizeOrder is the display order for sizes; unknown sizes sort after these.
var SizeOrder = []string{"S", "M", "L", "XL"}

func sizeRank(size string) int {
	for i, s := range SizeOrder {
		if s == size {
			return i
		}
	}
	return len(SizeOrder)
}
