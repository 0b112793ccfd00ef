package inventory

// nextShoppingListFlag applies the shopping-list rule for a product moving to level.
// Only high takes a product off the list; medium keeps whatever it had.
func nextShoppingListFlag(previous bool, level StockLevel) bool {
	switch level {
	case StockLow, StockEmpty:
		return true
	case StockHigh:
		return false
	default:
		return previous
	}
}
