package domain

// DefaultPrice is used for symbols missing from a PriceTable.
const DefaultPrice = 1.0

// PriceTable maps token symbol to USD price. It is read-only once handed to analysis.
type PriceTable map[string]float64

// Price returns the price for symbol, or DefaultPrice when unknown.
func (p PriceTable) Price(symbol string) float64 {
	if v, ok := p[symbol]; ok {
		return v
	}
	return DefaultPrice
}

// Clone returns an independent copy.
func (p PriceTable) Clone() PriceTable {
	out := make(PriceTable, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
