package wire

import "strconv"

// MEXC field numbers, per spec.md §6: the envelope carries a channel
// name, a symbol, and one of two payload kinds keyed by a large field
// number (MEXC's generated .proto reserves low numbers for other push
// types we never subscribe to).
const (
	mexcFieldChannel = 1
	mexcFieldSymbol  = 3
	mexcFieldDepth   = 313
	mexcFieldDeals   = 314
)

// Within the depth/deals sub-messages, bid and ask (or buy/sell trade)
// levels are repeated length-delimited entries under these field numbers.
const (
	mexcFieldBidLevel = 1
	mexcFieldAskLevel = 2

	mexcFieldPrice    = 1
	mexcFieldQuantity = 2
)

// MEXCEnvelope is the decoded top-level push message.
type MEXCEnvelope struct {
	Channel    string
	Symbol     string
	DepthRaw   []byte // set if this envelope carries a depth payload
	DealsRaw   []byte // set if this envelope carries a deals (trade) payload
}

// ParseMEXCEnvelope walks the top-level fields of a MEXC binary push
// message, extracting only the fields the core uses. Unknown fields are
// silently skipped, matching spec.md §4.2's tolerance requirement.
func ParseMEXCEnvelope(data []byte) (*MEXCEnvelope, error) {
	env := &MEXCEnvelope{}
	err := Walk(data, func(f Field) error {
		switch f.Number {
		case mexcFieldChannel:
			env.Channel = f.String()
		case mexcFieldSymbol:
			env.Symbol = f.String()
		case mexcFieldDepth:
			env.DepthRaw = f.Raw
		case mexcFieldDeals:
			env.DealsRaw = f.Raw
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

// MEXCLevel is one decoded bid or ask level.
type MEXCLevel struct {
	Price float64
	Qty   float64
}

// MEXCDepth is the decoded content of a depth payload.
type MEXCDepth struct {
	Bids []MEXCLevel
	Asks []MEXCLevel
}

// ParseMEXCDepth decodes a depth sub-message's repeated price/quantity
// level entries on both sides of the book.
func ParseMEXCDepth(data []byte) (*MEXCDepth, error) {
	depth := &MEXCDepth{}
	err := Walk(data, func(f Field) error {
		switch f.Number {
		case mexcFieldBidLevel:
			lvl, err := parseMEXCLevel(f.Raw)
			if err != nil {
				return nil // drop malformed level, session continues
			}
			depth.Bids = append(depth.Bids, lvl)
		case mexcFieldAskLevel:
			lvl, err := parseMEXCLevel(f.Raw)
			if err != nil {
				return nil
			}
			depth.Asks = append(depth.Asks, lvl)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return depth, nil
}

func parseMEXCLevel(data []byte) (MEXCLevel, error) {
	var lvl MEXCLevel
	err := Walk(data, func(f Field) error {
		switch f.Number {
		case mexcFieldPrice:
			v, err := strconv.ParseFloat(f.String(), 64)
			if err == nil {
				lvl.Price = v
			}
		case mexcFieldQuantity:
			v, err := strconv.ParseFloat(f.String(), 64)
			if err == nil {
				lvl.Qty = v
			}
		}
		return nil
	})
	return lvl, err
}

// MEXCDeal is a single decoded trade print.
type MEXCDeal struct {
	Price float64
	Qty   float64
	IsBuy bool
}

const mexcFieldDealIsBuy = 3

// ParseMEXCDeals decodes a deals sub-message's repeated trade entries.
func ParseMEXCDeals(data []byte) ([]MEXCDeal, error) {
	var deals []MEXCDeal
	err := Walk(data, func(f Field) error {
		if f.WireType != WireLengthDelim {
			return nil
		}
		deal := MEXCDeal{}
		innerErr := Walk(f.Raw, func(inner Field) error {
			switch inner.Number {
			case mexcFieldPrice:
				if v, err := strconv.ParseFloat(inner.String(), 64); err == nil {
					deal.Price = v
				}
			case mexcFieldQuantity:
				if v, err := strconv.ParseFloat(inner.String(), 64); err == nil {
					deal.Qty = v
				}
			case mexcFieldDealIsBuy:
				deal.IsBuy = inner.Varint == 1
			}
			return nil
		})
		if innerErr != nil {
			return nil // drop malformed deal, keep walking the envelope
		}
		deals = append(deals, deal)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deals, nil
}
