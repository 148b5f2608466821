package bot

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"tickerbot/config"
	"tickerbot/quote"
)

// Movement is the direction of a price between two consecutive samples
type Movement int

const (
	MovementUp Movement = iota
	MovementDown
)

// Icon returns the styled indicator for the movement
func (m Movement) Icon(styles config.Styles) string {
	if m == MovementUp {
		return styles.PriceUpIcon
	}
	return styles.PriceDownIcon
}

// PriceMovement compares the previous sample with the current one. With no
// previous sample the sign of the 1-hour percent change decides.
func PriceMovement(previous *decimal.Decimal, current decimal.Decimal, percentChange1h float64) Movement {
	if previous != nil {
		if current.GreaterThanOrEqual(*previous) {
			return MovementUp
		}
		return MovementDown
	}
	if percentChange1h >= 0 {
		return MovementUp
	}
	return MovementDown
}

// FormatPrice renders a USD price with precision scaled to its magnitude,
// so small-cap coins keep their significant digits
func FormatPrice(price decimal.Decimal) string {
	switch {
	case price.LessThan(decimal.NewFromFloat(0.01)):
		return "$" + price.StringFixed(6)
	case price.LessThan(decimal.NewFromInt(1)):
		return "$" + price.StringFixed(4)
	case price.LessThan(decimal.NewFromInt(1000)):
		return "$" + price.StringFixed(2)
	default:
		return "$" + price.StringFixed(0)
	}
}

// VoiceChannelName renders the channel name for a voice ticker
func VoiceChannelName(q quote.Quote, movement Movement, styles config.Styles) string {
	return fmt.Sprintf("%s %s %s", q.Symbol, movement.Icon(styles), FormatPrice(q.PriceUSD))
}

// PriceMessage renders the text posted for a message ticker. The URL is
// wrapped in <> to suppress Discord's link preview.
func PriceMessage(q quote.Quote) string {
	url := fmt.Sprintf("<https://coinmarketcap.com/currencies/%s/>", q.Slug)
	return fmt.Sprintf("The price of %s (%s) is $%s USD on [CMC](%s)",
		q.Name, q.Symbol, q.PriceUSD.StringFixed(2), url)
}

// RatioMessage renders the text posted for a ratio pair: how many base units
// one quote unit buys, truncated to a whole number
func RatioMessage(base, quoteSide quote.Quote) string {
	url := fmt.Sprintf("<https://coinmarketcap.com/currencies/%s/>", quoteSide.Slug)
	ratio := "N/A"
	if !base.PriceUSD.IsZero() {
		ratio = fmt.Sprintf("%d", quoteSide.PriceUSD.Div(base.PriceUSD).IntPart())
	}
	return fmt.Sprintf("The swap rate of %s:%s is %s:1 on [CMC](%s)",
		base.Symbol, quoteSide.Symbol, ratio, url)
}

// SortByMarketCap orders quotes highest market cap first, in place
func SortByMarketCap(quotes []quote.Quote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].MarketCap > quotes[j].MarketCap
	})
}
