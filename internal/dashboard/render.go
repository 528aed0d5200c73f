package dashboard

import (
	"fmt"
	"io"
	"strings"
)

const chartBarWidth = 40

// Render writes the price table and chart for one view. Pure presentation:
// every data decision happens before the View is built.
func Render(w io.Writer, v View) {
	mode := "light"
	if v.DarkMode {
		mode = "dark"
	}
	fmt.Fprintf(w, "CryptoPulse: Live Prices [%s]\n", mode)
	fmt.Fprintln(w, strings.Repeat("-", 34))

	for _, key := range v.Assets {
		star := " "
		if v.Favorites.Has(key) {
			star = "*"
		}
		cell := "Loading..."
		if price, ok := v.Prices[key]; ok {
			cell = fmt.Sprintf("$%.2f", price)
		}
		fmt.Fprintf(w, " %s %-6s %14s\n", star, key.Upper(), cell)
	}

	fmt.Fprintf(w, "\n%s chart (last %d points)\n", v.ChartAsset.Upper(), len(v.History))
	if len(v.History) == 0 {
		fmt.Fprintln(w, "Waiting for data...")
		return
	}

	lo, hi := v.History[0].Price, v.History[0].Price
	for _, p := range v.History {
		if p.Price < lo {
			lo = p.Price
		}
		if p.Price > hi {
			hi = p.Price
		}
	}

	for _, p := range v.History {
		bar := chartBarWidth
		if hi > lo {
			bar = 1 + int(float64(chartBarWidth-1)*(p.Price-lo)/(hi-lo))
		}
		fmt.Fprintf(w, " %s %-*s %12.2f\n",
			p.Time.Format("15:04:05"), chartBarWidth, strings.Repeat("#", bar), p.Price)
	}
}
