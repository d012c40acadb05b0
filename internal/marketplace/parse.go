package marketplace

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

// priceBlockIDs are element ids some storefronts put the displayed price in
var priceBlockIDs = map[string]bool{
	"priceblock_ourprice":  true,
	"priceblock_dealprice": true,
	"priceblock_saleprice": true,
	"price_inside_buybox":  true,
}

var currencySymbols = []struct {
	symbol   string
	currency string
}{
	{"US$", "USD"},
	{"J$", "JMD"},
	{"£", "GBP"},
	{"€", "EUR"},
	{"$", "USD"},
}

type scan struct {
	ogTitle   string
	title     string
	metaPrice string
	currency  string
	itemprop  string
	block     string
}

// Parse reads a product page and extracts the listing. Meta tags win over
// visible markup because they are not localised.
func Parse(r io.Reader) (*Product, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse product page: %w", err)
	}

	var s scan
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			s.visit(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	title := s.ogTitle
	if title == "" {
		title = s.title
	}

	var raw string
	for _, candidate := range []string{s.metaPrice, s.itemprop, s.block} {
		if candidate != "" {
			raw = candidate
			break
		}
	}
	if raw == "" {
		return nil, ErrNotFound
	}

	price, symbolCurrency, err := parsePrice(raw)
	if err != nil {
		return nil, ErrNotFound
	}
	currency := strings.ToUpper(s.currency)
	if currency == "" {
		currency = symbolCurrency
	}
	if currency == "" {
		currency = "USD"
	}

	return &Product{Title: title, Price: price, Currency: currency}, nil
}

func (s *scan) visit(n *html.Node) {
	switch n.Data {
	case "title":
		if s.title == "" && n.FirstChild != nil {
			s.title = strings.TrimSpace(n.FirstChild.Data)
		}
	case "meta":
		key := attr(n, "property")
		if key == "" {
			key = attr(n, "name")
		}
		content := strings.TrimSpace(attr(n, "content"))
		switch key {
		case "og:title":
			s.ogTitle = content
		case "product:price:amount", "og:price:amount":
			if s.metaPrice == "" {
				s.metaPrice = content
			}
		case "product:price:currency", "og:price:currency":
			if s.currency == "" {
				s.currency = content
			}
		}
		if attr(n, "itemprop") == "priceCurrency" && s.currency == "" {
			s.currency = content
		}
		if attr(n, "itemprop") == "price" && s.itemprop == "" {
			s.itemprop = content
		}
		return
	}

	if attr(n, "itemprop") == "price" && s.itemprop == "" {
		if v := attr(n, "content"); v != "" {
			s.itemprop = v
		} else {
			s.itemprop = text(n)
		}
	}
	if priceBlockIDs[attr(n, "id")] && s.block == "" {
		s.block = text(n)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.TrimSpace(b.String())
}

// parsePrice accepts "$1,299.00", "US$ 93.46" or "93.46" and returns the amount
// and the currency implied by the symbol, if any.
func parsePrice(raw string) (decimal.Decimal, string, error) {
	raw = strings.TrimSpace(raw)
	var currency string
	for _, cs := range currencySymbols {
		if strings.Contains(raw, cs.symbol) {
			currency = cs.currency
			break
		}
	}

	var digits strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			digits.WriteRune(r)
		}
	}
	price, err := decimal.NewFromString(digits.String())
	if err != nil {
		return decimal.Zero, "", err
	}
	if price.IsNegative() {
		return decimal.Zero, "", fmt.Errorf("negative price %q", raw)
	}
	return price, currency, nil
}
