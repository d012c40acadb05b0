package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metaPage = `<!doctype html><html><head>
<title>Store | USB-C Charger</title>
<meta property="og:title" content="65W USB-C Charger">
<meta property="product:price:amount" content="93.46">
<meta property="product:price:currency" content="usd">
</head><body><span id="priceblock_ourprice">$99.00</span></body></html>`

const itempropPage = `<html><head><title>Desk Lamp</title></head><body>
<div itemscope itemtype="https://schema.org/Product">
  <span itemprop="price">£1,249.50</span>
</div></body></html>`

const blockPage = `<html><head><title>Keyboard</title></head><body>
<div id="priceblock_dealprice"><span>US$</span> <span>49.99</span></div>
</body></html>`

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		title    string
		price    string
		currency string
	}{
		{"meta tags win", metaPage, "65W USB-C Charger", "93.46", "USD"},
		{"itemprop", itempropPage, "Desk Lamp", "1249.50", "GBP"},
		{"price block", blockPage, "Keyboard", "49.99", "USD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(strings.NewReader(tt.page))
			require.NoError(t, err)
			assert.Equal(t, tt.title, p.Title)
			assert.True(t, decimal.RequireFromString(tt.price).Equal(p.Price), p.Price.String())
			assert.Equal(t, tt.currency, p.Currency)
		})
	}
}

func TestParse_NoPrice(t *testing.T) {
	_, err := Parse(strings.NewReader(`<html><head><title>Out of stock</title></head><body>Sold out</body></html>`))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Parse(strings.NewReader(`<html><body><span itemprop="price">call us</span></body></html>`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Lookup(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/item":
			_, _ = w.Write([]byte(metaPage))
		case "/blank":
			_, _ = w.Write([]byte(`<html></html>`))
		case "/error":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(2*time.Second, "bizdesk-test")

	p, err := c.Lookup(context.Background(), srv.URL+"/item")
	require.NoError(t, err)
	assert.Equal(t, "65W USB-C Charger", p.Title)
	assert.Equal(t, srv.URL+"/item", p.URL)
	assert.Equal(t, "bizdesk-test", gotUA)

	_, err = c.Lookup(context.Background(), srv.URL+"/blank")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup(context.Background(), srv.URL+"/error")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestClient_LookupRejectsBadURLs(t *testing.T) {
	c := NewClient(time.Second, "")
	for _, raw := range []string{"", "ftp://example.com/x", "example.com/item", "http://"} {
		_, err := c.Lookup(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}
