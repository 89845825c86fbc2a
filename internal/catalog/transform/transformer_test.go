package transform

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"

	"github.com/merchantiq/catalogsync/internal/catalog/domain"
)

func newTransformer(t *testing.T) *Transformer {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return New(Params{GenID: node})
}

func TestTransformNormalizesItem(t *testing.T) {
	tr := newTransformer(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	raw := domain.RawItem{
		ID:          " prod-1 ",
		Title:       "  Vintage Lamp ",
		BodyHTML:    "<p>Warm &amp; bright</p>\n<div>brass base</div>",
		Vendor:      "Lumen Co",
		ProductType: "Lighting",
		Tags:        "home, Lighting, home , brass",
		Images:      []domain.RawImage{{Src: " https://cdn/img1.png "}, {Src: ""}},
		Variants: []domain.RawVariant{
			{ID: "v1", Title: "Small", Price: "19.90", InventoryQuantity: 0},
			{ID: "v2", Title: "Large", Price: "29.90", InventoryQuantity: 3},
		},
	}

	product, err := tr.Transform(42, raw, now)
	assert.NoError(t, err)
	assert.NotZero(t, product.ID)
	assert.Equal(t, int64(42), product.TenantID)
	assert.Equal(t, "prod-1", product.ExternalID)
	assert.Equal(t, "Vintage Lamp", product.Title)
	assert.Equal(t, "Warm & bright brass base", product.Description)
	assert.Equal(t, 19.90, product.Price)
	assert.Equal(t, []string{"home", "Lighting", "brass"}, []string(product.Tags))
	assert.Equal(t, []string{"https://cdn/img1.png"}, []string(product.Images))
	assert.Len(t, product.Variants, 2)
	assert.True(t, product.InStock)
	assert.Equal(t, now, product.LastSyncedAt)
}

func TestTransformMissingExternalID(t *testing.T) {
	tr := newTransformer(t)

	_, err := tr.Transform(1, domain.RawItem{ID: "   ", Title: "x"}, time.Now())
	if !errors.Is(err, domain.ErrMissingExternalID) {
		t.Fatalf("expected ErrMissingExternalID, got %v", err)
	}
}

func TestTransformPriceCoercion(t *testing.T) {
	tr := newTransformer(t)
	now := time.Now().UTC()

	// Empty price coerces to zero.
	product, err := tr.Transform(1, domain.RawItem{
		ID:       "p",
		Variants: []domain.RawVariant{{ID: "v", Price: ""}},
	}, now)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, product.Price)

	// Unparseable and negative prices are item errors.
	_, err = tr.Transform(1, domain.RawItem{
		ID:       "p",
		Variants: []domain.RawVariant{{ID: "v", Price: "abc"}},
	}, now)
	assert.Error(t, err)

	_, err = tr.Transform(1, domain.RawItem{
		ID:       "p",
		Variants: []domain.RawVariant{{ID: "v", Price: "-5"}},
	}, now)
	assert.Error(t, err)

	_, err = tr.Transform(1, domain.RawItem{
		ID:             "p",
		CompareAtPrice: "oops",
	}, now)
	assert.Error(t, err)
}

func TestTransformStockDerivation(t *testing.T) {
	tr := newTransformer(t)
	now := time.Now().UTC()

	// All variants at zero stock, no continue policy: out of stock.
	product, err := tr.Transform(1, domain.RawItem{
		ID: "p",
		Variants: []domain.RawVariant{
			{ID: "a", Price: "1", InventoryQuantity: 0},
			{ID: "b", Price: "2", InventoryQuantity: 0},
		},
	}, now)
	assert.NoError(t, err)
	assert.False(t, product.InStock)

	// Sell-when-out policy keeps the product in stock.
	product, err = tr.Transform(1, domain.RawItem{
		ID: "p",
		Variants: []domain.RawVariant{
			{ID: "a", Price: "1", InventoryQuantity: 0, InventoryPolicy: "CONTINUE"},
		},
	}, now)
	assert.NoError(t, err)
	assert.True(t, product.InStock)

	// No variants at all: out of stock.
	product, err = tr.Transform(1, domain.RawItem{ID: "p"}, now)
	assert.NoError(t, err)
	assert.False(t, product.InStock)
}

func TestStripHTML(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"a&nbsp;&lt;tag&gt;", "a <tag>"},
		{"<div>\n  spaced \t out  </div>", "spaced out"},
	}
	for _, tc := range cases {
		if got := StripHTML(tc.in); got != tc.want {
			t.Fatalf("StripHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitTags(t *testing.T) {
	assert.Nil(t, SplitTags("   "))
	assert.Equal(t, []string{"a", "b"}, SplitTags("a, b, A , ,b"))
	assert.Equal(t, []string{"Sale"}, SplitTags("Sale,sale,SALE"))
}
