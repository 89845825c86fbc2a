// Package transform maps raw source items into the internal product shape.
package transform

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/merchantiq/catalogsync/internal/catalog/domain"
	"go.uber.org/fx"
)

// inventoryPolicyContinue marks a variant sellable while out of stock.
const inventoryPolicyContinue = "continue"

type Params struct {
	fx.In

	GenID *snowflake.Node
}

type Transformer struct {
	genID *snowflake.Node
}

func New(p Params) *Transformer {
	return &Transformer{genID: p.GenID}
}

// Transform normalizes one raw item into a product row. Errors are
// per-item; the caller skips the item and continues the batch.
func (t *Transformer) Transform(tenantID int64, raw domain.RawItem, now time.Time) (domain.Product, error) {
	externalID := strings.TrimSpace(raw.ID)
	if externalID == "" {
		return domain.Product{}, domain.ErrMissingExternalID
	}

	variants := make([]domain.Variant, 0, len(raw.Variants))
	inStock := false
	price := 0.0
	for i, rv := range raw.Variants {
		vp, err := coercePrice(rv.Price)
		if err != nil {
			return domain.Product{}, fmt.Errorf("variant %q: %w", rv.ID, err)
		}
		if i == 0 {
			price = vp
		}
		if rv.InventoryQuantity > 0 || strings.EqualFold(rv.InventoryPolicy, inventoryPolicyContinue) {
			inStock = true
		}
		variants = append(variants, domain.Variant{
			ExternalID: strings.TrimSpace(rv.ID),
			Title:      strings.TrimSpace(rv.Title),
			Price:      vp,
			Stock:      rv.InventoryQuantity,
		})
	}

	var compareAt *float64
	if strings.TrimSpace(raw.CompareAtPrice) != "" {
		v, err := coercePrice(raw.CompareAtPrice)
		if err != nil {
			return domain.Product{}, fmt.Errorf("compare_at_price: %w", err)
		}
		compareAt = &v
	}

	images := make([]string, 0, len(raw.Images))
	for _, img := range raw.Images {
		if src := strings.TrimSpace(img.Src); src != "" {
			images = append(images, src)
		}
	}

	return domain.Product{
		ID:             t.genID.Generate().Int64(),
		TenantID:       tenantID,
		ExternalID:     externalID,
		Title:          strings.TrimSpace(raw.Title),
		Description:    StripHTML(raw.BodyHTML),
		Price:          price,
		CompareAtPrice: compareAt,
		Vendor:         strings.TrimSpace(raw.Vendor),
		ProductType:    strings.TrimSpace(raw.ProductType),
		Tags:           SplitTags(raw.Tags),
		Images:         images,
		Variants:       variants,
		InStock:        inStock,
		LastSyncedAt:   now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripHTML removes markup and collapses whitespace from a description.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	out := tagPattern.ReplaceAllString(s, " ")
	out = html.UnescapeString(out)
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// SplitTags splits a comma-separated tag string, trimming and deduplicating
// case-insensitively while preserving first-seen casing and order.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func coercePrice(raw string) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", raw)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("negative price %q", raw)
	}
	return parsed, nil
}
