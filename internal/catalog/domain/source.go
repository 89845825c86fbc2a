package domain

import "context"

// Credential identifies one tenant against the external catalog source.
type Credential struct {
	ShopDomain  string
	AccessToken string
}

// Page is one page of raw catalog items. An empty NextCursor means the
// pagination is exhausted.
type Page struct {
	Items      []RawItem
	NextCursor string
}

// Source fetches pages of catalog items from the external source of truth.
// Pages are strictly sequential: each call's cursor comes from the
// previous response.
type Source interface {
	FetchPage(ctx context.Context, cred Credential, cursor string) (Page, error)
}
