// Package model defines the POS entity catalogue stored in the local
// database: one struct, row codec and repository per entity, plus the static
// registry the change listener and push coordinator are configured with.
//
// Entities reference each other by *Ref id fields denormalized alongside a
// cached display-name snapshot, so list screens never need joins on the
// embedded store.
package model

// LocalizedName is the bilingual display name used across the catalogue.
// It is persisted as a JSON-encoded text column.
type LocalizedName struct {
	En string `json:"en"`
	Ar string `json:"ar"`
}

// Snapshot is the cached display-name copy stored next to a *Ref field. It
// is a weak reference: only the label is cached, never the referenced row's
// lifecycle.
type Snapshot struct {
	Name LocalizedName `json:"name"`
}

// Address is a free-form postal address blob, JSON-encoded in one column.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Country string `json:"country"`
	Zip     string `json:"zip"`
}
