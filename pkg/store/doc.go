// Package store provides a client for the graph service's namespaced key/value
// store. Items are addressed by a namespace (an ordered list of path segments)
// and an id, and carry an opaque JSON payload plus optional metadata.
//
// Client methods map one-to-one onto the REST surface:
//
//	CreateItem      POST   /store/items
//	GetItem         GET    /store/items?namespace=..&id=..
//	SearchItems     POST   /store/items/search
//	DeleteItem      DELETE /store/items?namespace=..&id=..
//	ListNamespaces  GET    /store/namespaces
//
// Every failure is reported as an *apierr.Error. Non-200 responses carry the
// status code; transport and decoding failures are wrapped without one.
package store
