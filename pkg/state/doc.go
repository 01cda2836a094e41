// Package state defines persistence contracts for configuration documents
// stored per layer (base, environment, tenant, override), plus a resolver
// that loads the layers of a domain and merges them with
// layering.MergeLayers.
//
//   - Store[T] only loads and saves one document for one Ref.
//   - Resolver[T] loads several layers strongest first and merges them.
//   - Mutate is a load, edit, validate, save cycle guarded by ETags.
//
// Ref.Identifier() is the canonical storage key, for example
// "tenant/acme/default/admin".
package state
