// Package order contains the order synchronization domain.
// It describes the canonical order record mirrored from the upstream shop
// panel and the rules used to decide whether a fetched record differs from
// the stored copy.
//
// Key concepts:
//   - Order: canonical order record keyed by OrderID
//   - Product: one order line (product id + quantity)
//   - UpdateResult: outcome counts of merging a fetched batch into the store
//   - Filter: inclusive worth bounds and product membership for queries
//
// Design Pattern: Ports & Adapters
//   - Repository and Source are ports implemented in the infrastructure layer
package order
