// Package models contains GORM persistence models that map to database tables.
// These models are separate from the billing aggregates to keep the domain
// layer free of ORM concerns. Aggregates cross the boundary as snapshots:
// FromXxxSnapshot builds a row, ToDomain rehydrates the aggregate.
//
// Tables:
//   - payments: Payment aggregates
//   - subscriptions: Subscription aggregates
//   - refund_records: one row per accepted refund, keyed by event id
//   - outbox_events: serialized domain events awaiting delivery
package models
