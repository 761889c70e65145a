// Package event provides a small synchronous publish/subscribe bus used to
// surface engine activity (transaction lifecycle, accept/reject outcomes,
// summary changes) to hosting code.
//
// Topics are hierarchical dot-separated strings ("diff.accepted",
// "transaction.created"). Subscriptions match an exact topic or, via
// SubscribePrefix, an entire subtree. Publishing is synchronous: handlers run
// in the publisher's goroutine in subscription order, and a panicking handler
// is recovered and reported without disturbing the remaining handlers.
package event
