// Package subscription multiplexes any number of live signal streams
// over a single broker connection.
//
// The Multiplexer owns the subscription table and the producer side of
// every delivery queue; each Subscription handle owns the consumer
// side. Incoming updates are fanned out per path, so several
// independent subscribers to the same path each receive every update
// in broker-emission order. Queues are bounded: when a consumer falls
// behind, the oldest undelivered updates are dropped and the consumer
// observes a single ErrOverflow before reading resumes.
//
// After a reconnect the Multiplexer re-registers every subscription
// with its original identifier while consumer reads are gated, so a
// surviving stream resumes seamlessly and a failed one ends with
// ErrReconnectFailed.
package subscription
