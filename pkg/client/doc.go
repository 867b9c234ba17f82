// Package client is the public facade of the signal broker client.
//
// A Client owns one broker connection and one subscription
// multiplexer. The dynamic API (Get, Set, Subscribe) works on
// value.Value; the generic helpers (GetValue, SetValue,
// SubscribeValue) bind static Go types to the dynamic wire values,
// failing with TypeMismatchError instead of coercing.
//
//	c, err := client.Connect(ctx, "localhost:55555", client.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	speed, err := client.GetValue[float32](ctx, c, "Vehicle.Speed")
//
//	stream, err := client.SubscribeValue[float32](ctx, c, "Vehicle.Speed")
//	for {
//		v, err := stream.Next(ctx)
//		...
//	}
//
// Connection loss is handled per the configured reconnect policy:
// while reconnecting, stream reads suspend, and after a successful
// reconnect every subscription is re-established with its identity and
// queue intact. Only an exhausted policy or an explicit Close ends the
// streams.
package client
