// Package stream implements the persistent SSE transport for the gateway.
//
// A client opens the stream endpoint with GET, receives an "endpoint" event
// naming where to POST its protocol messages, and then reads "message"
// events carrying response envelopes. Messages POSTed to one stream are
// processed in arrival order by a single run loop; different streams are
// fully independent. When the HTTP connection ends, both directions of the
// duplex channel are released and any in-flight backend call is abandoned
// via context cancellation.
package stream
