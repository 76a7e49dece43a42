// Package gateway assembles the HTTP surface of the service: the auth
// gate, the session store, the protocol dispatcher, and both transports.
package gateway
