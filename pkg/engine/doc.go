// Package engine implements file generation for the ROP simulator.
//
// The engine owns the live registry: one published link per (category, node
// index) slot, each pointing at a template in the remote bin area.
//
// Bootstrap fills empty slots. For every category it assigns templates to
// node indexes round-robin in pool order and publishes a link whose path
// carries the synthetic node name and the current ROP window.
//
// Rotate moves every live link to the current window. The resulting live set
// is pushed into a retention window; when a snapshot is evicted, its paths
// that are no longer referenced are deleted from the store.
//
// Errors returned by Bootstrap and Rotate can be told apart with errors.As:
// *ConnectivityError, *naming.NamingError and *PublishError.
package engine
