// Package core contains the client contracts, the CallError taxonomy, the
// ErrorHandler seam and the callback runner that moves call outcomes from a
// worker executor to a callback executor. Transports and converters live in
// adapter packages; core must not depend on them.
package core
