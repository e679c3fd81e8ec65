// Package apierr defines the single error type returned by every graph service
// facade. A non-success HTTP status becomes an *Error carrying the status code;
// transport, encoding and decoding failures are wrapped into the same type with
// the original cause appended to the message and the status code left unset.
package apierr
