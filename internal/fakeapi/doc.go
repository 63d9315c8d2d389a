// Package fakeapi serves an in-memory copy of the grocery REST API.
//
// It backs the kitchen-fakeapi binary for local development and the
// end-to-end tests that drive the real HTTP client against it. Failure
// injection (SetFailure, SetDown) lets tests simulate outages and
// permanent rejections.
package fakeapi
