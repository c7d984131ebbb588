// Package server hosts the Fiber HTTP service that exposes the asset locator:
// request-id middleware, the /api lookup and upload handlers, and the mapping
// from locator/backend errors to JSON error codes. Diagnostics under /-/ live
// in the routes subpackage; keep exports narrow and accept explicit
// dependencies so handlers can be tested with fake locators.
package server
