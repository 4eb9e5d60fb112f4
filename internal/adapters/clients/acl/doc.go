// Package acl is the anti-corruption layer between the Quotes Service's wire
// format and the domain.
//
// The service speaks JSON over HTTP:
//
//	GET  /quotes  -> 200 [{"id": 1, "quote": "..."}, ...]
//	POST /quotes  {"quote": "..."} -> 201 {"msg": "..."} or the created record
//
// Both require "Authorization: Bearer <token>". Nothing outside this package
// sees the DTOs: record ids are dropped, failures become *domain.QuoteError
// values via [MapHTTPError], and payloads of the wrong shape become decode
// errors.
package acl
