// Package transit decodes and encodes the serialized transit tiles the
// build stage consumes: stops, routes and scheduled stop pairs in a
// protobuf wire-format message, addressed by graph tile id.
package transit
