// Package capture distills raw page content into the fields a snapshot
// stores: title, description, favicon, canonical URL, and a bounded run
// of visible text.
//
// Content type is sniffed before parsing. HTML is charset-detected and
// decoded to UTF-8, then sanitized so scripts and event handlers never
// reach storage. Binary content keeps only its detected type.
package capture
