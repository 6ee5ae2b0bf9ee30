// Package docchat answers natural-language questions about technical
// documentation fetched from a URL. Documents are ingested in the background,
// split into retrievable chunks, and queried through a multi-turn workflow
// that classifies intent, routes, composes grounded answers, and remembers
// the conversation.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, gemini/, goquery/) or
// after the workflow stage they implement (chunk/, retrieve/, workflow/).
package docchat
