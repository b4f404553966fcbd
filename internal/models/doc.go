// Package models defines the data model shared by both pipelines.
//
// The ingestion side ([Artist], [Album], [Song]) maps normalized catalog
// records onto the embedded SQLite schema. The to-do side ([Todo], [Session],
// [User]) mirrors the hosted backend's todos table and auth session payloads.
package models
