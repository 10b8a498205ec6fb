// Package models contains the gorm persistence models of the loyalty
// platform and their conversions to and from domain entities.
//
// Column types are kept portable so the same models migrate on PostgreSQL
// and on the in-memory SQLite databases used in tests. The canonical schema
// lives in the migrations directory.
package models
