// Package models contains GORM persistence models that map to database tables.
// Domain aggregates carry no ORM tags; each model converts to and from its
// aggregate with ToDomain and FromDomain.
package models
