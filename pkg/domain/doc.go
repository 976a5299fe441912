// Package domain contains the core entities of the expiry monitor: registrar
// accounts, the per-domain expiry record and the registrar lifecycle status.
// These types are free of transport concerns so the registrar client, the
// WHOIS resolver, the aggregator and the presentation layers can share them.
package domain
