// Package loyalty holds the points-based loyalty domain: merchants and their
// program settings, per-contact accounts, the append-only points ledger, the
// reward catalog and issued redemptions.
package loyalty
