// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The chunker is pure; the ingestor and live buffer orchestrate the
// embedding, storage and ledger collaborators injected into them.
package services
