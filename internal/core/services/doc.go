// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters): the batch cursor, the five
// enrichment stages, the geocode cache, the vector index manager
// and the query federator.
package services
