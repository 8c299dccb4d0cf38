// Package stage defines the fixed, ordered catalog of the eight approval
// pipeline stages and the translator between canonical identifiers and
// display names.
//
// The catalog is static configuration: any reconfiguration is a deployment
// change, not a runtime operation. Every other package consults it read-only.
package stage
