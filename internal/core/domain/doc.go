// Package domain contains the core business entities for the CV Screener.
// These types have no dependencies on adapters or external services.
package domain
