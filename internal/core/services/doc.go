// Package services implements the core business logic of the CV Screener:
// hybrid retrieval, prompt composition, answer generation with guardrail
// validation, response caching, and resume ingestion.
//
// Services depend only on ports; adapters are injected at wiring time.
package services
