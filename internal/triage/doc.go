// Package triage provides the business boundary for Sift's issue triage
// system. It defines the Engine (pure feature-assembly, scoring, and ranking
// pipeline), Service (persistence, notification, batch dispatch), Store
// interface, and domain models.
package triage
