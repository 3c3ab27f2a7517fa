// Package moderation decides what happens to a newly submitted testimonial.
// It runs a fixed battery of content checks (profanity, spam heuristics,
// sentiment, near-duplicate detection, reviewer velocity and an optional AI
// classifier), folds their severities into a single verdict and keeps the
// full diagnostic trail so a human reviewer can see why.
//
// Evaluation is a pure computation over already-fetched inputs. The only
// I/O an Engine performs is the optional, time-bounded classifier call.
package moderation
