// Package frame provides the row/value model shared by every engine layer.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import frame; frame imports nothing internal. This
// keeps it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Cell values are a sealed set: Null, String, Int, Float, Bool
//   - Floats are allowed in row DATA but forbidden in hash INPUT -
//     fingerprints hash counts, column names, and version tokens only
//   - Content-addressed hashes use RFC 8785 canonical JSON + SHA-256
//     with domain separation
//   - Ordering uses logical clocks (seq) elsewhere; frame itself is
//     time-free
package frame
