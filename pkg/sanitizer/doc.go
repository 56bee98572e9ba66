// Package sanitizer normalizes caller-supplied identifiers before they are
// validated, used as lock keys, or stored.
//
// All functions are idempotent. Invalid input is never rejected here; it is
// normalized as far as possible and left for the validator to refuse.
//
// Normalization includes:
//   - Coupon codes: trimmed, inner whitespace removed, upper-cased ("save 10" becomes "SAVE10")
//   - Airport codes: trimmed, upper-cased
//   - Identifiers (aircraft, route, room type, user): trimmed, inner whitespace collapsed
//   - Names: whitespace collapsed
//   - Slices: normalized, empty values and duplicates dropped
package sanitizer
