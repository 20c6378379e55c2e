// Package normalize turns raw platform telemetry into canonical fields.
//
// Each raw field passes through a fixed pipeline: the collector profile's
// title mapping first, then enum value mapping (operating modes and
// priorities), then unit assignment from the canonical sensor table, and
// finally a slug transform that derives the stable topic key. Values that
// parse as numbers are coerced to float64; everything else stays a string.
//
// The pipeline preserves payload order. When two raw fields collapse onto
// the same canonical key the later value wins and a warning is logged.
package normalize
