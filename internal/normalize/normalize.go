package normalize

import (
	"strconv"
	"strings"

	"github.com/dessmon/dessmon-core/internal/dess"
	"github.com/dessmon/dessmon-core/internal/devcode"
)

// Field is one canonical telemetry reading.
type Field struct {
	// Key is the slug used in topic paths and as the storage field name.
	Key string

	// Title is the canonical field title after profile mapping.
	Title string

	// Text is the value in its string form, after enum mapping.
	Text string

	// Number holds the parsed value when Numeric is true.
	Number float64

	// Numeric reports whether the value parsed as a number.
	Numeric bool

	// Unit is the measurement unit, from the payload or the canonical
	// sensor table.
	Unit string
}

// Value returns the field value in its natural type for JSON encoding.
func (f Field) Value() any {
	if f.Numeric {
		return f.Number
	}
	return f.Text
}

// Logger is the minimal logging interface the normalizer needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// Normalizer applies the canonical field pipeline.
type Normalizer struct {
	logger Logger
}

// New creates a normalizer. The logger may be nil.
func New(logger Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize maps raw platform fields through the collector profile into
// canonical fields. Order follows the payload; duplicate canonical keys
// keep the later value in the earlier position.
func (n *Normalizer) Normalize(profile *devcode.Profile, raw []dess.RawField) []Field {
	fields := make([]Field, 0, len(raw))
	index := make(map[string]int, len(raw))

	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}

		title = profile.MapTitle(title)
		value := profile.MapValue(title, r.Val.String())

		unit := strings.TrimSpace(r.Unit)
		meta, known := LookupMeta(title)
		if unit == "" && known {
			unit = meta.Unit
		}

		field := Field{
			Key:   Slug(title),
			Title: title,
			Text:  value,
			Unit:  unit,
		}
		if num, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil && value != "" {
			field.Number = num
			field.Numeric = true
		} else if unit != "" {
			// A unit promises a numeric quantity. A value that does not
			// parse is a platform glitch, not a reading.
			if n.logger != nil {
				n.logger.Warn("dropping unparseable numeric field",
					"title", title,
					"value", value,
					"unit", unit,
					"devcode", profile.Devcode,
				)
			}
			continue
		}

		if at, dup := index[field.Key]; dup {
			if n.logger != nil {
				n.logger.Warn("duplicate canonical field, keeping later value",
					"key", field.Key,
					"devcode", profile.Devcode,
				)
			}
			fields[at] = field
			continue
		}

		index[field.Key] = len(fields)
		fields = append(fields, field)
	}

	return fields
}

// Slug derives the stable topic key for a canonical title: lowercase, with
// runs of non-alphanumeric characters collapsed to single underscores.
func Slug(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingSep := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}

	return b.String()
}
