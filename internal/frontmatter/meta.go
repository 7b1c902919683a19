package frontmatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Meta holds the page fields recognised in a TOML front-matter block.
// Absent keys leave the corresponding field nil.
type Meta struct {
	Date        *time.Time
	Description *string
	Excerpt     *string
	Draft       bool
	ExpiryDate  *time.Time
	Keywords    *string
	PublishDate *time.Time
	Summary     *string
	Template    *string
	Title       *string
}

// Location names BurntSushi/toml assigns to local date/time values.
const (
	localDatetime = "datetime-local"
	localDate     = "date-local"
	localTime     = "time-local"
)

// DecodeMeta parses front matter as TOML and extracts the known page keys.
// now supplies the missing parts of local dates and times: a date without a
// time takes the time of day from now, a time without a date takes the date
// from now, and values without an offset are placed in now's location.
func DecodeMeta(frontMatter string, now time.Time) (*Meta, error) {
	doc := map[string]any{}
	if _, err := toml.Decode(frontMatter, &doc); err != nil {
		return nil, fmt.Errorf("decoding front matter: %w", err)
	}

	m := &Meta{}
	var err error

	if m.Date, err = timeField(doc, "date", now); err != nil {
		return nil, err
	}
	if m.ExpiryDate, err = timeField(doc, "expiry_date", now); err != nil {
		return nil, err
	}
	if m.PublishDate, err = timeField(doc, "publish_date", now); err != nil {
		return nil, err
	}
	if m.Description, err = stringField(doc, "description"); err != nil {
		return nil, err
	}
	if m.Excerpt, err = stringField(doc, "excerpt"); err != nil {
		return nil, err
	}
	if m.Keywords, err = keywordsField(doc, "keywords"); err != nil {
		return nil, err
	}
	if m.Summary, err = stringField(doc, "summary"); err != nil {
		return nil, err
	}
	if m.Template, err = stringField(doc, "template"); err != nil {
		return nil, err
	}
	if m.Title, err = stringField(doc, "title"); err != nil {
		return nil, err
	}

	if v, ok := doc["draft"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("front matter key %q: expected boolean, got %T", "draft", v)
		}
		m.Draft = b
	}

	return m, nil
}

func stringField(doc map[string]any, key string) (*string, error) {
	v, ok := doc[key]
	if !ok {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("front matter key %q: expected string, got %T", key, v)
	}
	return &s, nil
}

// keywordsField accepts either a string or an array of strings, which is
// stored comma separated.
func keywordsField(doc map[string]any, key string) (*string, error) {
	v, ok := doc[key]
	if !ok {
		return nil, nil
	}
	switch kw := v.(type) {
	case string:
		return &kw, nil
	case []any:
		parts := make([]string, 0, len(kw))
		for _, item := range kw {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("front matter key %q: expected array of strings, found %T", key, item)
			}
			parts = append(parts, s)
		}
		joined := strings.Join(parts, ", ")
		return &joined, nil
	default:
		return nil, fmt.Errorf("front matter key %q: expected string or array, got %T", key, v)
	}
}

func timeField(doc map[string]any, key string, now time.Time) (*time.Time, error) {
	v, ok := doc[key]
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case time.Time:
		resolved := resolveLocal(t, now)
		return &resolved, nil
	case string:
		parsed, err := parseTimeString(t, now)
		if err != nil {
			return nil, fmt.Errorf("front matter key %q: %w", key, err)
		}
		return &parsed, nil
	default:
		return nil, fmt.Errorf("front matter key %q: expected datetime, got %T", key, v)
	}
}

// resolveLocal fills in the parts a TOML local date, time or datetime leaves
// out.
func resolveLocal(t time.Time, now time.Time) time.Time {
	loc := now.Location()
	switch t.Location().String() {
	case localDatetime:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	case localDate:
		return time.Date(t.Year(), t.Month(), t.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), loc)
	case localTime:
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	default:
		return t
	}
}

func parseTimeString(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, now.Location()); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
