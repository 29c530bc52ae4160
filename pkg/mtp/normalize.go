package mtp

import (
	"fmt"
	"math"
	"time"

	"github.com/sinajet/nx-mtp-sender/pkg/backend"
)

// Kind classifies a content node.
type Kind int

const (
	KindFolder Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "folder"
}

// Offset between the FILETIME epoch (1601-01-01) and the Unix epoch
// (1970-01-01), in 100ns ticks.
const filetimeUnixDelta = 116444736000000000

// normalizeKind maps a backend-native type tag onto the canonical kind.
// Storages and the device root behave as folders everywhere in the tree
// model.
func normalizeKind(tag backend.TypeTag) (Kind, error) {
	switch tag {
	case backend.TagStorage, backend.TagFolder, backend.TagDevice:
		return KindFolder, nil
	case backend.TagFile:
		return KindFile, nil
	default:
		return KindFolder, &NormalizationError{
			Field:  "type tag",
			Value:  tag.String(),
			Reason: "unknown object type",
		}
	}
}

// normalizeTimestamp converts a backend-native modification timestamp into
// a canonical UTC instant. The canonical semantic is last-modification
// time. Pure function, no I/O; values outside the representable range fail
// with a NormalizationError rather than truncating.
func normalizeTimestamp(ts backend.RawTimestamp) (time.Time, error) {
	switch ts.Encoding {
	case backend.TimeUnset:
		return time.Time{}, nil

	case backend.TimeFiletime:
		if ts.Ticks > math.MaxInt64 {
			return time.Time{}, &NormalizationError{
				Field:  "modified",
				Value:  fmt.Sprintf("%d ticks", ts.Ticks),
				Reason: "filetime tick count exceeds representable range",
			}
		}
		ticks := int64(ts.Ticks) - filetimeUnixDelta
		t := time.Unix(ticks/1e7, (ticks%1e7)*100).UTC()
		if t.Year() < 1601 || t.Year() > 9999 {
			return time.Time{}, &NormalizationError{
				Field:  "modified",
				Value:  fmt.Sprintf("%d ticks", ts.Ticks),
				Reason: "filetime outside representable range",
			}
		}
		return t, nil

	case backend.TimeUnix:
		t := time.Unix(ts.Unix, 0).UTC()
		if t.Year() < 1 || t.Year() > 9999 {
			return time.Time{}, &NormalizationError{
				Field:  "modified",
				Value:  fmt.Sprintf("%d", ts.Unix),
				Reason: "unix timestamp outside representable range",
			}
		}
		return t, nil

	case backend.TimeText:
		t, err := time.Parse(time.RFC3339, ts.Text)
		if err != nil {
			return time.Time{}, &NormalizationError{
				Field:  "modified",
				Value:  ts.Text,
				Reason: "malformed timestamp text",
			}
		}
		return t.UTC(), nil

	default:
		return time.Time{}, &NormalizationError{
			Field:  "modified",
			Value:  fmt.Sprintf("encoding %d", ts.Encoding),
			Reason: "unknown timestamp encoding",
		}
	}
}
