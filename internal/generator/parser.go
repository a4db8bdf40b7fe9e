// internal/generator/parser.go
package generator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jason-s-yu/classkit/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrMalformedOutput is returned when the backend reply is not a JSON list of items at all.
var ErrMalformedOutput = fmt.Errorf("%w: malformed output", ErrGenerationFailed)

// Rejection records why one candidate item was discarded.
type Rejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// ParseResult is the validated content of one backend reply.
type ParseResult struct {
	Items    []models.Item
	Rejected []Rejection
}

// ParseItems turns a raw backend reply into validated items. It accepts a bare JSON array or
// an object with an "items" array, optionally wrapped in markdown fences or followed by
// trailing text. Elements are read one at a time, so a reply cut off mid-element keeps every
// complete element and drops the partial tail. Each candidate is decoded strictly and checked
// against the activity's item shape; invalid, duplicate and excluded candidates are dropped
// and reported. At most req.Count items are kept. Zero surviving items is ErrNoValidItems.
func ParseItems(raw string, req Request) (ParseResult, error) {
	candidates, truncated, err := extractCandidates(raw)
	if err != nil {
		return ParseResult{}, err
	}

	var res ParseResult
	excluded := excludeSet(req.Exclude)
	seen := make(map[string]struct{}, len(candidates))

	for i, c := range candidates {
		it, err := decodeItem(c)
		if err == nil {
			it = it.Normalize()
			err = models.ValidateItem(req.Activity, it)
		}
		if err != nil {
			res.Rejected = append(res.Rejected, Rejection{Index: i, Reason: err.Error()})
			continue
		}

		key := normalizeText(it.Text)
		if _, dup := seen[key]; dup {
			res.Rejected = append(res.Rejected, Rejection{Index: i, Reason: "duplicate item"})
			continue
		}
		if _, ex := excluded[key]; ex {
			res.Rejected = append(res.Rejected, Rejection{Index: i, Reason: "excluded item"})
			continue
		}
		seen[key] = struct{}{}

		if req.Count > 0 && len(res.Items) >= req.Count {
			break
		}
		res.Items = append(res.Items, it)
	}
	if truncated {
		res.Rejected = append(res.Rejected, Rejection{Index: len(candidates), Reason: "incomplete item"})
	}

	if len(res.Rejected) > 0 {
		logrus.WithFields(logrus.Fields{
			"activity":  req.Activity,
			"kept":      len(res.Items),
			"rejected":  len(res.Rejected),
			"truncated": truncated,
		}).Debug("discarded malformed generated items")
	}
	if len(res.Items) == 0 {
		return res, ErrNoValidItems
	}
	return res, nil
}

// extractCandidates finds the item array in a reply and returns its complete elements. The
// bool reports that reading stopped at an element that could not be read to its end.
func extractCandidates(raw string) ([]json.RawMessage, bool, error) {
	body := stripFences(raw)
	if body == "" {
		return nil, false, fmt.Errorf("%w: empty reply", ErrMalformedOutput)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	switch tok {
	case json.Delim('['):
	case json.Delim('{'):
		if err := seekItems(dec); err != nil {
			return nil, false, err
		}
	default:
		return nil, false, fmt.Errorf("%w: expected array or object", ErrMalformedOutput)
	}

	var list []json.RawMessage
	for dec.More() {
		var el json.RawMessage
		if err := dec.Decode(&el); err != nil {
			return list, true, nil
		}
		list = append(list, el)
	}
	return list, false, nil
}

// seekItems advances dec past the opening bracket of the object's "items" array.
func seekItems(dec *json.Decoder) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		if key, _ := keyTok.(string); key == "items" {
			tok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
			}
			if tok != json.Delim('[') {
				return fmt.Errorf("%w: \"items\" is not an array", ErrMalformedOutput)
			}
			return nil
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
	}
	return fmt.Errorf("%w: object has no \"items\" array", ErrMalformedOutput)
}

// decodeItem decodes one candidate and rejects fields the item schema does not have.
func decodeItem(data json.RawMessage) (models.Item, error) {
	var it models.Item
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&it); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return models.Item{}, fmt.Errorf("%w: field %q has the wrong type", models.ErrInvalidItem, typeErr.Field)
		}
		return models.Item{}, fmt.Errorf("%w: %v", models.ErrInvalidItem, err)
	}
	return it, nil
}

// stripFences removes markdown code fences and any prose before the first bracket.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if i := strings.IndexAny(s, "[{"); i > 0 {
		s = s[i:]
	} else if i < 0 {
		return ""
	}
	return strings.TrimSpace(s)
}
