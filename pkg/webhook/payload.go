package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexString decodes a JSON number or string into its string form.
// Integral values, whether sent as 7, 7.0, 1e3 or "007", decode to their
// canonical decimal form so they match the tags written for cached stories.
// null decodes to "".
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(canonicalInt(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected number or string: %w", err)
	}
	*f = FlexString(canonicalInt(n.String()))
	return nil
}

// canonicalInt rewrites s as a base-10 int64 when it denotes an integral
// number and returns it unchanged otherwise.
func canonicalInt(s string) string {
	t := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v != math.Trunc(v) {
		return s
	}
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return s
	}
	return strconv.FormatInt(int64(v), 10)
}

// Payload is the body of a content change notification.
type Payload struct {
	Action   string     `json:"action"`
	Text     string     `json:"text"`
	StoryID  FlexString `json:"story_id"`
	SpaceID  FlexString `json:"space_id"`
	FullSlug string     `json:"full_slug"`
	CV       FlexString `json:"cv"`
}
