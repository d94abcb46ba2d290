package zapclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseInt reads an integer delivered either as a JSON number or as a JSON
// string holding one. field names the value in the returned *ScanIDError.
func ParseInt(field string, raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedResponse, field)
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, &ScanIDError{Field: field, Raw: string(raw)}
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, &ScanIDError{Field: field, Raw: strconv.Quote(s)}
		}
		return n, nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return 0, &ScanIDError{Field: field, Raw: string(raw)}
	}
	n, err := strconv.Atoi(num.String())
	if err != nil {
		return 0, &ScanIDError{Field: field, Raw: num.String()}
	}
	return n, nil
}
