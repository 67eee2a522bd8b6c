package form

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeInline decodes an inline image given either as a data URL
// ("data:image/png;base64,...") or as bare standard base64.
func DecodeInline(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
			return nil, fmt.Errorf("unsupported data URL: want base64 encoding")
		}
		s = s[comma+1:]
	}
	if s == "" {
		return nil, fmt.Errorf("empty inline image")
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some clients strip padding.
		if raw, rerr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rerr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return data, nil
}
