package string

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Mask keeps the first half of s and replaces the rest with asterisks.
func Mask(s string) string {
	l := len(s)
	if l == 0 {
		return s
	}
	if l == 1 {
		return "*"
	}
	h := l / 2
	return s[0:h] + strings.Repeat("*", l-h)
}

// MaskURL masks the credentials, path and query values of a URL so it can be logged.
func MaskURL(urlString string) (string, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	var str strings.Builder
	str.WriteString(u.Scheme)
	str.WriteString("://")
	if u.User != nil {
		str.WriteString(Mask(u.User.Username()))
		if pass, ok := u.User.Password(); ok {
			str.WriteString(":")
			str.WriteString(Mask(pass))
		}
		str.WriteString("@")
	}
	str.WriteString(u.Host)
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		str.WriteString("/")
		str.WriteString(Mask(p))
	}
	var qs []string
	for k, v := range u.Query() {
		qs = append(qs, k+"="+Mask(strings.Join(v, ",")))
	}
	sort.Strings(qs)
	if len(qs) > 0 {
		str.WriteString("?")
		str.WriteString(strings.Join(qs, "&"))
	}
	return str.String(), nil
}

// MaskedString holds a secret. It prints masked and marshals to JSON and
// YAML unmasked, so configuration round-trips while logs stay clean.
type MaskedString string

// Text returns the unmasked value.
func (ms MaskedString) Text() string {
	return string(ms)
}

func (ms MaskedString) String() string {
	if len(ms) == 0 {
		return ""
	}
	return Mask(string(ms))
}

// GoString makes %#v print masked as well.
func (ms MaskedString) GoString() string {
	return ms.String()
}

func (ms MaskedString) MarshalText() ([]byte, error) {
	return []byte(ms.String()), nil
}

func (ms *MaskedString) UnmarshalText(text []byte) error {
	*ms = MaskedString(text)
	return nil
}

func (ms MaskedString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(ms))
}

func (ms *MaskedString) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err != nil {
		return err
	}
	*ms = MaskedString(s)
	return nil
}

func (ms MaskedString) MarshalYAML() (any, error) {
	return string(ms), nil
}

// NewMaskedString returns s as a MaskedString.
func NewMaskedString(s string) MaskedString {
	return MaskedString(s)
}
