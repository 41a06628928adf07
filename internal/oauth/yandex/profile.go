package yandex

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// avatarTemplate is Yandex's avatar CDN path; %s is default_avatar_id.
const avatarTemplate = "https://avatars.yandex.net/get-yapic/%s/islands-200"

// Profile is the subset of login.yandex.ru/info used to resolve accounts.
type Profile struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	Email       string `json:"default_email"`
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AvatarID    string `json:"default_avatar_id"`

	// Raw keeps every field returned by the provider.
	Raw map[string]any `json:"-"`
}

// AvatarURL returns the 200px avatar URL, or "" when the profile has no avatar.
func (p *Profile) AvatarURL() string {
	return AvatarURL(p.AvatarID)
}

// AvatarURL builds the CDN URL for an avatar id.
func AvatarURL(avatarID string) string {
	avatarID = strings.TrimSpace(avatarID)
	if avatarID == "" {
		return ""
	}
	return fmt.Sprintf(avatarTemplate, avatarID)
}

// decodeProfile accepts only a JSON object. id may be a string or a number.
func decodeProfile(body []byte) (*Profile, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode profile: trailing data")
	}
	if raw == nil {
		return nil, fmt.Errorf("decode profile: not an object")
	}

	p := &Profile{
		ID:          scalar(raw["id"]),
		Login:       scalar(raw["login"]),
		Email:       scalar(raw["default_email"]),
		DisplayName: scalar(raw["display_name"]),
		FirstName:   scalar(raw["first_name"]),
		LastName:    scalar(raw["last_name"]),
		AvatarID:    scalar(raw["default_avatar_id"]),
		Raw:         raw,
	}
	return p, nil
}

// scalar renders strings and numbers; anything else (null, objects) is "".
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
