package google

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// FlexibleBool decodes a JSON bool or its string form. Google has sent
// email_verified both ways.
type FlexibleBool bool

func (b *FlexibleBool) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = FlexibleBool(t)
	case string:
		*b = FlexibleBool(strings.EqualFold(t, "true"))
	default:
		*b = false
	}
	return nil
}

// Claims is the payload of a Google ID token
type Claims struct {
	Email         string       `json:"email"`
	EmailVerified FlexibleBool `json:"email_verified"`
	Name          string       `json:"name,omitempty"`
	GivenName     string       `json:"given_name,omitempty"`
	FamilyName    string       `json:"family_name,omitempty"`
	Picture       string       `json:"picture,omitempty"`
	Locale        string       `json:"locale,omitempty"`
	HostedDomain  string       `json:"hd,omitempty"`
	jwt.RegisteredClaims
}
