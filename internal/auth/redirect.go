package auth

import (
	"net/url"
	"strconv"
	"strings"
)

// OutcomeKind classifies what a redirect carried back from the provider.
type OutcomeKind int

const (
	Absent  OutcomeKind = iota // Nothing auth-related in the redirect
	Granted                    // Access token delivered in the fragment
	Denied                     // Provider returned an error (e.g. access_denied)
	Code                       // Authorization code delivered in the query (PKCE)
)

func (k OutcomeKind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	case Code:
		return "code"
	default:
		return "unknown"
	}
}

// Outcome is the parsed result of a redirect.
type Outcome struct {
	Kind        OutcomeKind
	AccessToken string // Granted
	ExpiresIn   int    // Granted; 0 when the provider omitted it
	Code        string // Code
	Error       string // Denied
}

// ExtractTokenFromFragment parses an implicit-grant redirect fragment such as
// "access_token=X&token_type=Bearer&expires_in=3600". An error key wins over
// any token present.
func ExtractTokenFromFragment(fragment string) Outcome {
	params := parsePairs(strings.TrimPrefix(fragment, "#"))
	if len(params) == 0 {
		return Outcome{Kind: Absent}
	}

	if e, ok := params["error"]; ok {
		return Outcome{Kind: Denied, Error: e}
	}

	token := params["access_token"]
	if token == "" {
		return Outcome{Kind: Absent}
	}

	expiresIn, err := strconv.Atoi(params["expires_in"])
	if err != nil || expiresIn < 0 {
		expiresIn = 0
	}

	return Outcome{Kind: Granted, AccessToken: token, ExpiresIn: expiresIn}
}

// ExtractCodeFromQuery parses an authorization-code redirect query such as
// "code=abc&state=xyz".
func ExtractCodeFromQuery(query string) Outcome {
	params := parsePairs(strings.TrimPrefix(query, "?"))

	if e, ok := params["error"]; ok {
		return Outcome{Kind: Denied, Error: e}
	}
	if code := params["code"]; code != "" {
		return Outcome{Kind: Code, Code: code}
	}
	return Outcome{Kind: Absent}
}

// parsePairs splits key=value pairs on '&' and percent-decodes values.
// Unlike url.ParseQuery it leaves '+' alone and keeps undecodable values raw.
func parsePairs(s string) map[string]string {
	params := make(map[string]string)
	if s == "" {
		return params
	}

	for _, item := range strings.Split(s, "&") {
		if item == "" {
			continue
		}
		key, value, _ := strings.Cut(item, "=")
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		params[key] = value
	}
	return params
}
