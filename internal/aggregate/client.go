package aggregate

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ClientAliases maps a brand token found in account names to the canonical
// client (hotel) name shown on the dashboard.
type ClientAliases map[string]string

// ClientResolver canonicalises client labels against a fixed alias table.
type ClientResolver struct {
	tokens  []string
	aliases map[string]string
}

// NewClientResolver prepares the alias table. Tokens match case-insensitively
// and the longest matching token wins, so "grand plaza" beats "plaza".
func NewClientResolver(aliases ClientAliases) *ClientResolver {
	r := &ClientResolver{aliases: make(map[string]string, len(aliases))}
	for token, canonical := range aliases {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		r.aliases[token] = canonical
		r.tokens = append(r.tokens, token)
	}
	sort.Slice(r.tokens, func(i, j int) bool {
		if len(r.tokens[i]) != len(r.tokens[j]) {
			return len(r.tokens[i]) > len(r.tokens[j])
		}
		return r.tokens[i] < r.tokens[j]
	})
	return r
}

// Resolve returns the alias matched in accountName, or the title-cased raw client.
func (r *ClientResolver) Resolve(accountName, client string) string {
	if r != nil && accountName != "" {
		name := strings.ToLower(accountName)
		for _, token := range r.tokens {
			if strings.Contains(name, token) {
				return r.aliases[token]
			}
		}
	}
	return titleCase(client)
}

func titleCase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Title(language.Und).String(s)
}
