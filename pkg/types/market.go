package types

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Market represents a Polymarket market from the Gamma API.
type Market struct {
	ID             string    `json:"id"`
	ConditionID    string    `json:"conditionId"`
	Question       string    `json:"question"`
	Slug           string    `json:"slug"`
	Closed         bool      `json:"closed"`
	Active         bool      `json:"active"`
	Tokens         []Token   `json:"-"` // Populated from outcomes + clobTokenIds
	Volume24hr     float64   `json:"volume24hr"`
	LastTradePrice float64   `json:"lastTradePrice"`
	CreatedAt      time.Time `json:"createdAt"`
	EndDate        time.Time `json:"endDate"`
	Outcomes       string    `json:"outcomes"`     // JSON string: "[\"Yes\", \"No\"]"
	ClobTokens     string    `json:"clobTokenIds"` // JSON string: "[\"token1\", \"token2\"]"
}

// UnmarshalJSON parses outcomes and clobTokenIds into Tokens.
// Only the first two tokens are kept: binary markets are the monitored set.
func (m *Market) UnmarshalJSON(data []byte) error {
	type Alias Market
	aux := &struct {
		Volume24hr     FlexFloat `json:"volume24hr"`
		LastTradePrice FlexFloat `json:"lastTradePrice"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Volume24hr = float64(aux.Volume24hr)
	m.LastTradePrice = float64(aux.LastTradePrice)

	if m.Outcomes == "" || m.ClobTokens == "" {
		return nil
	}

	var outcomes []string
	var tokenIDs []string
	if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err != nil {
		return nil //nolint:nilerr // malformed outcome lists leave Tokens empty
	}
	if err := json.Unmarshal([]byte(m.ClobTokens), &tokenIDs); err != nil {
		return nil //nolint:nilerr // same as above
	}

	m.Tokens = make([]Token, 0, 2)
	for i, outcome := range outcomes {
		if i >= len(tokenIDs) || i >= 2 {
			break
		}
		m.Tokens = append(m.Tokens, Token{
			TokenID: tokenIDs[i],
			Outcome: NormalizeOutcome(outcome),
		})
	}

	return nil
}

// Key returns the identifier used to track the market. Trades on the
// market channel reference the condition id.
func (m *Market) Key() string {
	if m.ConditionID != "" {
		return m.ConditionID
	}
	return m.ID
}

// TokenIDs returns the CLOB token ids of the market.
func (m *Market) TokenIDs() []string {
	ids := make([]string, 0, len(m.Tokens))
	for _, t := range m.Tokens {
		ids = append(ids, t.TokenID)
	}
	return ids
}

// Token represents a market outcome token (YES or NO).
type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price,omitempty"`
}

// GetTokenByOutcome returns the token for a specific outcome (YES or NO).
func (m *Market) GetTokenByOutcome(outcome string) *Token {
	outcome = NormalizeOutcome(outcome)
	for i := range m.Tokens {
		if m.Tokens[i].Outcome == outcome {
			return &m.Tokens[i]
		}
	}
	return nil
}

// NormalizeOutcome maps Yes/yes/YES to YES and No/no/NO to NO.
// Other outcome names are upper-cased.
func NormalizeOutcome(outcome string) string {
	return strings.ToUpper(strings.TrimSpace(outcome))
}
