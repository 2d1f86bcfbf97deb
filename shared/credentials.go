package shared

// Credentials represents the injected vendor credential set. An empty field
// means the corresponding transport is not configured.
type Credentials struct {
	// StreamAPIKey is the streaming vendor api key.
	StreamAPIKey string
	// QuoteAPIKey is the quote polling vendor api key.
	QuoteAPIKey string
	// GatewayURL is the base url of the session-authenticated gateway,
	// without the api version prefix (eg. https://localhost:5000).
	GatewayURL string
}

// SearchResult represents a single symbol search match.
type SearchResult struct {
	// Symbol is the tradable symbol.
	Symbol string
	// Description is the instrument description.
	Description string
	// Exchange is the listing exchange or region, when reported.
	Exchange string
	// Source identifies the vendor the match came from.
	Source string
}
