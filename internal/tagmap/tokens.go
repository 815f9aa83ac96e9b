package tagmap

// Placeholder tokens recognized inside name templates and column values.
// The token set is fixed: substitution is a literal single pass, not a
// templating language.
const (
	TokenName    = "{NAME}"
	TokenAddress = "{ADDRESS}"
	TokenKey     = "{KEY}"
	TokenAlias   = "{ALIAS}"
	TokenRecord  = "{RECORD}"
	TokenTag     = "{TAG}"
)
