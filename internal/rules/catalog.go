package rules

// DefaultRules returns a fresh instance of every built-in rule, in the order
// the engine should run them.
func DefaultRules() []Rule {
	return []Rule{
		NewCredentialRule(),
		NewVendorKeyRule(),
		NewPrivateKeyRule(),
		NewJWTRule(),
		NewConnectionStringRule(),
		NewDynamicCodeRule(),
		NewCORSRule(),
		NewWeakCryptoRule(),
		NewSensitiveLoggingRule(),
		NewCommentSecretRule(),
		NewShellInjectionRule(),
	}
}

// DefaultRuleIDs lists the IDs of DefaultRules in order.
func DefaultRuleIDs() []string {
	defaults := DefaultRules()
	ids := make([]string, 0, len(defaults))
	for _, rule := range defaults {
		ids = append(ids, rule.ID())
	}
	return ids
}

// Lookup returns the built-in rule with the given ID.
func Lookup(id string) (Rule, bool) {
	for _, rule := range DefaultRules() {
		if rule.ID() == id {
			return rule, true
		}
	}
	return nil, false
}
