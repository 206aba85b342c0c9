package config

// SecretStringValue replaces secrets in any marshaled output.
const SecretStringValue = "<secret>"

// SecretString holds values that must never leak into logs or dumped
// configuration: the bot token, the assistant API key. Marshaling in any
// form produces the placeholder, never the value.
type SecretString string

func (s SecretString) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return []byte("\"" + SecretStringValue + "\""), nil
}

func (s SecretString) MarshalYAML() (any, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return SecretStringValue, nil
}

// String keeps secrets out of fmt verbs as well.
func (s SecretString) String() string {
	if len(s) == 0 {
		return ""
	}
	return SecretStringValue
}
