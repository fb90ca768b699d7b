package model

// Credentials is the configured Monarch login identity. The MFA secret is
// optional; when present, MFA challenges are completed automatically with
// a derived one-time code.
type Credentials struct {
	Email     string
	Password  string
	MFASecret string
}

// HasMFASecret reports whether an MFA secret is configured.
func (c Credentials) HasMFASecret() bool {
	return c.MFASecret != ""
}
