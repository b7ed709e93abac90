package validator

// VerifiedIdentity is the result of a successful verification.
type VerifiedIdentity struct {
	// Subject is the token's sub claim.
	Subject string `json:"sub"`
}
