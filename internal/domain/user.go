package domain

import "strings"

// Record keys understood by the provisioning job.
const (
	KeyPrimaryEmail    = "primaryEmail"
	KeyGivenName       = "givenName"
	KeyFamilyName      = "familyName"
	KeyRecoveryEmail   = "recoveryEmail"
	KeyRecoveryPhone   = "recoveryPhone"
	KeyOrgUnitPath     = "orgUnitPath"
	KeyEmailToSendCred = "EmailToSendCred"
)

// RequiredKeys lists the fields a record must carry before the directory is contacted.
var RequiredKeys = []string{KeyPrimaryEmail, KeyGivenName, KeyFamilyName}

// UserRecord is one parsed input file: key -> value, both trimmed.
type UserRecord map[string]string

// Get returns the trimmed value for key, or "" when absent.
func (r UserRecord) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Has reports whether key is present with a non-empty value.
func (r UserRecord) Has(key string) bool {
	return r.Get(key) != ""
}

// Missing returns the required keys that are absent or empty, in RequiredKeys order.
func (r UserRecord) Missing() []string {
	var out []string
	for _, k := range RequiredKeys {
		if !r.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// CreatedUser is what the directory confirmed after a successful insert.
type CreatedUser struct {
	ID           string
	PrimaryEmail string
	OrgUnitPath  string
}

// Notification is the payload the notifier renders and sends.
// Secret stays empty unless a policy explicitly hands one over.
type Notification struct {
	To           string
	Username     string
	GivenName    string
	PrimaryEmail string
	Secret       string
}
