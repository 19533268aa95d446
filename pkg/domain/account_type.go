package domain

import dErrors "veristage/pkg/domain-errors"

// AccountType discriminates which required-field table the step validator
// consults. Individual and organization applicants collect different personal
// details but share the same eight-stage walk.
type AccountType string

const (
	AccountIndividual   AccountType = "individual"
	AccountOrganization AccountType = "organization"
)

// ParseAccountType validates an account type received at a trust boundary.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(s) {
	case AccountIndividual, AccountOrganization:
		return AccountType(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown account type: "+s)
}
