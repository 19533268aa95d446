// Package schema declares the shape of every collectible onboarding attribute:
// stable field keys, the eight ordered stages, the document slots, and the
// required-field tables keyed by account type. It is a leaf package with no
// behavior beyond lookups; the validator, scorer, and persistence payload all
// key off the same identifiers so they can never drift apart.
package schema

import "veristage/pkg/domain"

// FieldKey is the stable, unique key of one draft attribute. Keys double as
// JSON keys in the submission payload.
type FieldKey string

// Identity.
const (
	FieldFirstName     FieldKey = "first_name"
	FieldMiddleName    FieldKey = "middle_name"
	FieldLastName      FieldKey = "last_name"
	FieldDateOfBirth   FieldKey = "date_of_birth"
	FieldPlaceOfBirth  FieldKey = "place_of_birth"
	FieldNationality   FieldKey = "nationality"
	FieldGender        FieldKey = "gender"
	FieldMaritalStatus FieldKey = "marital_status"
)

// Organization-only identity.
const (
	FieldRegistrationNumber FieldKey = "registration_number"
	FieldIncorporationDate  FieldKey = "incorporation_date"
	FieldContactPerson      FieldKey = "contact_person"
)

// Contact.
const (
	FieldPhone              FieldKey = "phone"
	FieldEmail              FieldKey = "email"
	FieldAddressLine1       FieldKey = "address_line1"
	FieldAddressLine2       FieldKey = "address_line2"
	FieldCity               FieldKey = "city"
	FieldRegion             FieldKey = "region"
	FieldPostalCode         FieldKey = "postal_code"
	FieldCountryOfResidence FieldKey = "country_of_residence"
)

// Government identification.
const (
	FieldIDType          FieldKey = "id_type"
	FieldIDNumber        FieldKey = "id_number"
	FieldIDIssueDate     FieldKey = "id_issue_date"
	FieldIDExpiryDate    FieldKey = "id_expiry_date"
	FieldIDFrontDocument FieldKey = "id_front_document"
	FieldIDBackDocument  FieldKey = "id_back_document"
)

// Tax.
const (
	FieldTaxIDNumber            FieldKey = "tax_id_number"
	FieldTaxCountry             FieldKey = "tax_country"
	FieldTaxCertificateDocument FieldKey = "tax_certificate_document"
)

// Employment.
const (
	FieldEmploymentStatus FieldKey = "employment_status"
	FieldOccupation       FieldKey = "occupation"
	FieldEmployerName     FieldKey = "employer_name"
	FieldEmploymentSector FieldKey = "employment_sector"
	FieldYearsEmployed    FieldKey = "years_employed"
)

// Financial profile.
const (
	FieldIncomeBracket       FieldKey = "income_bracket"
	FieldSourceOfFunds       FieldKey = "source_of_funds"
	FieldInvestmentObjective FieldKey = "investment_objective"
	FieldRiskTolerance       FieldKey = "risk_tolerance"
	FieldExpectedActivity    FieldKey = "expected_activity"
)

// Bank settlement.
const (
	FieldBankName           FieldKey = "bank_name"
	FieldBankBranch         FieldKey = "bank_branch"
	FieldAccountName        FieldKey = "account_name"
	FieldAccountNumber      FieldKey = "account_number"
	FieldSettlementCurrency FieldKey = "settlement_currency"
)

// Depository account.
const (
	FieldDepositoryParticipant   FieldKey = "depository_participant"
	FieldDepositoryAccountNumber FieldKey = "depository_account_number"
	FieldExistingHolder          FieldKey = "existing_holder"
	FieldTermsAttested           FieldKey = "terms_attested"
)

// SlotName identifies one document upload placeholder. Each slot is bound to
// the draft field that carries its resolved reference.
type SlotName string

const (
	SlotIDFront        SlotName = "id-front"
	SlotIDBack         SlotName = "id-back"
	SlotTaxCertificate SlotName = "tax-certificate"
)

// SlotField maps a document slot to the draft field holding its reference.
var SlotField = map[SlotName]FieldKey{
	SlotIDFront:        FieldIDFrontDocument,
	SlotIDBack:         FieldIDBackDocument,
	SlotTaxCertificate: FieldTaxCertificateDocument,
}

// Slots returns every document slot in stable order.
func Slots() []SlotName {
	return []SlotName{SlotIDFront, SlotIDBack, SlotTaxCertificate}
}

// ParseSlot validates a slot name received at a trust boundary.
func ParseSlot(s string) (SlotName, bool) {
	name := SlotName(s)
	_, ok := SlotField[name]
	return name, ok
}

// StageID is one of the eight ordered data-collection stages. Stage IDs are
// contiguous and totally ordered; StageDepository is the submission boundary.
type StageID int

const (
	StagePersonal StageID = iota + 1
	StageContact
	StageIdentification
	StageTax
	StageEmployment
	StageFinancialProfile
	StageBank
	StageDepository

	StageCount = int(StageDepository)
)

// Stage is an ordered, immutable stage definition.
type Stage struct {
	ID     StageID
	Name   string
	Fields []FieldKey
	Slots  []SlotName
}

var stages = []Stage{
	{
		ID:   StagePersonal,
		Name: "Personal Details",
		Fields: []FieldKey{
			FieldFirstName, FieldMiddleName, FieldLastName, FieldDateOfBirth,
			FieldPlaceOfBirth, FieldNationality, FieldGender, FieldMaritalStatus,
			FieldRegistrationNumber, FieldIncorporationDate, FieldContactPerson,
		},
	},
	{
		ID:   StageContact,
		Name: "Contact Information",
		Fields: []FieldKey{
			FieldPhone, FieldEmail, FieldAddressLine1, FieldAddressLine2,
			FieldCity, FieldRegion, FieldPostalCode, FieldCountryOfResidence,
		},
	},
	{
		ID:   StageIdentification,
		Name: "Identification",
		Fields: []FieldKey{
			FieldIDType, FieldIDNumber, FieldIDIssueDate, FieldIDExpiryDate,
			FieldIDFrontDocument, FieldIDBackDocument,
		},
		Slots: []SlotName{SlotIDFront, SlotIDBack},
	},
	{
		ID:     StageTax,
		Name:   "Tax Information",
		Fields: []FieldKey{FieldTaxIDNumber, FieldTaxCountry, FieldTaxCertificateDocument},
		Slots:  []SlotName{SlotTaxCertificate},
	},
	{
		ID:   StageEmployment,
		Name: "Employment",
		Fields: []FieldKey{
			FieldEmploymentStatus, FieldOccupation, FieldEmployerName,
			FieldEmploymentSector, FieldYearsEmployed,
		},
	},
	{
		ID:   StageFinancialProfile,
		Name: "Financial Profile",
		Fields: []FieldKey{
			FieldIncomeBracket, FieldSourceOfFunds, FieldInvestmentObjective,
			FieldRiskTolerance, FieldExpectedActivity,
		},
	},
	{
		ID:   StageBank,
		Name: "Bank Settlement",
		Fields: []FieldKey{
			FieldBankName, FieldBankBranch, FieldAccountName,
			FieldAccountNumber, FieldSettlementCurrency,
		},
	},
	{
		ID:   StageDepository,
		Name: "Depository Account",
		Fields: []FieldKey{
			FieldDepositoryParticipant, FieldDepositoryAccountNumber,
			FieldExistingHolder, FieldTermsAttested,
		},
	},
}

// organizationOnly marks fields that only exist on organization drafts;
// individualOnly the reverse. Everything else is common to both.
var organizationOnly = map[FieldKey]bool{
	FieldRegistrationNumber: true,
	FieldIncorporationDate:  true,
	FieldContactPerson:      true,
}

var individualOnly = map[FieldKey]bool{
	FieldDateOfBirth:   true,
	FieldPlaceOfBirth:  true,
	FieldGender:        true,
	FieldMaritalStatus: true,
}

// booleanFields lists the keys whose draft value is a bool rather than a
// string. The attestation flag gates submission; existing_holder only steers
// which depository inputs the UI shows.
var booleanFields = map[FieldKey]bool{
	FieldExistingHolder: true,
	FieldTermsAttested:  true,
}

// requiredFields is the conditional required-field table consumed by the step
// validator, keyed by account type then stage. Document-slot gating lives in
// requiredSlots, not here: a slot requirement checks upload state, never the
// mere presence of a reference value.
var requiredFields = map[domain.AccountType]map[StageID][]FieldKey{
	domain.AccountIndividual: {
		StagePersonal:         {FieldFirstName, FieldLastName, FieldDateOfBirth, FieldNationality},
		StageContact:          {FieldPhone, FieldEmail, FieldAddressLine1, FieldCity},
		StageIdentification:   {FieldIDNumber},
		StageTax:              {FieldTaxIDNumber},
		StageEmployment:       {FieldOccupation, FieldEmploymentSector, FieldEmploymentStatus},
		StageFinancialProfile: {FieldIncomeBracket, FieldSourceOfFunds, FieldRiskTolerance},
		StageBank:             {FieldBankName, FieldAccountName, FieldAccountNumber},
		StageDepository:       {FieldDepositoryAccountNumber, FieldTermsAttested},
	},
	domain.AccountOrganization: {
		StagePersonal:         {FieldFirstName, FieldLastName, FieldRegistrationNumber, FieldIncorporationDate, FieldNationality},
		StageContact:          {FieldPhone, FieldEmail, FieldAddressLine1, FieldCity},
		StageIdentification:   {FieldIDNumber},
		StageTax:              {FieldTaxIDNumber},
		StageEmployment:       {FieldOccupation, FieldEmploymentSector, FieldEmploymentStatus},
		StageFinancialProfile: {FieldIncomeBracket, FieldSourceOfFunds, FieldRiskTolerance},
		StageBank:             {FieldBankName, FieldAccountName, FieldAccountNumber},
		StageDepository:       {FieldDepositoryAccountNumber, FieldTermsAttested},
	},
}

var requiredSlots = map[StageID][]SlotName{
	StageIdentification: {SlotIDFront, SlotIDBack},
	StageTax:            {SlotTaxCertificate},
}

// Stages returns the ordered stage definitions.
func Stages() []Stage {
	return stages
}

// StageByID returns the stage definition for id.
func StageByID(id StageID) (Stage, bool) {
	if !ValidStage(id) {
		return Stage{}, false
	}
	return stages[int(id)-1], true
}

// ValidStage reports whether id falls in the 1..8 range.
func ValidStage(id StageID) bool {
	return id >= StagePersonal && id <= StageDepository
}

// Fields returns every field key that exists for the given account type, in
// stage order.
func Fields(accountType domain.AccountType) []FieldKey {
	var keys []FieldKey
	for _, st := range stages {
		for _, key := range st.Fields {
			if appliesTo(key, accountType) {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// HasField reports whether key exists in the schema for the account type.
func HasField(key FieldKey, accountType domain.AccountType) bool {
	for _, st := range stages {
		for _, k := range st.Fields {
			if k == key {
				return appliesTo(key, accountType)
			}
		}
	}
	return false
}

// IsBoolean reports whether the field carries a bool value.
func IsBoolean(key FieldKey) bool {
	return booleanFields[key]
}

// RequiredFields returns the field keys the validator demands for a stage
// under the given account type.
func RequiredFields(id StageID, accountType domain.AccountType) []FieldKey {
	table, ok := requiredFields[accountType]
	if !ok {
		table = requiredFields[domain.AccountIndividual]
	}
	return table[id]
}

// RequiredSlots returns the document slots whose uploads must have succeeded
// before a stage may advance.
func RequiredSlots(id StageID) []SlotName {
	return requiredSlots[id]
}

func appliesTo(key FieldKey, accountType domain.AccountType) bool {
	switch accountType {
	case domain.AccountOrganization:
		return !individualOnly[key]
	default:
		return !organizationOnly[key]
	}
}
