package models

// DefaultCategory is the category label used when a row carries none.
const DefaultCategory = "Other"

// Direction values derived from the sign of an amount.
const (
	DirectionExpense = "expense"
	DirectionIncome  = "income"
)

// Row failure reasons reported on invalid candidates.
const (
	ReasonInvalidDate        = "Invalid date"
	ReasonMissingDescription = "Missing description"
	ReasonInvalidAmount      = "Invalid amount"
)

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
)
