package logging

// Standardized field names for structured logging.
const (
	FieldFile      = "file_path"
	FieldIngestor  = "ingestor"
	FieldStrategy  = "strategy"
	FieldAccount   = "account_id"
	FieldRow       = "row"
	FieldLine      = "line"
	FieldReason    = "reason"
	FieldCategory  = "category"
	FieldOperation = "operation"
	FieldCount     = "count"
	FieldValid     = "valid_count"
	FieldInvalid   = "invalid_count"
	FieldDelimiter = "delimiter"
	FieldDuration  = "duration_ms"
	FieldBalance   = "balance"
)
