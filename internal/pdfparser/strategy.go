package pdfparser

import (
	"regexp"
	"strings"

	"fjacquet/stmt-ingest/internal/models"
	"fjacquet/stmt-ingest/internal/normalizer"
)

// Skip reasons reported for lines that start like a transaction but cannot
// be turned into one.
const (
	SkipInvalidDate        = "Invalid date"
	SkipMissingDescription = "Missing description"
	SkipInvalidAmount      = "Invalid amount"
	SkipNoAmount           = "No amount found"
)

// LineStrategy recognizes transactions in single lines of statement text.
//
// ParseLine returns ok=true with the parsed line on success. When ok is false,
// a non-empty reason means the line looked like a transaction but was
// rejected; an empty reason means the line is not transaction-shaped.
type LineStrategy interface {
	Name() string
	ParseLine(text string) (line models.StatementLine, ok bool, reason string)
}

// DefaultStrategies returns the passes in evaluation order.
func DefaultStrategies() []LineStrategy {
	return []LineStrategy{InstitutionStrategy{}, GenericStrategy{}}
}

const amountTokenExpr = `[-+]?\$?[-+]?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d+`

var (
	institutionPattern = regexp.MustCompile(
		`^(\d{2}/\d{2}/\d{4})\s+(\d+)\s+(.+?)\s+(` + amountTokenExpr + `)\s+(` + amountTokenExpr + `)$`)
	amountToken    = regexp.MustCompile(`^` + amountTokenExpr + `$`)
	tokenPattern   = regexp.MustCompile(`\S+`)
	authCodePrefix = regexp.MustCompile(`^(\d+)(?:\s+|$)`)
	genericDates   = []*regexp.Regexp{
		regexp.MustCompile(`^\d{2}/\d{2}/\d{4}\b`),
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`^\d{2}-\d{2}-\d{4}\b`),
	}
)

// InstitutionStrategy matches the card issuer export layout
// "MM/DD/YYYY AUTHCODE DESCRIPTION AMOUNT BALANCE". Other lines are ignored.
type InstitutionStrategy struct{}

func (InstitutionStrategy) Name() string { return "institution" }

func (InstitutionStrategy) ParseLine(text string) (models.StatementLine, bool, string) {
	m := institutionPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return models.StatementLine{}, false, ""
	}

	date, err := normalizer.NormalizeDate(m[1])
	if err != nil {
		return models.StatementLine{}, false, SkipInvalidDate
	}
	amount, err := normalizer.NormalizeAmount(m[4])
	if err != nil {
		return models.StatementLine{}, false, SkipInvalidAmount
	}
	description := strings.TrimSpace(m[3])
	if description == "" {
		return models.StatementLine{}, false, SkipMissingDescription
	}
	return models.StatementLine{
		Date:        date,
		AuthCode:    m[2],
		Description: description,
		Amount:      amount,
	}, true, ""
}

// GenericStrategy accepts any line starting with MM/DD/YYYY, YYYY-MM-DD or
// MM-DD-YYYY. The first decimal token after the date is the amount; the
// description runs from the date up to that token, minus a leading numeric
// authorization code.
type GenericStrategy struct{}

func (GenericStrategy) Name() string { return "generic" }

func (GenericStrategy) ParseLine(text string) (models.StatementLine, bool, string) {
	text = strings.TrimSpace(text)

	var dateToken string
	for _, p := range genericDates {
		if loc := p.FindStringIndex(text); loc != nil {
			dateToken = text[:loc[1]]
			break
		}
	}
	if dateToken == "" {
		return models.StatementLine{}, false, ""
	}

	date, err := normalizer.NormalizeDate(dateToken)
	if err != nil {
		return models.StatementLine{}, false, SkipInvalidDate
	}

	rest := text[len(dateToken):]
	amountStart, amountText := -1, ""
	for _, loc := range tokenPattern.FindAllStringIndex(rest, -1) {
		if tok := rest[loc[0]:loc[1]]; amountToken.MatchString(tok) {
			amountStart, amountText = loc[0], tok
			break
		}
	}
	if amountStart < 0 {
		return models.StatementLine{}, false, SkipNoAmount
	}

	var authCode string
	description := strings.TrimSpace(rest[:amountStart])
	if m := authCodePrefix.FindStringSubmatch(description); m != nil {
		authCode = m[1]
		description = strings.TrimSpace(description[len(m[0]):])
	}
	if description == "" {
		return models.StatementLine{}, false, SkipMissingDescription
	}

	amount, err := normalizer.NormalizeAmount(amountText)
	if err != nil {
		return models.StatementLine{}, false, SkipInvalidAmount
	}
	return models.StatementLine{
		Date:        date,
		AuthCode:    authCode,
		Description: description,
		Amount:      amount,
	}, true, ""
}
