// kind.go defines the closed set of error kinds and their display labels.

package deskerr

// Kind classifies an error for display. The set is closed; anything that is
// not recognized is KindUnknown.
type Kind int

const (
	// KindUnknown is the fallback for unrecognized or missing names.
	KindUnknown Kind = iota
	KindBase
	KindValidation
	KindNotFound
	KindForbidden
	KindDuplicateEntry
	KindLinkValidation
	KindMandatory
	KindDatabase
	KindCannotCommit
	KindNotImplemented
)

// fallbackLabel is shown for KindUnknown.
const fallbackLabel = "Error"

var kindNames = map[Kind]string{
	KindBase:           "BaseError",
	KindValidation:     "ValidationError",
	KindNotFound:       "NotFoundError",
	KindForbidden:      "ForbiddenError",
	KindDuplicateEntry: "DuplicateEntryError",
	KindLinkValidation: "LinkValidationError",
	KindMandatory:      "MandatoryError",
	KindDatabase:       "DatabaseError",
	KindCannotCommit:   "CannotCommitError",
	KindNotImplemented: "NotImplemented",
}

// Labels are untranslated; LabelFor runs them through a Translator.
var kindLabels = map[Kind]string{
	KindBase:           "Application Error",
	KindValidation:     "Validation Error",
	KindNotFound:       "Not Found",
	KindForbidden:      "Forbidden Error",
	KindDuplicateEntry: "Duplicate Entry",
	KindLinkValidation: "Link Validation Error",
	KindMandatory:      "Mandatory Error",
	KindDatabase:       "Database Error",
	KindCannotCommit:   "Cannot Commit Error",
	KindNotImplemented: "Not Implemented",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the wire name of the kind, e.g. "ValidationError".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fallbackLabel
}

// Label returns the untranslated display label.
func (k Kind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return fallbackLabel
}

// ParseKind maps an exact kind name to its Kind. Matching is case-sensitive.
func ParseKind(name string) Kind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	return KindUnknown
}

// Translator localizes a literal string. A nil Translator is the identity.
type Translator func(string) string

// Translate applies t, tolerating a nil receiver.
func (t Translator) Translate(s string) string {
	if t == nil {
		return s
	}
	if out := t(s); out != "" {
		return out
	}
	return s
}

// LabelFor returns the localized display label for an error kind name.
// It is total: unknown and empty names yield the generic label.
func LabelFor(t Translator, name string) string {
	return t.Translate(ParseKind(name).Label())
}
