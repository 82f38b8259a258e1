package models

// OutcomeKind enumerates every way a classification attempt can end.
type OutcomeKind int

const (
	// OutcomeClassified carries a stored record (PENDING, AVAILABLE or UNAVAILABLE).
	OutcomeClassified OutcomeKind = iota
	// OutcomeParsingError means the search call failed in transport or returned a malformed body.
	OutcomeParsingError
	// OutcomeExpiredToken means the search credential expired; the caller refreshes and retries.
	OutcomeExpiredToken
	// OutcomeStoreError means the record could not be read or written.
	OutcomeStoreError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeClassified:
		return "classified"
	case OutcomeParsingError:
		return "parsingError"
	case OutcomeExpiredToken:
		return "expiredToken"
	case OutcomeStoreError:
		return "storeError"
	default:
		return ""
	}
}

// ClassificationOutcome is the result of classifying one item.
//
// Record is set only for [OutcomeClassified]; Err is set for every other kind.
type ClassificationOutcome struct {
	Kind   OutcomeKind
	Record *CorrelationRecord
	Err    error
}

// State is the availability shown for the item: the record's state, or UNCHECKED when classification failed.
func (o ClassificationOutcome) State() Availability {
	if o.Kind == OutcomeClassified && o.Record != nil {
		return o.Record.State()
	}
	return Unchecked
}

// ClassifiedItem is a page item enriched with its classification.
type ClassifiedItem struct {
	Item    Item
	Outcome ClassificationOutcome
}

// ResolvedPage is what a page request returns to callers.
type ResolvedPage struct {
	CollectionID string
	Number       int
	Items        []ClassifiedItem
	TotalItems   int
	NextToken    string
	Drift        int // pages the stored index was shifted by before resolving, 0 if none
}
