package types

// DatasetSourcesField is the search field holding the sources a dataset reads from.
const DatasetSourcesField = "dataset_sources"

// SearchQuery is a term match against one indexed dataset field.
type SearchQuery struct {
	Field string
	Value string
}

// NewTermQuery returns a query matching datasets whose field contains value.
func NewTermQuery(field, value string) SearchQuery {
	return SearchQuery{Field: field, Value: value}
}
