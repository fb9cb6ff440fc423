package answer

// Fixed responses. Each is distinct so callers and tests can tell the
// outcomes apart.
const (
	// MsgNoFilterMatches is returned when recognized filters exclude every record.
	MsgNoFilterMatches = "No matches for the filters you specified."

	// MsgNoSemanticMatches is returned when semantic search retrieved nothing.
	MsgNoSemanticMatches = "No related records were found for your question."

	// MsgSearchUnavailable is returned when the question could not be embedded.
	MsgSearchUnavailable = "Search is unavailable right now, please try again later."

	// MsgNoData is returned when there is no dataset to search.
	MsgNoData = "No data available."
)
