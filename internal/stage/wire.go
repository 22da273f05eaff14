package stage

// Wire shapes of the analysis services. Processing is POST
// {endpoint}/v1/process; the health probe is GET {endpoint}/v1/typesystem.

// wireSentence is one span of text inside a selection, in both directions.
// Responses add the service's per-sentence scores.
type wireSentence struct {
	Text  string `json:"text,omitempty"`
	Begin int    `json:"begin"`
	End   int    `json:"end"`

	// Sentiment response scores.
	Pos *float64 `json:"pos,omitempty"`
	Neu *float64 `json:"neu,omitempty"`
	Neg *float64 `json:"neg,omitempty"`

	// Some sentiment models return a single polarity scalar instead.
	Sentiment *float64 `json:"sentiment,omitempty"`
}

// wireSelection groups sentences under a selection strategy ("text" for the
// whole document).
type wireSelection struct {
	Selection string         `json:"selection"`
	Sentences []wireSentence `json:"sentences"`
}

// selectionResponse is the sentiment/hate response envelope.
type selectionResponse struct {
	Selections []wireSelection `json:"selections"`
	Meta       wireMeta        `json:"meta"`

	// Hate response: score arrays aligned with the request sentences.
	Hate    []float64 `json:"hate,omitempty"`
	NonHate []float64 `json:"non_hate,omitempty"`
}

type wireMeta struct {
	ModelName string `json:"modelName,omitempty"`
	Version   string `json:"version,omitempty"`
}

// wireClaim and wireFact carry the current claim/fact pairs to the
// fact-checking service, each side referencing the other.
type wireClaim struct {
	Begin int        `json:"begin"`
	End   int        `json:"end"`
	Text  string     `json:"text"`
	Facts []wireFact `json:"facts"`
}

type wireFact struct {
	Begin  int         `json:"begin"`
	End    int         `json:"end"`
	Text   string      `json:"text"`
	Claims []wireClaim `json:"claims,omitempty"`
}

// factCheckRequest is the fact-checking payload.
type factCheckRequest struct {
	Text      string      `json:"text"`
	Lang      string      `json:"lang"`
	ClaimsAll []wireClaim `json:"claims_all"`
	FactsAll  []wireFact  `json:"facts_all"`
}

// factCheckResponse carries one consistency score per requested pair, in
// request order.
type factCheckResponse struct {
	Consistency []float64 `json:"consistency"`
}

type wireError struct {
	Error string `json:"error"`
}
