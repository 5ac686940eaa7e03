package bridge

// MaxTextContent is the number of characters of rendered text kept in an
// ElementDescriptor.
const MaxTextContent = 100

// Rect is viewport-relative geometry in CSS pixels.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementDescriptor is a snapshot of a DOM element taken by the peer at the
// moment of a hover or click. It holds no reference to the live node.
type ElementDescriptor struct {
	TagName     string `json:"tagName"`   // uppercase
	ID          string `json:"id"`
	ClassName   string `json:"className"`
	TextContent string `json:"textContent"` // trimmed, at most MaxTextContent characters
	Selector    string `json:"selector"`    // body-relative path, segments joined by " > "
	PagePath    string `json:"pagePath"`    // query string + fragment, "" when both absent
	Rect        Rect   `json:"rect"`
}

// Record is an event annotated for delivery to sinks.
type Record struct {
	ID        string            `json:"id"` // UUIDv7
	SessionID string            `json:"session_id"`
	Kind      MessageType       `json:"kind"` // ELEMENT_HOVER | ELEMENT_SELECTED
	Element   ElementDescriptor `json:"element"`
	PeerSeq   uint64            `json:"peer_seq"`  // last control seq applied by the peer
	Timestamp int64             `json:"timestamp"` // epoch milliseconds
}
