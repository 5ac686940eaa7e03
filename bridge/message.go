// Package bridge defines the message protocol shared by the visual edit host
// controller and the peer script running inside the embedded document.
// Both directions use the same envelope: {type, ...payload}.
package bridge

// MessageType identifies a bridge message.
type MessageType string

const (
	// Host → peer.
	ToggleEditMode  MessageType = "TOGGLE_EDIT_MODE"
	ClearSelection  MessageType = "CLEAR_SELECTION"
	ClearAllEffects MessageType = "CLEAR_ALL_EFFECTS"

	// Peer → host.
	ElementHover    MessageType = "ELEMENT_HOVER"
	ElementSelected MessageType = "ELEMENT_SELECTED"

	// Host page → host process, emitted on every iframe load. Never posted
	// into the frame.
	FrameLoaded MessageType = "FRAME_LOADED"
)

// BindingName is the runtime binding through which the host page relays
// frame messages to the host process.
const BindingName = "__weaverBridge"

// IsControl reports whether t travels host → peer.
func (t MessageType) IsControl() bool {
	switch t {
	case ToggleEditMode, ClearSelection, ClearAllEffects:
		return true
	}
	return false
}

// IsEvent reports whether t travels peer → host.
func (t MessageType) IsEvent() bool {
	return t == ElementHover || t == ElementSelected
}

// Message is the envelope exchanged in both directions.
//
// Control messages carry EditMode (TOGGLE_EDIT_MODE only) and Seq, a
// monotonically increasing number stamped by the host. Event messages carry
// Data, which echoes the last control Seq the peer applied.
type Message struct {
	Type     MessageType `json:"type"`
	EditMode *bool       `json:"editMode,omitempty"`
	Seq      uint64      `json:"seq,omitempty"`
	Data     *EventData  `json:"data,omitempty"`
}

// EventData is the payload of ELEMENT_HOVER and ELEMENT_SELECTED.
type EventData struct {
	ElementInfo *ElementDescriptor `json:"elementInfo,omitempty"`
	Seq         uint64             `json:"seq,omitempty"`
}

// Toggle builds a TOGGLE_EDIT_MODE message.
func Toggle(on bool) Message {
	return Message{Type: ToggleEditMode, EditMode: &on}
}

// Control builds a payload-less control message (CLEAR_SELECTION,
// CLEAR_ALL_EFFECTS).
func Control(t MessageType) Message {
	return Message{Type: t}
}

// NewEvent builds a peer → host event message.
func NewEvent(t MessageType, el ElementDescriptor, seq uint64) Message {
	return Message{Type: t, Data: &EventData{ElementInfo: &el, Seq: seq}}
}

// Element returns the element descriptor carried by an event message, or
// nil when the payload is absent.
func (m Message) Element() *ElementDescriptor {
	if m.Data == nil {
		return nil
	}
	return m.Data.ElementInfo
}

// EditModeOn reports the editMode flag of a TOGGLE_EDIT_MODE message.
// A missing flag reads as false.
func (m Message) EditModeOn() bool {
	return m.EditMode != nil && *m.EditMode
}
