package bridge

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEncodeToggle(t *testing.T) {
	data, err := Encode(Toggle(false))
	if err != nil {
		t.Fatal(err)
	}
	// editMode:false must survive omitempty.
	if !strings.Contains(string(data), `"editMode":false`) {
		t.Errorf("encoded toggle: got %s, want editMode:false", data)
	}
	if !strings.Contains(string(data), `"type":"TOGGLE_EDIT_MODE"`) {
		t.Errorf("encoded toggle: got %s", data)
	}
}

func TestEncodeControlOmitsPayload(t *testing.T) {
	data, err := Encode(Control(ClearAllEffects))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"type":"CLEAR_ALL_EFFECTS"}` {
		t.Errorf("encoded control: got %s", got)
	}
}

func TestDecodeEvent(t *testing.T) {
	raw := `{"type":"ELEMENT_SELECTED","data":{"elementInfo":{"tagName":"DIV","id":"hero","className":"a b","textContent":"hi","selector":"div#hero","pagePath":"?x=1#sec","rect":{"top":1.5,"left":2,"width":30,"height":40}},"seq":7}}`

	m, err := Decode([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if m.Type != ElementSelected {
		t.Errorf("Type: got %q", m.Type)
	}
	el := m.Element()
	if el == nil {
		t.Fatal("Element: got nil")
	}
	if el.TagName != "DIV" || el.Selector != "div#hero" || el.PagePath != "?x=1#sec" {
		t.Errorf("Element: got %+v", el)
	}
	if el.Rect.Top != 1.5 || el.Rect.Height != 40 {
		t.Errorf("Rect: got %+v", el.Rect)
	}
	if m.Data.Seq != 7 {
		t.Errorf("Seq: got %d, want 7", m.Data.Seq)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	m, err := Decode([]byte(`{"type":"SOMETHING_NEW","data":{}}`))
	if err != nil {
		t.Fatalf("unknown type should decode: %v", err)
	}
	if m.Type.IsControl() || m.Type.IsEvent() {
		t.Errorf("unknown type classified: %q", m.Type)
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, in := range []string{"", "not json", `{"data":{}}`, `[1,2]`} {
		if _, err := Decode([]byte(in)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q): got %v, want ErrMalformed", in, err)
		}
	}
}

func TestElementMissingPayload(t *testing.T) {
	m := Message{Type: ElementHover}
	if m.Element() != nil {
		t.Error("Element without data should be nil")
	}
	m.Data = &EventData{}
	if m.Element() != nil {
		t.Error("Element without elementInfo should be nil")
	}
}

func TestEditModeOn(t *testing.T) {
	if !Toggle(true).EditModeOn() {
		t.Error("Toggle(true).EditModeOn() = false")
	}
	if Toggle(false).EditModeOn() {
		t.Error("Toggle(false).EditModeOn() = true")
	}
	if (Message{Type: ToggleEditMode}).EditModeOn() {
		t.Error("missing editMode should read false")
	}
}

func TestRecordMarshal(t *testing.T) {
	r := &Record{
		ID:        "0190a5c4-0000-7000-8000-000000000000",
		SessionID: "sess-1",
		Kind:      ElementHover,
		Element:   ElementDescriptor{TagName: "P", Selector: "p:nth-child(2)"},
		PeerSeq:   3,
		Timestamp: 1708700000000,
	}
	data, err := MarshalRecord(r)
	if err != nil {
		t.Fatal(err)
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "session_id", "kind", "element", "peer_seq", "timestamp"} {
		if _, ok := generic[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}

	got, err := UnmarshalRecord(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Element.Selector != r.Element.Selector || got.Kind != r.Kind {
		t.Errorf("UnmarshalRecord: got %+v", got)
	}
}
