package signaling

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	env, err := parseEnvelope([]byte(`{"type":"join_room","roomID":"abc1234","userName":"Alice"}`))
	if err != nil {
		t.Fatalf("parseEnvelope: %v", err)
	}
	if env.Type != "join_room" || env.RoomID != "abc1234" || env.UserName != "Alice" {
		t.Errorf("envelope = %+v", env)
	}
	if len(env.raw) == 0 {
		t.Errorf("raw bytes not retained")
	}

	if _, err := parseEnvelope([]byte(`{"roomID":"abc1234"}`)); !errors.Is(err, errMalformed) {
		t.Errorf("missing type: err = %v, want errMalformed", err)
	}
	if _, err := parseEnvelope([]byte(`{not json`)); !errors.Is(err, errMalformed) {
		t.Errorf("invalid json: err = %v, want errMalformed", err)
	}
	if _, err := parseEnvelope([]byte(`"just a string"`)); !errors.Is(err, errMalformed) {
		t.Errorf("non-object: err = %v, want errMalformed", err)
	}
}

func TestEnvelopeValidate(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"create needs nothing", `{"type":"create_room"}`, false},
		{"join without room", `{"type":"join_room","userName":"A"}`, true},
		{"signal without to", `{"type":"webrtc_signal","roomID":"r"}`, true},
		{"signal complete", `{"type":"webrtc_signal","roomID":"r","to":"host"}`, false},
		{"unmute without target", `{"type":"unmute_command","roomID":"r"}`, true},
		{"mute complete", `{"type":"mute_command","roomID":"r","targetUserID":"u"}`, false},
		{"chat without text", `{"type":"chat_message","userName":"A"}`, true},
		{"end without room", `{"type":"end_class"}`, true},
		{"raise hand bare", `{"type":"raise_hand","userName":"A"}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := parseEnvelope([]byte(tc.payload))
			if err != nil {
				t.Fatalf("parseEnvelope: %v", err)
			}
			if gotErr := env.validate() != nil; gotErr != tc.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", env.validate(), tc.wantErr)
			}
		})
	}
}

func TestRetagSignalPreservesPayload(t *testing.T) {
	raw := json.RawMessage(`{"type":"webrtc_signal","roomID":"r","to":"host","signal":{"type":"offer","sdp":"v=0\r\n"},"from":"spoofed"}`)

	tagged, err := retagSignal(raw, "conn-1")
	if err != nil {
		t.Fatalf("retagSignal: %v", err)
	}

	var out struct {
		Type   string `json:"type"`
		RoomID string `json:"roomID"`
		To     string `json:"to"`
		From   string `json:"from"`
		Signal struct {
			Type string `json:"type"`
			SDP  string `json:"sdp"`
		} `json:"signal"`
	}
	if err := json.Unmarshal(tagged, &out); err != nil {
		t.Fatalf("unmarshal tagged: %v", err)
	}
	if out.From != "conn-1" {
		t.Errorf("from = %q, want the sender's connection id (spoofed value overwritten)", out.From)
	}
	if out.Signal.SDP != "v=0\r\n" || out.Signal.Type != "offer" {
		t.Errorf("opaque signal body altered: %+v", out.Signal)
	}
	if out.RoomID != "r" || out.To != "host" {
		t.Errorf("routing fields altered: %+v", out)
	}
}
