package signals

import (
	"encoding/json"
	"testing"
)

func TestOrDefault_Nil(t *testing.T) {
	var s *EmotionalSignals
	got := s.OrDefault()
	if got != Default() {
		t.Errorf("OrDefault(nil) = %+v, want %+v", got, Default())
	}
}

func TestOrDefault_FillsEmptyEnums(t *testing.T) {
	s := &EmotionalSignals{Empathy: 0.9}
	got := s.OrDefault()
	if got.Empathy != 0.9 {
		t.Errorf("Empathy = %v, want 0.9", got.Empathy)
	}
	if got.Pacing != PacingModerate {
		t.Errorf("Pacing = %q, want moderate", got.Pacing)
	}
	if got.Clarity != ClarityMedium {
		t.Errorf("Clarity = %q, want medium", got.Clarity)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		s    EmotionalSignals
		want bool
	}{
		{"default", Default(), true},
		{"empathy too high", EmotionalSignals{Empathy: 1.2, Pacing: PacingFast, Clarity: ClarityLow}, false},
		{"negative empathy", EmotionalSignals{Empathy: -0.1, Pacing: PacingFast, Clarity: ClarityLow}, false},
		{"unknown pacing", EmotionalSignals{Empathy: 0.5, Pacing: "brisk", Clarity: ClarityLow}, false},
		{"unknown clarity", EmotionalSignals{Empathy: 0.5, Pacing: PacingSlow, Clarity: "crisp"}, false},
		{"bounds", EmotionalSignals{Empathy: 1, Pacing: PacingSlow, Clarity: ClarityHigh}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		name        string
		transcript  string
		wantEmpathy float64
		wantPacing  Pacing
		wantClarity Clarity
	}{
		{
			name:        "empty",
			transcript:  "",
			wantEmpathy: 0.4,
			wantPacing:  PacingSlow,
			wantClarity: ClarityHigh,
		},
		{
			name:        "empathetic and measured",
			transcript:  "I understand how you feel and I really appreciate your patience today.",
			wantEmpathy: 0.7,
			wantPacing:  PacingModerate,
			wantClarity: ClarityHigh,
		},
		{
			name:        "fillers",
			transcript:  "Um, uh, I was like, you know, actually going to order a coffee right now please",
			wantEmpathy: 0.4,
			wantPacing:  PacingModerate,
			wantClarity: ClarityLow,
		},
		{
			name: "run-on sentence",
			transcript: "I would really love to get a large cappuccino with oat milk and an extra shot " +
				"and maybe a croissant on the side if you have any left today",
			wantEmpathy: 0.4,
			wantPacing:  PacingFast,
			wantClarity: ClarityHigh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Estimate(tt.transcript)
			if got.Empathy != tt.wantEmpathy {
				t.Errorf("Empathy = %v, want %v", got.Empathy, tt.wantEmpathy)
			}
			if got.Pacing != tt.wantPacing {
				t.Errorf("Pacing = %q, want %q", got.Pacing, tt.wantPacing)
			}
			if got.Clarity != tt.wantClarity {
				t.Errorf("Clarity = %q, want %q", got.Clarity, tt.wantClarity)
			}
			if !got.Valid() {
				t.Errorf("Estimate produced invalid signals: %+v", got)
			}
		})
	}
}

func TestEstimate_EmpathyCapped(t *testing.T) {
	got := Estimate("Sorry, I understand, I feel it, I appreciate it, thank you, I hope so, sorry again.")
	if got.Empathy != 1.0 {
		t.Errorf("Empathy = %v, want 1.0", got.Empathy)
	}
}

func TestUnmarshalJSON_PartialPayloadKeepsNeutralValues(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want EmotionalSignals
	}{
		{"missing empathy", `{"pacing":"fast","clarity":"high"}`, EmotionalSignals{Empathy: DefaultEmpathy, Pacing: PacingFast, Clarity: ClarityHigh}},
		{"only empathy", `{"empathy":0.9}`, EmotionalSignals{Empathy: 0.9, Pacing: DefaultPacing, Clarity: DefaultClarity}},
		{"explicit zero empathy", `{"empathy":0}`, EmotionalSignals{Empathy: 0, Pacing: DefaultPacing, Clarity: DefaultClarity}},
		{"empty object", `{}`, Default()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got EmotionalSignals
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUnmarshalJSON_PointerField(t *testing.T) {
	var req struct {
		Signals *EmotionalSignals `json:"signals"`
	}
	if err := json.Unmarshal([]byte(`{"signals":{"pacing":"moderate","clarity":"high"}}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Signals == nil || req.Signals.Empathy != DefaultEmpathy {
		t.Errorf("Signals = %+v, want empathy %v", req.Signals, DefaultEmpathy)
	}
}
