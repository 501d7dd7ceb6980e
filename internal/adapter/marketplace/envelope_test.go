package marketplace

import "testing"

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  bool
		wantPage bool
	}{
		{name: "bare array", body: `[1,2]`},
		{name: "envelope", body: `{"items":[1],"pagination":{"page":1}}`, wantPage: true},
		{name: "envelope without pagination", body: `{"items":[1]}`},
		{name: "single object", body: `{"items":{"id":1}}`, wantErr: true},
		{name: "scalar", body: `"nope"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, pg, err := splitList([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if (pg != nil) != tt.wantPage {
				t.Fatalf("pagination = %v, want present %v", pg, tt.wantPage)
			}
		})
	}
}

func TestUnwrapOne(t *testing.T) {
	if got := string(unwrapOne([]byte(`{"items":{"id":1}}`))); got != `{"id":1}` {
		t.Fatalf("expected unwrapped object, got %s", got)
	}
	bare := `{"id":1,"items":[1]}`
	if got := string(unwrapOne([]byte(bare))); got != bare {
		t.Fatalf("expected body unchanged, got %s", got)
	}
}
