package uploads

import (
	"encoding/json"
	"testing"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantNil   bool
		wantName  string
		wantEmail string
		wantErr   bool
	}{
		{name: "empty", raw: "", wantNil: true},
		{name: "null", raw: "null", wantNil: true},
		{name: "both fields", raw: `{"name":"A","email":"a@x.com"}`, wantName: "A", wantEmail: "a@x.com"},
		{name: "email only", raw: `{"email":"a@x.com"}`, wantEmail: "a@x.com"},
		{name: "blank strings", raw: `{"name":"  ","email":""}`, wantNil: true},
		{name: "extra fields ignored", raw: `{"name":"A","email":"a@x.com","role":"admin"}`, wantName: "A", wantEmail: "a@x.com"},
		{name: "array", raw: `["a"]`, wantErr: true},
		{name: "number email", raw: `{"email":42}`, wantErr: true},
		{name: "not json", raw: `name=A`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseIdentity(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.wantNil {
				if id != nil {
					t.Fatalf("Expected nil identity, got %+v", id)
				}
				return
			}
			if id == nil {
				t.Fatal("Expected identity, got nil")
			}
			if got := deref(id.Name); got != tt.wantName {
				t.Fatalf("Expected name %q, got %q", tt.wantName, got)
			}
			if got := id.EmailOrEmpty(); got != tt.wantEmail {
				t.Fatalf("Expected email %q, got %q", tt.wantEmail, got)
			}
		})
	}
}

func TestRecordID_UnmarshalJSON(t *testing.T) {
	for _, body := range []string{`{"id":7}`, `{"id":"7"}`} {
		var req DeleteUploadRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("Unexpected error for %s: %v", body, err)
		}
		if req.ID != 7 {
			t.Fatalf("Expected 7, got %d", req.ID)
		}
	}

	var req DeleteUploadRequest
	if err := json.Unmarshal([]byte(`{"id":"abc"}`), &req); err == nil {
		t.Fatal("Expected error for non-numeric id")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
